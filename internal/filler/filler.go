// Package filler orchestrates one document fill: registry lookup, data
// normalization, rule evaluation, field writes, signature compositing and
// finalization. Anything fatal to a single fill is converted into a typed
// error at this boundary; nothing propagates as an unhandled fault.
package filler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fieldserve/certfill/internal/mapping"
	"github.com/fieldserve/certfill/internal/normalize"
	"github.com/fieldserve/certfill/internal/pdfform"
	"github.com/fieldserve/certfill/internal/registry"
	"github.com/fieldserve/certfill/internal/signature"
	"github.com/fieldserve/certfill/internal/submission"
	"github.com/fieldserve/certfill/internal/templates"
)

// FillError wraps a failure of one fill operation with its form type and the
// step that failed.
type FillError struct {
	FormType string
	Op       string
	Err      error
}

func (e *FillError) Error() string {
	return fmt.Sprintf("fill %s: %s: %v", e.FormType, e.Op, e.Err)
}

func (e *FillError) Unwrap() error { return e.Err }

// Filler produces filled documents from submissions.
type Filler struct {
	registry   *registry.Registry
	templates  *templates.Provider
	compositor *signature.Compositor
	logger     *zap.Logger
}

// New wires a filler from its collaborators.
func New(reg *registry.Registry, provider *templates.Provider, compositor *signature.Compositor, logger *zap.Logger) *Filler {
	return &Filler{
		registry:   reg,
		templates:  provider,
		compositor: compositor,
		logger:     logger,
	}
}

// Registry exposes the form-type registry for callers listing supported types.
func (f *Filler) Registry() *registry.Registry {
	return f.registry
}

// Fill produces the filled document bytes for one submission.
//
// Missing template fields and undecodable signatures are logged and skipped;
// only an unknown form type or an unreadable template fails the fill.
func (f *Filler) Fill(ctx context.Context, sub *submission.Submission) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entry, err := f.registry.Lookup(sub.FormType)
	if err != nil {
		return nil, &FillError{FormType: sub.FormType, Op: "lookup", Err: err}
	}

	raw, err := f.templates.Load(ctx, entry.FormType, entry.TemplateFile)
	if err != nil {
		return nil, &FillError{FormType: sub.FormType, Op: "load_template", Err: err}
	}

	tmpl, err := pdfform.Open(bytes.NewReader(raw))
	if err != nil {
		// An unparsable template is the same condition as a missing one:
		// the form type cannot be served by this deployment.
		return nil, &FillError{
			FormType: sub.FormType,
			Op:       "parse_template",
			Err:      &templates.UnavailableError{FormType: sub.FormType, Path: entry.TemplateFile, Err: err},
		}
	}

	merged := normalize.Merge(sub.Data, entry.Defaults)
	writes := mapping.Evaluate(entry, merged)

	for _, w := range writes {
		if err := tmpl.SetTextField(w.FieldID, w.Value); err != nil {
			var notFound *pdfform.FieldNotFoundError
			if errors.As(err, &notFound) {
				// Template revisions drop fields; never abort for this.
				f.logger.Warn("template field missing",
					zap.String("form_type", sub.FormType),
					zap.String("field_id", w.FieldID),
					zap.String("rule_kind", string(w.Kind)))
				continue
			}
			f.logger.Warn("field write failed",
				zap.String("form_type", sub.FormType),
				zap.String("field_id", w.FieldID),
				zap.Error(err))
		}
	}

	if entry.Flatten {
		tmpl.Lock()
	}

	filled, err := tmpl.Bytes()
	if err != nil {
		return nil, &FillError{FormType: sub.FormType, Op: "serialize", Err: err}
	}

	out, err := f.compositor.Apply(ctx, filled, sub.FormType, signature.Images{
		Client: sub.Signature,
		Staff:  sub.SignatureStaff,
	})
	if err != nil {
		return nil, &FillError{FormType: sub.FormType, Op: "composite", Err: err}
	}

	f.logger.Debug("document filled",
		zap.String("form_type", sub.FormType),
		zap.String("job_id", sub.JobID),
		zap.Int("field_writes", len(writes)),
		zap.Int("size_bytes", len(out)))
	return out, nil
}

// Filename derives the download name for a filled submission.
func Filename(sub *submission.Submission) string {
	job := sub.JobID
	if job == "" {
		job = "draft"
	}
	ts := sub.SubmittedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return fmt.Sprintf("%s-%s-%s.pdf", sub.FormType, job, ts.Format("20060102"))
}
