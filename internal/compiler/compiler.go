// Package compiler concatenates the filled documents of one job, behind a
// generated cover page, into a single report.
//
// Individual fills may fail (unknown form type, missing template); those
// submissions are logged and skipped. The compiled output always contains at
// least the cover page. Partial failure is not surfaced to the caller;
// diagnostics go to the log stream.
package compiler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"

	"github.com/fieldserve/certfill/internal/filler"
	"github.com/fieldserve/certfill/internal/submission"
)

const defaultConcurrency = 4

// Compiler builds job reports.
type Compiler struct {
	filler      *filler.Filler
	concurrency int
	logger      *zap.Logger
}

// New returns a compiler issuing at most concurrency fills at once, bounding
// the number of filled-document buffers held simultaneously.
func New(f *filler.Filler, concurrency int, logger *zap.Logger) *Compiler {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Compiler{filler: f, concurrency: concurrency, logger: logger}
}

// Compile fills every submission and merges the survivors after the cover
// page, in submission-list order.
func (c *Compiler) Compile(ctx context.Context, meta JobMetadata, subs []*submission.Submission) ([]byte, error) {
	cover, err := coverPage(meta, len(subs), time.Now())
	if err != nil {
		return nil, err
	}

	results := make([][]byte, len(subs))
	sem := make(chan struct{}, c.concurrency)
	var wg sync.WaitGroup

	for i, sub := range subs {
		wg.Add(1)
		go func(i int, sub *submission.Submission) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			out, err := c.filler.Fill(ctx, sub)
			if err != nil {
				c.logger.Warn("submission skipped in compiled report",
					zap.String("submission_id", sub.ID.String()),
					zap.String("form_type", sub.FormType),
					zap.Error(err))
				return
			}
			results[i] = out
		}(i, sub)
	}
	wg.Wait()

	readers := make([]io.ReadSeeker, 0, len(subs)+1)
	readers = append(readers, bytes.NewReader(cover))
	included := 0
	for _, out := range results {
		if out != nil {
			readers = append(readers, bytes.NewReader(out))
			included++
		}
	}

	if included == 0 {
		c.logger.Warn("compiled report contains only the cover page",
			zap.Int("submissions", len(subs)))
		return cover, nil
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false

	var buf bytes.Buffer
	if err := api.MergeRaw(readers, &buf, false, conf); err != nil {
		return nil, fmt.Errorf("failed to merge report pages: %w", err)
	}

	c.logger.Info("job report compiled",
		zap.Int("submissions", len(subs)),
		zap.Int("included", included),
		zap.Int("size_bytes", buf.Len()))
	return buf.Bytes(), nil
}
