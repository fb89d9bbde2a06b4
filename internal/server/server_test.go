package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fieldserve/certfill/internal/compiler"
	"github.com/fieldserve/certfill/internal/config"
	"github.com/fieldserve/certfill/internal/filler"
	"github.com/fieldserve/certfill/internal/pdftest"
	"github.com/fieldserve/certfill/internal/registry"
	"github.com/fieldserve/certfill/internal/signature"
	"github.com/fieldserve/certfill/internal/sigstore"
	"github.com/fieldserve/certfill/internal/submission"
	"github.com/fieldserve/certfill/internal/templates"
)

func newTestServer(t *testing.T) (*Server, submission.Store) {
	t.Helper()

	dir := t.TempDir()
	reg := registry.New()
	for _, ft := range reg.FormTypes() {
		entry, err := reg.Lookup(ft)
		require.NoError(t, err)

		var fields []string
		for _, rule := range entry.Rules {
			switch rule.Kind {
			case registry.RuleDirectText:
				fields = append(fields, rule.FieldID)
			case registry.RuleBinarySplit:
				fields = append(fields, rule.YesField, rule.NoField)
			}
		}
		path := filepath.Join(dir, entry.TemplateFile)
		require.NoError(t, os.WriteFile(path, pdftest.Fillable(fields...), 0o600))
	}

	positions, err := sigstore.New(nil, zap.NewNop())
	require.NoError(t, err)
	compositor := signature.NewCompositor(positions, 2*time.Second, zap.NewNop())
	f := filler.New(reg, templates.NewProvider(dir, 0), compositor, zap.NewNop())
	comp := compiler.New(f, 2, zap.NewNop())

	subs := submission.NewMemoryStore()
	return New(config.DefaultConfig(), f, comp, positions, subs, zap.NewNop()), subs
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "certfill", body["service"])
}

func TestFormTypesEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/api/v1/form-types", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		FormTypes []string `json:"form_types"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body.FormTypes, registry.FormClearanceCertificate)
}

func TestFillDocumentInline(t *testing.T) {
	s, _ := newTestServer(t)

	sig := base64.StdEncoding.EncodeToString(pdftest.SignaturePNG(90, 30))
	w := doJSON(t, s, http.MethodPost, "/api/v1/documents/fill", fillRequest{
		Submission: &submission.Submission{
			JobID:    "JOB-7",
			FormType: registry.FormClearanceCertificate,
			Data: map[string]any{
				"cname":  "Moira Finch",
				"excess": "no",
			},
			Signature:   sig,
			SubmittedAt: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		},
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "clearance-certificate-form-JOB-7-20240601.pdf")
	assert.Contains(t, w.Body.String(), "Moira Finch")
}

func TestFillDocumentBySubmissionID(t *testing.T) {
	s, subs := newTestServer(t)

	sub := &submission.Submission{
		JobID:       "JOB-8",
		FormType:    registry.FormSiteInspection,
		Data:        map[string]any{},
		SubmittedAt: time.Now(),
	}
	require.NoError(t, subs.Put(sub))

	w := doJSON(t, s, http.MethodPost, "/api/v1/documents/fill", fillRequest{
		SubmissionID: sub.ID.String(),
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))

	// Query form of the same lookup.
	w = doJSON(t, s, http.MethodPost, "/api/v1/documents/fill?submission_id="+sub.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
}

func TestFillDocumentErrors(t *testing.T) {
	s, _ := newTestServer(t)

	t.Run("unsupported form type", func(t *testing.T) {
		w := doJSON(t, s, http.MethodPost, "/api/v1/documents/fill", fillRequest{
			Submission: &submission.Submission{FormType: "unknown-form"},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("missing submission", func(t *testing.T) {
		w := doJSON(t, s, http.MethodPost, "/api/v1/documents/fill", fillRequest{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown submission id", func(t *testing.T) {
		w := doJSON(t, s, http.MethodPost, "/api/v1/documents/fill", fillRequest{
			SubmissionID: "a2c9f9a2-1d47-4f50-9f8e-16f8f6f3d9a1",
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestCompileJobReport(t *testing.T) {
	s, subs := newTestServer(t)

	for i, ft := range []string{registry.FormClearanceCertificate, registry.FormSiteInspection} {
		require.NoError(t, subs.Put(&submission.Submission{
			JobID:       "JOB-9",
			FormType:    ft,
			Data:        map[string]any{},
			SubmittedAt: time.Now().Add(time.Duration(i) * time.Minute),
		}))
	}

	w := doJSON(t, s, http.MethodPost, "/api/v1/jobs/JOB-9/report", compileRequest{
		Metadata: compiler.JobMetadata{Title: "Clearance Pack", Client: "Harbour Mutual"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "job-report-JOB-9")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}

func TestSignaturePositionLifecycle(t *testing.T) {
	s, _ := newTestServer(t)
	base := "/api/v1/signature-positions/" + registry.FormClearanceCertificate

	w := doJSON(t, s, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var original signature.Geometry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &original))

	updated := signature.Geometry{X: 40, Y: 600, Width: 150, Height: 45}
	w = doJSON(t, s, http.MethodPut, base, updated)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got signature.Geometry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, updated, got)

	w = doJSON(t, s, http.MethodDelete, base, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, original, got)
}

func TestSetDualPosition(t *testing.T) {
	s, _ := newTestServer(t)
	base := "/api/v1/signature-positions/" + registry.FormLiability

	dual := setPositionRequest{
		Client: &signature.Geometry{X: 30, Y: 640, Width: 140, Height: 40},
		Staff:  &signature.Geometry{X: 300, Y: 640, Width: 140, Height: 40},
	}
	w := doJSON(t, s, http.MethodPut, base, dual)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodGet, base+"/dual", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got signature.DualGeometry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, *dual.Client, got.Client)
	assert.Equal(t, *dual.Staff, got.Staff)
}

func TestSetPositionValidation(t *testing.T) {
	s, _ := newTestServer(t)
	base := "/api/v1/signature-positions/" + registry.FormClearanceCertificate

	t.Run("zero size rejected", func(t *testing.T) {
		w := doJSON(t, s, http.MethodPut, base, signature.Geometry{X: 10, Y: 10})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("one dual role rejected", func(t *testing.T) {
		w := doJSON(t, s, http.MethodPut, base, setPositionRequest{
			Client: &signature.Geometry{X: 10, Y: 10, Width: 100, Height: 30},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDualPositionNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/api/v1/signature-positions/"+registry.FormSiteInspection+"/dual", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
