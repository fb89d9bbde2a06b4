package sigstore

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fieldserve/certfill/internal/registry"
	"github.com/fieldserve/certfill/internal/signature"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(nil, zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestSeededDefaults(t *testing.T) {
	s := newTestStore(t)

	g := s.Get(registry.FormClearanceCertificate)
	assert.NoError(t, g.Validate())

	dual, ok := s.GetDual(registry.FormLiability)
	require.True(t, ok)
	assert.NoError(t, dual.Validate())

	_, ok = s.GetDual(registry.FormClearanceCertificate)
	assert.False(t, ok)
}

func TestGetUnknownFormTypeFallsBack(t *testing.T) {
	s := newTestStore(t)
	g := s.Get("never-registered")
	assert.NoError(t, g.Validate())
}

func TestSetSingleReplacesEntry(t *testing.T) {
	s := newTestStore(t)
	g := signature.Geometry{X: 5, Y: 10, Width: 100, Height: 40, Opacity: 0.5}

	require.NoError(t, s.SetSingle(registry.FormClearanceCertificate, g))
	assert.Equal(t, g, s.Get(registry.FormClearanceCertificate))
}

func TestSetDualReplacesSingleEntry(t *testing.T) {
	s := newTestStore(t)
	d := signature.DualGeometry{
		Client: signature.Geometry{X: 1, Y: 2, Width: 90, Height: 30},
		Staff:  signature.Geometry{X: 200, Y: 2, Width: 90, Height: 30},
	}

	require.NoError(t, s.SetDual(registry.FormClearanceCertificate, d))

	got, ok := s.GetDual(registry.FormClearanceCertificate)
	require.True(t, ok)
	assert.Equal(t, d, got)
	// No partial merge: the single entry is gone, Get resolves to client.
	assert.Equal(t, d.Client, s.Get(registry.FormClearanceCertificate))
}

func TestSetRejectsInvalidGeometryAndKeepsPrior(t *testing.T) {
	s := newTestStore(t)
	prior, ok := s.GetDual(registry.FormLiability)
	require.True(t, ok)

	bad := signature.DualGeometry{
		Client: signature.Geometry{X: 1, Y: 2, Width: 0, Height: 5},
		Staff:  signature.Geometry{X: 1, Y: 2, Width: 10, Height: 5},
	}
	err := s.SetDual(registry.FormLiability, bad)

	var verr *signature.ValidationError
	require.True(t, errors.As(err, &verr))

	after, ok := s.GetDual(registry.FormLiability)
	require.True(t, ok)
	assert.Equal(t, prior, after, "a rejected update must leave the store unchanged")
}

func TestResetRestoresSeed(t *testing.T) {
	s := newTestStore(t)
	seed := s.Get(registry.FormClearanceCertificate)

	require.NoError(t, s.SetSingle(registry.FormClearanceCertificate,
		signature.Geometry{X: 9, Y: 9, Width: 9, Height: 9, Opacity: 0.9}))
	require.NoError(t, s.Reset(registry.FormClearanceCertificate))

	assert.Equal(t, seed, s.Get(registry.FormClearanceCertificate))
}

func TestResetUnknownFormTypeDropsEntry(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SetSingle("ad-hoc-form", signature.Geometry{Width: 10, Height: 10}))
	require.NoError(t, s.Reset("ad-hoc-form"))
	assert.Equal(t, fallbackGeometry, s.Get("ad-hoc-form"))
}

type recordingPersistence struct {
	saved   map[string]Position
	deleted []string
	loaded  map[string]Position
	saveErr error
}

func (p *recordingPersistence) LoadAll() (map[string]Position, error) { return p.loaded, nil }
func (p *recordingPersistence) Save(ft string, pos Position) error {
	if p.saveErr != nil {
		return p.saveErr
	}
	if p.saved == nil {
		p.saved = map[string]Position{}
	}
	p.saved[ft] = pos
	return nil
}
func (p *recordingPersistence) Delete(ft string) error {
	p.deleted = append(p.deleted, ft)
	return nil
}

func TestPersistenceWriteThrough(t *testing.T) {
	persist := &recordingPersistence{}
	s, err := New(persist, zap.NewNop())
	require.NoError(t, err)

	g := signature.Geometry{X: 1, Y: 1, Width: 50, Height: 20}
	require.NoError(t, s.SetSingle(registry.FormAirMonitoring, g))
	require.Contains(t, persist.saved, registry.FormAirMonitoring)

	require.NoError(t, s.Reset(registry.FormAirMonitoring))
	assert.Contains(t, persist.deleted, registry.FormAirMonitoring)
}

func TestPersistenceOverridesLoadOverSeeds(t *testing.T) {
	override := signature.Geometry{X: 77, Y: 88, Width: 99, Height: 11, Opacity: 0.3}
	persist := &recordingPersistence{
		loaded: map[string]Position{
			registry.FormClearanceCertificate: {Single: &override},
		},
	}

	s, err := New(persist, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, override, s.Get(registry.FormClearanceCertificate))
}

func TestPersistenceFailureLeavesStoreUnchanged(t *testing.T) {
	persist := &recordingPersistence{saveErr: errors.New("db down")}
	s, err := New(persist, zap.NewNop())
	require.NoError(t, err)

	prior := s.Get(registry.FormClearanceCertificate)
	err = s.SetSingle(registry.FormClearanceCertificate, signature.Geometry{Width: 1, Height: 1})
	require.Error(t, err)
	assert.Equal(t, prior, s.Get(registry.FormClearanceCertificate))
}

func TestConcurrentSetAndGet(t *testing.T) {
	s := newTestStore(t)
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			g := signature.Geometry{X: float64(i), Y: 1, Width: 10, Height: 10, Opacity: 0.5}
			_ = s.SetSingle(registry.FormSiteInspection, g)
		}(i)
		go func() {
			defer wg.Done()
			g := s.Get(registry.FormSiteInspection)
			assert.NoError(t, g.Validate(), "readers must never observe a torn geometry")
		}()
	}
	wg.Wait()
}
