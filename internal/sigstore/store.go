// Package sigstore is the process-wide registry of signature placement
// geometry per form type. It is the only shared mutable state in the filling
// core: reads happen on every fill, writes come from the admin positioning
// tool. Updates replace the prior entry wholesale and are published under a
// lock so readers never observe a half-written geometry.
package sigstore

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/fieldserve/certfill/internal/registry"
	"github.com/fieldserve/certfill/internal/signature"
)

// Position is one stored entry: a single shared rectangle or a dual
// client/staff pair. Exactly one of the two is set.
type Position struct {
	Single *signature.Geometry     `json:"single,omitempty"`
	Dual   *signature.DualGeometry `json:"dual,omitempty"`
}

// Persistence is the durable backing of runtime overrides. Nil persistence
// keeps the store memory-only.
type Persistence interface {
	LoadAll() (map[string]Position, error)
	Save(formType string, pos Position) error
	Delete(formType string) error
}

// fallback placement for form types with no seeded entry.
var fallbackGeometry = signature.Geometry{X: 40, Y: 650, Width: 180, Height: 60, Opacity: signature.DefaultOpacity}

// Store holds placement geometry keyed by form type.
type Store struct {
	mu        sync.RWMutex
	positions map[string]Position
	seeds     map[string]Position
	persist   Persistence
	logger    *zap.Logger
}

// New returns a store seeded with the built-in default entry per known form
// type, with durable overrides loaded over the seeds when persistence is
// supplied.
func New(persist Persistence, logger *zap.Logger) (*Store, error) {
	s := &Store{
		positions: make(map[string]Position),
		seeds:     seedPositions(),
		persist:   persist,
		logger:    logger,
	}
	for ft, pos := range s.seeds {
		s.positions[ft] = pos
	}

	if persist != nil {
		overrides, err := persist.LoadAll()
		if err != nil {
			return nil, fmt.Errorf("failed to load signature positions: %w", err)
		}
		for ft, pos := range overrides {
			s.positions[ft] = pos
		}
		logger.Info("loaded signature position overrides", zap.Int("count", len(overrides)))
	}
	return s, nil
}

// seedPositions defines the built-in defaults. Dual-signature form types get
// side-by-side client/staff rectangles; everything else a single shared one.
func seedPositions() map[string]Position {
	single := func(g signature.Geometry) Position { return Position{Single: &g} }
	return map[string]Position{
		registry.FormClearanceCertificate: single(signature.Geometry{X: 40, Y: 660, Width: 180, Height: 55, Opacity: signature.DefaultOpacity}),
		registry.FormLiability: {
			Dual: &signature.DualGeometry{
				Client: signature.Geometry{X: 40, Y: 680, Width: 160, Height: 50, Opacity: signature.DefaultOpacity},
				Staff:  signature.Geometry{X: 330, Y: 680, Width: 160, Height: 50, Opacity: signature.DefaultOpacity},
			},
		},
		registry.FormAirMonitoring:  single(signature.Geometry{X: 60, Y: 640, Width: 170, Height: 50, Opacity: signature.DefaultOpacity}),
		registry.FormSiteInspection: single(signature.Geometry{X: 40, Y: 700, Width: 180, Height: 50, Opacity: signature.DefaultOpacity}),
		registry.FormIncidentReport: {
			Dual: &signature.DualGeometry{
				Client: signature.Geometry{X: 40, Y: 690, Width: 160, Height: 50, Opacity: signature.DefaultOpacity},
				Staff:  signature.Geometry{X: 330, Y: 690, Width: 160, Height: 50, Opacity: signature.DefaultOpacity},
			},
		},
	}
}

// Get returns the single placement rectangle for formType. Dual entries
// resolve to their client rectangle; unknown form types get the fallback.
func (s *Store) Get(formType string) signature.Geometry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, ok := s.positions[formType]
	if !ok {
		return fallbackGeometry
	}
	if pos.Dual != nil {
		return pos.Dual.Client
	}
	return *pos.Single
}

// GetDual returns the dual geometry for formType, if configured.
func (s *Store) GetDual(formType string) (signature.DualGeometry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, ok := s.positions[formType]
	if !ok || pos.Dual == nil {
		return signature.DualGeometry{}, false
	}
	return *pos.Dual, true
}

// SetSingle replaces formType's entry with a single shared rectangle.
func (s *Store) SetSingle(formType string, g signature.Geometry) error {
	if err := g.Validate(); err != nil {
		return err
	}
	return s.set(formType, Position{Single: &g})
}

// SetDual replaces formType's entry with a client/staff pair.
func (s *Store) SetDual(formType string, d signature.DualGeometry) error {
	if err := d.Validate(); err != nil {
		return err
	}
	return s.set(formType, Position{Dual: &d})
}

// set validates nothing itself; callers have. The new value is fully built
// before publication and fully replaces the prior entry.
func (s *Store) set(formType string, pos Position) error {
	if s.persist != nil {
		if err := s.persist.Save(formType, pos); err != nil {
			return fmt.Errorf("failed to persist signature position: %w", err)
		}
	}

	s.mu.Lock()
	s.positions[formType] = pos
	s.mu.Unlock()

	s.logger.Info("signature position updated",
		zap.String("form_type", formType),
		zap.Bool("dual", pos.Dual != nil))
	return nil
}

// Reset restores formType's built-in default and drops any durable override.
func (s *Store) Reset(formType string) error {
	if s.persist != nil {
		if err := s.persist.Delete(formType); err != nil {
			return fmt.Errorf("failed to delete signature position override: %w", err)
		}
	}

	s.mu.Lock()
	if seed, ok := s.seeds[formType]; ok {
		s.positions[formType] = seed
	} else {
		delete(s.positions, formType)
	}
	s.mu.Unlock()

	s.logger.Info("signature position reset", zap.String("form_type", formType))
	return nil
}
