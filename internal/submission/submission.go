// Package submission defines the wizard form submission record and its
// store. The filling core only reads FormType, Data and the two signature
// payloads; everything else is carried for the surrounding job tooling.
package submission

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Submission is one captured wizard form. Data values may be strings,
// numbers, booleans, string arrays or nested objects; signatures are data
// URIs, bare base64 payloads, or remote references.
type Submission struct {
	ID             uuid.UUID      `json:"id"`
	JobID          string         `json:"job_id"`
	FormType       string         `json:"form_type"`
	Data           map[string]any `json:"data"`
	Signature      string         `json:"signature,omitempty"`
	SignatureStaff string         `json:"signature_staff,omitempty"`
	SubmittedBy    string         `json:"submitted_by"`
	SubmittedAt    time.Time      `json:"submitted_at"`
}

// NotFoundError reports an unknown submission id.
type NotFoundError struct {
	ID uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("submission %s not found", e.ID)
}

// Store provides submissions by id and job.
type Store interface {
	Get(id uuid.UUID) (*Submission, error)
	ListByJob(jobID string) ([]*Submission, error)
	Put(sub *Submission) error
}

// MemoryStore is an in-process Store, used in tests and single-node
// deployments without a database.
type MemoryStore struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]*Submission
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subs: make(map[uuid.UUID]*Submission)}
}

// Get returns the submission with the given id.
func (s *MemoryStore) Get(id uuid.UUID) (*Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return sub, nil
}

// ListByJob returns the job's submissions ordered by submission time.
func (s *MemoryStore) ListByJob(jobID string) ([]*Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var subs []*Submission
	for _, sub := range s.subs {
		if sub.JobID == jobID {
			subs = append(subs, sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool {
		return subs[i].SubmittedAt.Before(subs[j].SubmittedAt)
	})
	return subs, nil
}

// Put stores the submission, assigning an id when missing.
func (s *MemoryStore) Put(sub *Submission) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	s.mu.Lock()
	s.subs[sub.ID] = sub
	s.mu.Unlock()
	return nil
}
