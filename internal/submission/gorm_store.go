package submission

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// submissionRow is the relational form of a Submission; the free-form data
// map is stored as JSON text.
type submissionRow struct {
	ID             string `gorm:"primaryKey;column:id"`
	JobID          string `gorm:"column:job_id;index"`
	FormType       string `gorm:"column:form_type"`
	Data           string `gorm:"column:data;type:text"`
	Signature      string `gorm:"column:signature;type:text"`
	SignatureStaff string `gorm:"column:signature_staff;type:text"`
	SubmittedBy    string `gorm:"column:submitted_by"`
	SubmittedAt    time.Time
}

func (submissionRow) TableName() string { return "form_submissions" }

// GormStore persists submissions in a relational database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore migrates the submissions table and returns the store.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&submissionRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate form_submissions: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Get returns the submission with the given id.
func (s *GormStore) Get(id uuid.UUID) (*Submission, error) {
	var row submissionRow
	err := s.db.First(&row, "id = ?", id.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{ID: id}
	}
	if err != nil {
		return nil, err
	}
	return rowToSubmission(&row)
}

// ListByJob returns the job's submissions ordered by submission time.
func (s *GormStore) ListByJob(jobID string) ([]*Submission, error) {
	var rows []submissionRow
	if err := s.db.Where("job_id = ?", jobID).Order("submitted_at").Find(&rows).Error; err != nil {
		return nil, err
	}

	subs := make([]*Submission, 0, len(rows))
	for i := range rows {
		sub, err := rowToSubmission(&rows[i])
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// Put upserts the submission, assigning an id when missing.
func (s *GormStore) Put(sub *Submission) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	data, err := json.Marshal(sub.Data)
	if err != nil {
		return fmt.Errorf("failed to encode submission data: %w", err)
	}
	row := submissionRow{
		ID:             sub.ID.String(),
		JobID:          sub.JobID,
		FormType:       sub.FormType,
		Data:           string(data),
		Signature:      sub.Signature,
		SignatureStaff: sub.SignatureStaff,
		SubmittedBy:    sub.SubmittedBy,
		SubmittedAt:    sub.SubmittedAt,
	}
	return s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func rowToSubmission(row *submissionRow) (*Submission, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, fmt.Errorf("corrupt submission id %q: %w", row.ID, err)
	}
	var data map[string]any
	if row.Data != "" {
		if err := json.Unmarshal([]byte(row.Data), &data); err != nil {
			return nil, fmt.Errorf("corrupt submission data for %s: %w", row.ID, err)
		}
	}
	return &Submission{
		ID:             id,
		JobID:          row.JobID,
		FormType:       row.FormType,
		Data:           data,
		Signature:      row.Signature,
		SignatureStaff: row.SignatureStaff,
		SubmittedBy:    row.SubmittedBy,
		SubmittedAt:    row.SubmittedAt,
	}, nil
}
