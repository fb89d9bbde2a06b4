package sigstore

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// positionRow is the durable form of one override: form type to geometry
// JSON. The in-memory store stays the read path; rows are only consulted at
// startup and written through on set/reset.
type positionRow struct {
	FormType  string `gorm:"primaryKey;column:form_type"`
	Geometry  string `gorm:"column:geometry;type:text"`
	UpdatedAt time.Time
}

func (positionRow) TableName() string { return "signature_positions" }

// GormPersistence stores signature position overrides in a relational table.
type GormPersistence struct {
	db *gorm.DB
}

// NewGormPersistence migrates the positions table and returns the store
// backing.
func NewGormPersistence(db *gorm.DB) (*GormPersistence, error) {
	if err := db.AutoMigrate(&positionRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate signature_positions: %w", err)
	}
	return &GormPersistence{db: db}, nil
}

// LoadAll returns every stored override keyed by form type. Rows that no
// longer unmarshal are skipped rather than failing startup.
func (p *GormPersistence) LoadAll() (map[string]Position, error) {
	var rows []positionRow
	if err := p.db.Find(&rows).Error; err != nil {
		return nil, err
	}

	positions := make(map[string]Position, len(rows))
	for _, row := range rows {
		var pos Position
		if err := json.Unmarshal([]byte(row.Geometry), &pos); err != nil {
			continue
		}
		positions[row.FormType] = pos
	}
	return positions, nil
}

// Save upserts the override row for formType.
func (p *GormPersistence) Save(formType string, pos Position) error {
	payload, err := json.Marshal(pos)
	if err != nil {
		return err
	}
	row := positionRow{FormType: formType, Geometry: string(payload), UpdatedAt: time.Now()}
	return p.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

// Delete removes the override row for formType.
func (p *GormPersistence) Delete(formType string) error {
	return p.db.Delete(&positionRow{}, "form_type = ?", formType).Error
}
