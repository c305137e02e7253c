package persist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/router-for-me/FRPPanel/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultSnapshotName is the row key used when none is configured.
const DefaultSnapshotName = "default"

// GormBackend persists snapshot documents as JSON rows via GORM.
type GormBackend struct {
	db   *gorm.DB
	name string

	mu sync.Mutex
}

// NewGormBackend constructs a GormBackend storing its snapshot under name.
func NewGormBackend(db *gorm.DB, name string) *GormBackend {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultSnapshotName
	}
	return &GormBackend{db: db, name: name}
}

// Load reads the snapshot row.
func (b *GormBackend) Load(ctx context.Context) ([]byte, error) {
	if b == nil || b.db == nil {
		return nil, fmt.Errorf("gorm backend: not initialized")
	}
	var row models.SnapshotRecord
	errFind := b.db.WithContext(ctx).Where("name = ?", b.name).First(&row).Error
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, ErrNoSnapshot
	}
	if errFind != nil {
		return nil, fmt.Errorf("gorm backend: load: %w", errFind)
	}
	if len(row.Document) == 0 {
		return nil, ErrNoSnapshot
	}
	return []byte(row.Document), nil
}

// Save upserts the snapshot row.
func (b *GormBackend) Save(ctx context.Context, data []byte) error {
	if b == nil || b.db == nil {
		return fmt.Errorf("gorm backend: not initialized")
	}
	if len(data) == 0 {
		return fmt.Errorf("gorm backend: empty document")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now().UTC()
	record := models.SnapshotRecord{
		Name:      b.name,
		Version:   DocumentVersion,
		Document:  datatypes.JSON(data),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"version", "document", "updated_at"}),
	}).Create(&record).Error; err != nil {
		return fmt.Errorf("gorm backend: upsert: %w", err)
	}
	return nil
}

// Quarantine moves the snapshot row to a timestamped name so a fresh one can be written.
func (b *GormBackend) Quarantine(ctx context.Context) (string, error) {
	if b == nil || b.db == nil {
		return "", fmt.Errorf("gorm backend: not initialized")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	target := fmt.Sprintf("%s.corrupt-%d", b.name, time.Now().Unix())
	res := b.db.WithContext(ctx).Model(&models.SnapshotRecord{}).
		Where("name = ?", b.name).
		Update("name", target)
	if res.Error != nil {
		return "", fmt.Errorf("gorm backend: quarantine: %w", res.Error)
	}
	return target, nil
}
