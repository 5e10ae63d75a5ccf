package persistence

import (
	"context"
	"fmt"

	"github.com/erp/salesreport/internal/domain/sales"
	"github.com/erp/salesreport/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultBatchSize is the number of rows per INSERT statement
const DefaultBatchSize = 500

// SalesRowRepository stores report rows
type SalesRowRepository struct {
	db        *gorm.DB
	batchSize int
}

// NewSalesRowRepository creates a new sales row repository
func NewSalesRowRepository(db *gorm.DB) *SalesRowRepository {
	return &SalesRowRepository{db: db, batchSize: DefaultBatchSize}
}

// ReplaceWindow deletes the stored rows whose transaction date falls in
// window and inserts rows in their place, tagged with runID. Both happen in
// one transaction. It returns the number of rows deleted.
func (r *SalesRowRepository) ReplaceWindow(ctx context.Context, runID uuid.UUID, window sales.Window, rows []sales.Row) (int64, error) {
	if err := window.Validate(); err != nil {
		return 0, err
	}

	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := inWindow(tx, window).Delete(&models.SalesRowModel{})
		if res.Error != nil {
			return fmt.Errorf("delete window rows: %w", res.Error)
		}
		deleted = res.RowsAffected

		if len(rows) == 0 {
			return nil
		}
		batch := make([]*models.SalesRowModel, len(rows))
		for i := range rows {
			batch[i] = models.SalesRowModelFromDomain(runID, i, rows[i])
		}
		if err := tx.CreateInBatches(batch, r.batchSize).Error; err != nil {
			return fmt.Errorf("insert rows: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// FindByWindow returns the stored rows of window in report order
func (r *SalesRowRepository) FindByWindow(ctx context.Context, window sales.Window) ([]sales.Row, error) {
	var found []models.SalesRowModel
	err := inWindow(r.db.WithContext(ctx), window).
		Order("transaction_date ASC").
		Order("position ASC").
		Find(&found).Error
	if err != nil {
		return nil, err
	}

	rows := make([]sales.Row, len(found))
	for i := range found {
		rows[i] = found[i].ToDomain()
	}
	return rows, nil
}

// CountByRun returns the number of rows written by runID
func (r *SalesRowRepository) CountByRun(ctx context.Context, runID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SalesRowModel{}).
		Where("run_id = ?", runID).
		Count(&count).Error
	return count, err
}

func inWindow(db *gorm.DB, window sales.Window) *gorm.DB {
	return db.Where("transaction_date >= ? AND transaction_date < ?",
		window.StartTimestamp(), window.EndTimestamp())
}
