package persistence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/erp/salesreport/internal/application/report"
	"github.com/erp/salesreport/internal/domain/sales"
	"github.com/erp/salesreport/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
)

// setupSalesRowTestDB opens an in-memory SQLite database. A single
// connection keeps every statement on the same in-memory database.
func setupSalesRowTestDB(t *testing.T) *Database {
	db, err := Open(sqlite.Open(":memory:"), &config.DatabaseConfig{MaxOpenConns: 1, LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func day(d int) sales.Window {
	loc := time.FixedZone("BRT", -3*60*60)
	start := time.Date(2024, 5, d, 0, 0, 0, 0, loc)
	return sales.Window{Start: start, End: start.AddDate(0, 0, 1)}
}

func rowAt(id, createdAt string) sales.Row {
	return sales.Row{
		TransactionID:   id,
		TransactionDate: createdAt,
		Status:          "Completo",
		ProductName:     "Camiseta",
		ProductRevenue:  decimal.RequireFromString("89.90"),
		City:            "São Paulo",
		NetTotal:        decimal.RequireFromString("140"),
		GrandTotal:      decimal.RequireFromString("150.5"),
		Categories:      "Apparel, Shoes",
		Saleswoman:      "Maria",
	}
}

func TestSalesRowRepository_ReplaceWindow(t *testing.T) {
	db := setupSalesRowTestDB(t)
	repo := NewSalesRowRepository(db.DB)
	ctx := context.Background()

	firstRun := uuid.New()
	deleted, err := repo.ReplaceWindow(ctx, firstRun, day(1), []sales.Row{
		rowAt("1", "2024-05-01 09:00:00"),
		rowAt("2", "2024-05-01 18:30:00"),
	})
	require.NoError(t, err)
	assert.Zero(t, deleted)

	_, err = repo.ReplaceWindow(ctx, uuid.New(), day(2), []sales.Row{
		rowAt("3", "2024-05-02 10:00:00"),
	})
	require.NoError(t, err)

	t.Run("reads the rows back in report order", func(t *testing.T) {
		rows, err := repo.FindByWindow(ctx, day(1))
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "1", rows[0].TransactionID)
		assert.Equal(t, "2", rows[1].TransactionID)
		assert.Equal(t, "São Paulo", rows[0].City)
		assert.Equal(t, "Apparel, Shoes", rows[0].Categories)
		assert.True(t, rows[0].ProductRevenue.Equal(decimal.RequireFromString("89.9")))
		assert.Equal(t, "150.50", sales.FormatMoney(rows[0].GrandTotal))
	})

	t.Run("rerun replaces only its own window", func(t *testing.T) {
		secondRun := uuid.New()
		deleted, err := repo.ReplaceWindow(ctx, secondRun, day(1), []sales.Row{
			rowAt("9", "2024-05-01 12:00:00"),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), deleted)

		rows, err := repo.FindByWindow(ctx, day(1))
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "9", rows[0].TransactionID)

		other, err := repo.FindByWindow(ctx, day(2))
		require.NoError(t, err)
		assert.Len(t, other, 1)

		count, err := repo.CountByRun(ctx, firstRun)
		require.NoError(t, err)
		assert.Zero(t, count)
		count, err = repo.CountByRun(ctx, secondRun)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("empty rows clear the window", func(t *testing.T) {
		deleted, err := repo.ReplaceWindow(ctx, uuid.New(), day(2), nil)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		rows, err := repo.FindByWindow(ctx, day(2))
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("invalid window", func(t *testing.T) {
		_, err := repo.ReplaceWindow(ctx, uuid.New(), sales.Window{}, nil)
		assert.ErrorIs(t, err, sales.ErrInvalidWindow)
	})
}

func TestSalesRowRepository_ReplaceWindowBatches(t *testing.T) {
	db := setupSalesRowTestDB(t)
	repo := NewSalesRowRepository(db.DB)
	repo.batchSize = 7
	ctx := context.Background()

	rows := make([]sales.Row, 30)
	for i := range rows {
		rows[i] = rowAt(fmt.Sprintf("%03d", i), "2024-05-03 08:00:00")
	}
	runID := uuid.New()
	_, err := repo.ReplaceWindow(ctx, runID, day(3), rows)
	require.NoError(t, err)

	stored, err := repo.FindByWindow(ctx, day(3))
	require.NoError(t, err)
	require.Len(t, stored, 30)
	for i := range stored {
		assert.Equal(t, fmt.Sprintf("%03d", i), stored[i].TransactionID, "equal dates keep their run order")
	}
}

func TestDatabaseSink_Write(t *testing.T) {
	db := setupSalesRowTestDB(t)
	sink := NewDatabaseSink(NewSalesRowRepository(db.DB), zaptest.NewLogger(t))
	assert.Equal(t, "postgres", sink.Name())

	rep := &report.Report{
		RunID:  uuid.New(),
		Window: day(4),
		Rows:   []sales.Row{rowAt("1", "2024-05-04 10:00:00")},
	}
	artifact, err := sink.Write(context.Background(), rep)
	require.NoError(t, err)
	assert.Equal(t, "postgres", artifact.Sink)
	assert.Equal(t, "sales_report_rows?run_id="+rep.RunID.String(), artifact.Location)

	count, err := NewSalesRowRepository(db.DB).CountByRun(context.Background(), rep.RunID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
