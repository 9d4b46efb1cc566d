package repository

import (
	"context"
	"fmt"
	"time"

	"backoffice/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type EntryTotalRow struct {
	EntryKind model.EntryKind     `gorm:"column:entry_kind"`
	Debits    decimal.NullDecimal `gorm:"column:debits"`
	Credits   decimal.NullDecimal `gorm:"column:credits"`
	Count     int64               `gorm:"column:entry_count"`
}

type ReportRepository interface {
	EntryTotals(ctx context.Context, accountID uuid.UUID, start, end time.Time) ([]EntryTotalRow, error)
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

// EntryTotals groups an account's postings in [start, end] by entry kind.
// Debits are reported as a negative sum, credits as a positive one.
func (r *reportRepository) EntryTotals(ctx context.Context, accountID uuid.UUID, start, end time.Time) ([]EntryTotalRow, error) {
	query := `
		SELECT
			e.entry_kind AS entry_kind,
			COALESCE(SUM(CASE WHEN e.signed_amount < 0 THEN e.signed_amount ELSE 0 END), 0) AS debits,
			COALESCE(SUM(CASE WHEN e.signed_amount > 0 THEN e.signed_amount ELSE 0 END), 0) AS credits,
			COUNT(*) AS entry_count
		FROM ledger_entries e
		WHERE e.account_id = ?
		  AND e.occurred_at >= ?
		  AND e.occurred_at <= ?
		GROUP BY e.entry_kind
		ORDER BY e.entry_kind
	`

	var rows []EntryTotalRow
	if err := GetDB(ctx, r.db).Raw(query, accountID, start, end).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query entry totals: %w", err)
	}

	return rows, nil
}
