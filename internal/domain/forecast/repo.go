package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/edtriage/edtriage/internal/domain/patient"
)

// HistoryRepository provides per-day visit counts for fitting.
type HistoryRepository interface {
	DailyCounts(ctx context.Context) ([]DailyCount, error)
}

// HistoryPG aggregates visit history directly in the database.
type HistoryPG struct {
	pool *pgxpool.Pool
}

func NewHistoryPG(pool *pgxpool.Pool) *HistoryPG {
	return &HistoryPG{pool: pool}
}

func (r *HistoryPG) DailyCounts(ctx context.Context) ([]DailyCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT date_of_visit, COUNT(*)
		FROM patients
		GROUP BY date_of_visit
		ORDER BY date_of_visit`)
	if err != nil {
		return nil, fmt.Errorf("query visit history: %w", err)
	}
	defer rows.Close()

	var history []DailyCount
	for rows.Next() {
		var day string
		var count int
		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("scan visit history: %w", err)
		}
		date, err := time.Parse("2006-01-02", day)
		if err != nil {
			// Legacy rows may carry unparseable dates; they cannot be
			// placed on a weekday, so they drop out of the profile.
			continue
		}
		history = append(history, DailyCount{Date: date, Count: count})
	}
	return history, rows.Err()
}

// HistoryFromStore derives visit counts by scanning the patient store. Used
// when the service runs without a database.
type HistoryFromStore struct {
	repo   patient.Repository
	logger zerolog.Logger
}

func NewHistoryFromStore(repo patient.Repository, logger zerolog.Logger) *HistoryFromStore {
	return &HistoryFromStore{repo: repo, logger: logger}
}

func (r *HistoryFromStore) DailyCounts(ctx context.Context) ([]DailyCount, error) {
	records, err := r.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	byDay := map[string]int{}
	for _, rec := range records {
		byDay[rec.DateOfVisit]++
	}

	history := make([]DailyCount, 0, len(byDay))
	for day, count := range byDay {
		date, err := time.Parse("2006-01-02", day)
		if err != nil {
			r.logger.Warn().Str("date", day).Msg("skipping unparseable visit date")
			continue
		}
		history = append(history, DailyCount{Date: date, Count: count})
	}
	return history, nil
}
