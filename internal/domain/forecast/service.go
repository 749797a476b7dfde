package forecast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ErrBadDate marks an unparseable date parameter.
var ErrBadDate = errors.New("invalid date")

// horizon is the number of days returned when no explicit date is asked for.
const horizon = 7

// Service refits the weekday profile from current history on every request.
// History volumes are small enough that caching the fit would only add a
// staleness problem.
type Service struct {
	history HistoryRepository
	logger  zerolog.Logger
	now     func() time.Time
}

func NewService(history HistoryRepository, logger zerolog.Logger) *Service {
	return &Service{history: history, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Forecast predicts expected volume. With a date it answers for that single
// day; without one it answers for the next seven days starting today, where
// "today" is anchored in loc so a caller west of UTC is not handed a horizon
// that starts on their tomorrow. A nil loc means UTC.
func (s *Service) Forecast(ctx context.Context, date string, loc *time.Location) ([]Prediction, error) {
	history, err := s.history.DailyCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load visit history: %w", err)
	}
	predictor := Fit(history)

	if date != "" {
		day, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, fmt.Errorf("%w %q, expected YYYY-MM-DD", ErrBadDate, date)
		}
		return []Prediction{{
			Date:              day.Format("2006-01-02"),
			PredictedBusyness: predictor.Predict(day),
		}}, nil
	}

	if loc == nil {
		loc = time.UTC
	}
	today := s.now().In(loc)
	predictions := make([]Prediction, 0, horizon)
	for i := 0; i < horizon; i++ {
		day := today.AddDate(0, 0, i)
		predictions = append(predictions, Prediction{
			Date:              day.Format("2006-01-02"),
			PredictedBusyness: predictor.Predict(day),
		})
	}
	return predictions, nil
}
