package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/materials-store-api/internal/domain/entity"
	repo "github.com/oksasatya/materials-store-api/internal/domain/repository"
	"github.com/oksasatya/materials-store-api/pkg/helpers"
)

const (
	ratesCacheKey = "rates:today"
	ratesCacheTTL = 5 * time.Minute

	defaultHistoryDays = 30
	maxHistoryDays     = 365
	defaultCurrency    = "INR"
)

type RateService struct {
	Deps
}

func NewRateService(d Deps) *RateService {
	return &RateService{Deps: d}
}

type RateInput struct {
	Material string
	Category string
	Unit     string
	Price    float64
	Currency string
	RateDate string
}

// Today returns the newest rate per material with its change against the previous
// published day. Results are cached in Redis for five minutes.
func (s *RateService) Today(ctx context.Context) ([]RateView, error) {
	if s.Redis != nil {
		var cached []RateView
		ok, err := helpers.RedisGetJSON(ctx, s.Redis, ratesCacheKey, &cached)
		if err != nil {
			s.Logger.WithError(err).Warn("rates cache read failed")
		}
		if ok {
			return cached, nil
		}
	}

	quotes, err := s.Rates.Latest(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RateView, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, toRateView(q))
	}

	if s.Redis != nil {
		if err := helpers.RedisSetJSON(ctx, s.Redis, ratesCacheKey, out, ratesCacheTTL); err != nil {
			s.Logger.WithError(err).Warn("rates cache write failed")
		}
	}
	return out, nil
}

func (s *RateService) History(ctx context.Context, material string, days int) ([]RateView, error) {
	if days <= 0 {
		days = defaultHistoryDays
	}
	if days > maxHistoryDays {
		days = maxHistoryDays
	}
	since := s.now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -days)
	rates, err := s.Rates.History(ctx, normalizeMaterial(material), since)
	if err != nil {
		return nil, err
	}
	// rows are newest first; each row is compared with the one after it, and the
	// baseline row from before the window is only used for comparison
	out := make([]RateView, 0, len(rates))
	for i, r := range rates {
		if r.RateDate.Before(since) {
			break
		}
		var prev *float64
		if i+1 < len(rates) {
			p := rates[i+1].Price
			prev = &p
		}
		out = append(out, toRateView(entity.NewRateQuote(r, prev)))
	}
	return out, nil
}

// normalizeMaterial trims and collapses inner whitespace. Case is kept for display;
// storage compares materials case-insensitively.
func normalizeMaterial(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Upsert publishes a rate for (material, date). A missing date means today (UTC).
func (s *RateService) Upsert(ctx context.Context, in RateInput, adminID string) (*RateView, error) {
	date := s.now().UTC().Truncate(24 * time.Hour)
	if v := strings.TrimSpace(in.RateDate); v != "" {
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			return nil, ErrInvalidRateDate
		}
		date = d
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	r := &entity.MaterialRate{
		Material:  normalizeMaterial(in.Material),
		Category:  strings.TrimSpace(in.Category),
		Unit:      strings.TrimSpace(in.Unit),
		Price:     in.Price,
		Currency:  currency,
		RateDate:  date,
		UpdatedBy: adminID,
	}
	if err := s.Rates.Upsert(ctx, r); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	s.Logger.WithField("material", r.Material).WithField("rate_date", date.Format(dateLayout)).Info("rate published")
	v := toRateView(entity.NewRateQuote(*r, nil))
	return &v, nil
}

func (s *RateService) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrRateNotFound
	}
	if err := s.Rates.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrRateNotFound
		}
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *RateService) invalidate(ctx context.Context) {
	if s.Redis == nil {
		return
	}
	if err := helpers.RedisDel(ctx, s.Redis, ratesCacheKey); err != nil {
		s.Logger.WithError(err).Warn("rates cache invalidate failed")
	}
}
