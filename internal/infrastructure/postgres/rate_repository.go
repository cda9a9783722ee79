package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/materials-store-api/internal/domain/entity"
	"github.com/oksasatya/materials-store-api/internal/domain/repository"
)

type RateRepository struct {
	pool *pgxpool.Pool
}

func NewRateRepository(pool *pgxpool.Pool) *RateRepository {
	return &RateRepository{pool: pool}
}

const rateColumns = `id::text, material, category, unit, price::float8, currency, rate_date, COALESCE(updated_by, ''), created_at, updated_at`

// Materials are matched case-insensitively everywhere: "Cement" and "cement" are one series.
const (
	upsertRateSQL = `
		INSERT INTO material_rates (material, category, unit, price, currency, rate_date, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
		ON CONFLICT ((lower(material)), rate_date) DO UPDATE SET
			material   = EXCLUDED.material,
			category   = EXCLUDED.category,
			unit       = EXCLUDED.unit,
			price      = EXCLUDED.price,
			currency   = EXCLUDED.currency,
			updated_by = EXCLUDED.updated_by,
			updated_at = now()
		RETURNING id::text, created_at, updated_at`

	latestRatesSQL = `
		WITH ranked AS (
			SELECT *, row_number() OVER (PARTITION BY lower(material) ORDER BY rate_date DESC) AS rn
			FROM material_rates
		)
		SELECT cur.id::text, cur.material, cur.category, cur.unit, cur.price::float8, cur.currency,
		       cur.rate_date, COALESCE(cur.updated_by, ''), cur.created_at, cur.updated_at,
		       prev.price::float8
		FROM ranked cur
		LEFT JOIN ranked prev ON lower(prev.material) = lower(cur.material) AND prev.rn = 2
		WHERE cur.rn = 1
		ORDER BY cur.category, cur.material`

	// the second branch adds the newest row before the window so the oldest row in it has a baseline
	rateHistorySQL = `
		(SELECT ` + rateColumns + `
		 FROM material_rates
		 WHERE lower(material) = lower($1) AND rate_date >= $2)
		UNION ALL
		(SELECT ` + rateColumns + `
		 FROM material_rates
		 WHERE lower(material) = lower($1) AND rate_date < $2
		 ORDER BY rate_date DESC
		 LIMIT 1)
		ORDER BY rate_date DESC`
)

func (r *RateRepository) Upsert(ctx context.Context, rate *entity.MaterialRate) error {
	row := r.pool.QueryRow(ctx, upsertRateSQL,
		rate.Material, rate.Category, rate.Unit, rate.Price, rate.Currency, rate.RateDate, rate.UpdatedBy)

	if err := row.Scan(&rate.ID, &rate.CreatedAt, &rate.UpdatedAt); err != nil {
		return fmt.Errorf("upsert rate: %w", err)
	}
	return nil
}

// Latest pairs each material's newest row with its second newest.
func (r *RateRepository) Latest(ctx context.Context) ([]entity.RateQuote, error) {
	rows, err := r.pool.Query(ctx, latestRatesSQL)
	if err != nil {
		return nil, fmt.Errorf("query latest rates: %w", err)
	}
	defer rows.Close()

	var out []entity.RateQuote
	for rows.Next() {
		var (
			m    entity.MaterialRate
			prev *float64
		)
		if err := rows.Scan(&m.ID, &m.Material, &m.Category, &m.Unit, &m.Price, &m.Currency,
			&m.RateDate, &m.UpdatedBy, &m.CreatedAt, &m.UpdatedAt, &prev); err != nil {
			return nil, err
		}
		out = append(out, entity.NewRateQuote(m, prev))
	}
	return out, rows.Err()
}

// History returns the rows on or after since, newest first, plus the newest row before since when one exists.
func (r *RateRepository) History(ctx context.Context, material string, since time.Time) ([]entity.MaterialRate, error) {
	rows, err := r.pool.Query(ctx, rateHistorySQL, material, since)
	if err != nil {
		return nil, fmt.Errorf("query rate history: %w", err)
	}
	defer rows.Close()

	var out []entity.MaterialRate
	for rows.Next() {
		var m entity.MaterialRate
		if err := rows.Scan(&m.ID, &m.Material, &m.Category, &m.Unit, &m.Price, &m.Currency,
			&m.RateDate, &m.UpdatedBy, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *RateRepository) Delete(ctx context.Context, id string) error {
	var deleted string
	err := r.pool.QueryRow(ctx, `DELETE FROM material_rates WHERE id::text = $1 RETURNING id::text`, id).Scan(&deleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}

var _ repository.RateRepository = (*RateRepository)(nil)
