package repository

import (
	"context"
	"time"

	"github.com/oksasatya/materials-store-api/internal/domain/entity"
)

type RateRepository interface {
	// Upsert inserts or replaces the rate for (material, rate_date) and fills ID and timestamps.
	Upsert(ctx context.Context, r *entity.MaterialRate) error
	// Latest returns the newest rate of every material, each paired with the rate
	// from that material's previous published day when one exists.
	Latest(ctx context.Context) ([]entity.RateQuote, error)
	// History returns a material's rates on or after since, newest first, followed by the
	// newest earlier rate when one exists. Materials match case-insensitively.
	History(ctx context.Context, material string, since time.Time) ([]entity.MaterialRate, error)
	Delete(ctx context.Context, id string) error
}

type AuditRepository interface {
	Insert(ctx context.Context, l *entity.AuditLog) error
}
