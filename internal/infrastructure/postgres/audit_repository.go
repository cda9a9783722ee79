package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/materials-store-api/internal/domain/entity"
	"github.com/oksasatya/materials-store-api/internal/domain/repository"
)

type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) Insert(ctx context.Context, l *entity.AuditLog) error {
	meta := l.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO audit_logs (user_id, identifier, action, ip, user_agent, metadata)
		VALUES (NULLIF($1, ''), NULLIF($2, ''), $3, $4, $5, $6::jsonb)
		RETURNING id, created_at
	`, l.UserID, l.Identifier, l.Action, l.IP, l.UserAgent, string(raw)).Scan(&l.ID, &l.CreatedAt)
}

var _ repository.AuditRepository = (*AuditRepository)(nil)
