package application

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/materials-store-api/config"
	"github.com/oksasatya/materials-store-api/internal/domain/entity"
	repo "github.com/oksasatya/materials-store-api/internal/domain/repository"
	"github.com/oksasatya/materials-store-api/pkg/helpers"
	"github.com/oksasatya/materials-store-api/pkg/mailer"
	"github.com/oksasatya/materials-store-api/pkg/metrics"
)

// Deps carries everything the services share. Users, JWT, Config and Logger are required;
// the rest may be nil and the matching feature degrades quietly.
type Deps struct {
	Config  *config.Config
	Logger  *logrus.Logger
	Users   repo.UserRepository
	Rates   repo.RateRepository
	Audit   repo.AuditRepository
	JWT     *helpers.JWTManager
	Redis   *redis.Client
	Mail    EmailQueue
	Index   UserIndex
	Storage ObjectStore
	Metrics *metrics.Metrics
	Now     func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// audit writes one audit row. Failures are logged and swallowed.
func (d *Deps) audit(ctx context.Context, action, userID, identifier string, client ClientInfo, meta map[string]any) {
	if d.Audit == nil {
		return
	}
	err := d.Audit.Insert(ctx, &entity.AuditLog{
		UserID:     userID,
		Identifier: identifier,
		Action:     action,
		IP:         client.IP,
		UserAgent:  client.UserAgent,
		Metadata:   meta,
	})
	if err != nil {
		d.Logger.WithError(err).WithField("action", action).Warn("audit insert failed")
	}
}

// enqueue hands an email job to the queue. Sending is best effort and never fails the caller.
func (d *Deps) enqueue(ctx context.Context, typ, to string, data map[string]any) {
	if d.Mail == nil || to == "" {
		d.Logger.WithFields(logrus.Fields{"type": typ, "to": to}).Debug("email skipped")
		return
	}
	job := mailer.EmailJob{To: to, Template: typ, Data: data}
	job.Normalize()
	err := d.Mail.PublishJSON(ctx, job)
	d.Metrics.Email(typ, err)
	if err != nil {
		d.Logger.WithError(err).WithFields(logrus.Fields{"type": typ, "to": to}).Error("enqueue email failed")
	}
}

// reindex refreshes the search document. Search is a mirror, so errors only log.
func (d *Deps) reindex(ctx context.Context, u *entity.User) {
	if d.Index == nil || u == nil {
		return
	}
	if err := d.Index.Index(ctx, u); err != nil {
		d.Logger.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
	}
}
