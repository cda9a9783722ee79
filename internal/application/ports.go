package application

import (
	"context"
	"io"

	"github.com/oksasatya/materials-store-api/internal/domain/entity"
)

// EmailQueue accepts email jobs for the worker. *helpers.RabbitPublisher implements it.
type EmailQueue interface {
	PublishJSON(ctx context.Context, body any) error
}

// UserIndex is the search mirror of the users collection.
type UserIndex interface {
	Index(ctx context.Context, u *entity.User) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, q string, size int) ([]string, error)
}

// ObjectStore stores uploaded files and returns their public URL.
type ObjectStore interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}

// ClientInfo is the caller's network identity, used in audit rows and security emails.
type ClientInfo struct {
	IP        string
	UserAgent string
}
