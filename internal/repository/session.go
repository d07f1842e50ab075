package repository

import (
	"context"

	"quillpad/internal/domain"
)

// SessionRepository keeps server-side browser sessions. Get returns
// domain.ErrNotFound for unknown ids; Delete of an unknown id is not an error.
type SessionRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, session *domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
}
