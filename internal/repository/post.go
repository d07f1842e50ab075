package repository

import (
	"context"

	"quillpad/internal/domain"
)

// PostRepository stores blog posts.
type PostRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, post *domain.Post) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Post, error)
	List(ctx context.Context, limit, offset int) ([]domain.Post, int, error)
	Search(ctx context.Context, query string, limit, offset int) ([]domain.Post, int, error)
}

// CommentRepository stores comments on posts.
type CommentRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, comment *domain.Comment) (int64, error)
	ListByPost(ctx context.Context, postID int64) ([]domain.Comment, error)
}
