package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"quillpad/internal/domain"
	"quillpad/internal/repository"
)

const createPostsTable = `
CREATE TABLE IF NOT EXISTS posts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id),
	title TEXT NOT NULL,
	body TEXT NOT NULL,
	cover_key TEXT NOT NULL DEFAULT '',
	timestamp DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_posts_timestamp ON posts(timestamp);
`

const selectPost = `
SELECT p.id, p.user_id, u.username, p.title, p.body, p.cover_key, p.timestamp
FROM posts p
JOIN users u ON u.id = p.user_id`

type PostRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostRepository(db *sql.DB, opts ...Option) repository.PostRepository {
	return &PostRepository{db: db, now: newOptions(opts).now}
}

func (r *PostRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createPostsTable); err != nil {
		return fmt.Errorf("create posts table: %w", err)
	}
	return nil
}

func (r *PostRepository) Create(ctx context.Context, post *domain.Post) (int64, error) {
	if post.Timestamp.IsZero() {
		post.Timestamp = r.now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `
INSERT INTO posts (user_id, title, body, cover_key, timestamp)
VALUES (?, ?, ?, ?, ?)`,
		post.UserID,
		post.Title,
		post.Body,
		post.CoverKey,
		post.Timestamp,
	)
	if err != nil {
		return 0, fmt.Errorf("insert post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("post last insert id: %w", err)
	}
	post.ID = id
	return id, nil
}

func (r *PostRepository) Get(ctx context.Context, id int64) (*domain.Post, error) {
	row := r.db.QueryRowContext(ctx, selectPost+` WHERE p.id = ?`, id)
	post, err := scanPost(row)
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (r *PostRepository) List(ctx context.Context, limit, offset int) ([]domain.Post, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}
	posts, err := r.queryPosts(ctx, selectPost+`
ORDER BY p.timestamp DESC, p.id DESC
LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// Search matches query as a case-insensitive substring of title or body.
func (r *PostRepository) Search(ctx context.Context, query string, limit, offset int) ([]domain.Post, int, error) {
	pattern := "%" + escapeLike(query) + "%"

	var total int
	if err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM posts p
WHERE p.title LIKE ? ESCAPE '\' OR p.body LIKE ? ESCAPE '\'`,
		pattern, pattern,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count search posts: %w", err)
	}

	posts, err := r.queryPosts(ctx, selectPost+`
WHERE p.title LIKE ? ESCAPE '\' OR p.body LIKE ? ESCAPE '\'
ORDER BY p.timestamp DESC, p.id DESC
LIMIT ? OFFSET ?`, pattern, pattern, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *PostRepository) queryPosts(ctx context.Context, query string, args ...any) ([]domain.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	posts := []domain.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	return posts, rows.Err()
}

func scanPost(scanner rowScanner) (*domain.Post, error) {
	var post domain.Post
	if err := scanner.Scan(
		&post.ID,
		&post.UserID,
		&post.Author,
		&post.Title,
		&post.Body,
		&post.CoverKey,
		&post.Timestamp,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("post: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scan post: %w", err)
	}
	return &post, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
