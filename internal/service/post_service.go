package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"quillpad/internal/domain"
	"quillpad/internal/repository"
	"quillpad/internal/storage"
)

// PostsPerPage matches the listing size of the index and search pages.
const PostsPerPage = 5

const coverURLTTL = time.Hour

// Upload is an image attached to a new post.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// PostService covers posts, comments and search.
type PostService interface {
	ListPosts(ctx context.Context, page int) (domain.Page[domain.Post], error)
	SearchPosts(ctx context.Context, query string, page int) (domain.Page[domain.Post], error)
	GetPost(ctx context.Context, id int64) (*domain.Post, error)
	CreatePost(ctx context.Context, authorID int64, title, body string, cover *Upload) (*domain.Post, error)
	ListComments(ctx context.Context, postID int64) ([]domain.Comment, error)
	AddComment(ctx context.Context, userID, postID int64, body string) (*domain.Comment, error)
}

// PostOptions tunes attachment handling. A nil Storage disables covers.
type PostOptions struct {
	Storage        storage.Service
	MaxUploadBytes int64
	Logger         *logrus.Logger
}

type postService struct {
	posts    repository.PostRepository
	comments repository.CommentRepository
	opts     PostOptions
}

func NewPostService(posts repository.PostRepository, comments repository.CommentRepository, opts PostOptions) PostService {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 5 << 20
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	return &postService{posts: posts, comments: comments, opts: opts}
}

func (s *postService) ListPosts(ctx context.Context, page int) (domain.Page[domain.Post], error) {
	page = normalizePage(page)
	posts, total, err := s.posts.List(ctx, PostsPerPage, (page-1)*PostsPerPage)
	if err != nil {
		return domain.Page[domain.Post]{}, err
	}
	s.attachCoverURLs(ctx, posts)
	return domain.Page[domain.Post]{Items: posts, Page: page, PerPage: PostsPerPage, Total: total}, nil
}

func (s *postService) SearchPosts(ctx context.Context, query string, page int) (domain.Page[domain.Post], error) {
	page = normalizePage(page)
	posts, total, err := s.posts.Search(ctx, strings.TrimSpace(query), PostsPerPage, (page-1)*PostsPerPage)
	if err != nil {
		return domain.Page[domain.Post]{}, err
	}
	s.attachCoverURLs(ctx, posts)
	return domain.Page[domain.Post]{Items: posts, Page: page, PerPage: PostsPerPage, Total: total}, nil
}

func (s *postService) GetPost(ctx context.Context, id int64) (*domain.Post, error) {
	post, err := s.posts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	one := []domain.Post{*post}
	s.attachCoverURLs(ctx, one)
	return &one[0], nil
}

func (s *postService) CreatePost(ctx context.Context, authorID int64, title, body string, cover *Upload) (*domain.Post, error) {
	if authorID <= 0 {
		return nil, domain.ErrForbidden
	}
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)
	if title == "" || body == "" {
		return nil, fmt.Errorf("%w: title and body are required", domain.ErrValidation)
	}

	post := &domain.Post{
		UserID: authorID,
		Title:  title,
		Body:   body,
	}

	if cover != nil && s.opts.Storage != nil {
		key, err := s.uploadCover(ctx, authorID, cover)
		if err != nil {
			return nil, err
		}
		post.CoverKey = key
	}

	if _, err := s.posts.Create(ctx, post); err != nil {
		if post.CoverKey != "" {
			if delErr := s.opts.Storage.Delete(ctx, post.CoverKey); delErr != nil {
				s.opts.Logger.Warnf("remove orphaned cover %s: %v", post.CoverKey, delErr)
			}
		}
		return nil, err
	}
	return post, nil
}

func (s *postService) ListComments(ctx context.Context, postID int64) ([]domain.Comment, error) {
	return s.comments.ListByPost(ctx, postID)
}

func (s *postService) AddComment(ctx context.Context, userID, postID int64, body string) (*domain.Comment, error) {
	if userID <= 0 {
		return nil, domain.ErrForbidden
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: comment is empty", domain.ErrValidation)
	}
	if _, err := s.posts.Get(ctx, postID); err != nil {
		return nil, err
	}

	comment := &domain.Comment{PostID: postID, UserID: userID, Body: body}
	if _, err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *postService) uploadCover(ctx context.Context, authorID int64, cover *Upload) (string, error) {
	if !strings.HasPrefix(cover.ContentType, "image/") {
		return "", fmt.Errorf("%w: cover must be an image", domain.ErrValidation)
	}
	if cover.Size <= 0 || cover.Size > s.opts.MaxUploadBytes {
		return "", fmt.Errorf("%w: cover must be between 1 byte and %d bytes", domain.ErrValidation, s.opts.MaxUploadBytes)
	}

	ext := strings.ToLower(path.Ext(cover.Filename))
	key := fmt.Sprintf("covers/%d/%s%s", authorID, uuid.NewString(), ext)
	stored, err := s.opts.Storage.Upload(ctx, storage.Object{
		Key:         key,
		Body:        io.LimitReader(cover.Body, s.opts.MaxUploadBytes),
		Size:        cover.Size,
		ContentType: cover.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload cover: %w", err)
	}
	return stored, nil
}

func (s *postService) attachCoverURLs(ctx context.Context, posts []domain.Post) {
	if s.opts.Storage == nil {
		return
	}
	for i := range posts {
		if posts[i].CoverKey == "" {
			continue
		}
		url, err := s.opts.Storage.PresignGet(ctx, posts[i].CoverKey, coverURLTTL)
		if err != nil {
			if !errors.Is(err, storage.ErrDisabled) {
				s.opts.Logger.Warnf("presign cover for post %d: %v", posts[i].ID, err)
			}
			continue
		}
		posts[i].CoverURL = url
	}
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}
