package domain

import "time"

// Post is a public blog entry.
type Post struct {
	ID        int64
	UserID    int64
	Author    string
	Title     string
	Body      string
	CoverKey  string
	CoverURL  string
	Timestamp time.Time
}

// OwnerID implements auth.Owned.
func (p *Post) OwnerID() int64 {
	return p.UserID
}

// Comment belongs to a post and its author.
type Comment struct {
	ID        int64
	PostID    int64
	UserID    int64
	Author    string
	Body      string
	Timestamp time.Time
}

// Page is one window of a paginated listing.
type Page[T any] struct {
	Items   []T
	Page    int
	PerPage int
	Total   int
}

func (p Page[T]) HasPrev() bool {
	return p.Page > 1
}

func (p Page[T]) HasNext() bool {
	return p.Page*p.PerPage < p.Total
}

func (p Page[T]) PrevNum() int {
	return p.Page - 1
}

func (p Page[T]) NextNum() int {
	return p.Page + 1
}
