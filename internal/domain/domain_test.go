package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPage_Navigation(t *testing.T) {
	p := Page[Post]{Page: 1, PerPage: 5, Total: 11}
	assert.False(t, p.HasPrev())
	assert.True(t, p.HasNext())

	p.Page = 3
	assert.True(t, p.HasPrev())
	assert.False(t, p.HasNext())
	assert.Equal(t, 2, p.PrevNum())
	assert.Equal(t, 4, p.NextNum())

	empty := Page[Post]{Page: 1, PerPage: 5}
	assert.False(t, empty.HasNext())
}

func TestSession_Expired(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := Session{ExpiresAt: now}
	assert.True(t, s.Expired(now))
	assert.True(t, s.Expired(now.Add(time.Second)))
	assert.False(t, s.Expired(now.Add(-time.Second)))
}

func TestOwnerID(t *testing.T) {
	assert.Equal(t, int64(4), (&Task{UserID: 4}).OwnerID())
	assert.Equal(t, int64(9), (&Post{UserID: 9}).OwnerID())
}
