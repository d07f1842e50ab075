package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/thejerf/abtime"
)

const defaultIssuer = "quillpad"

// TokenConfig configures API bearer tokens.
type TokenConfig struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
	Clock  abtime.AbstractTime
}

// TokenIssuer issues and validates stateless HS256 bearer tokens. Validation
// needs only the secret and the clock; there is no revocation list.
type TokenIssuer struct {
	users Authenticator
	cfg   TokenConfig
}

func NewTokenIssuer(users Authenticator, cfg TokenConfig) (*TokenIssuer, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}
	if cfg.Issuer == "" {
		cfg.Issuer = defaultIssuer
	}
	if cfg.Clock == nil {
		cfg.Clock = abtime.NewRealTime()
	}
	return &TokenIssuer{users: users, cfg: cfg}, nil
}

// Issue authenticates email and password and returns a signed token.
func (t *TokenIssuer) Issue(ctx context.Context, email, password string) (string, time.Time, error) {
	user, err := t.users.Authenticate(ctx, email, password)
	if err != nil {
		return "", time.Time{}, err
	}
	return t.IssueFor(user.ID)
}

// TTL is the lifetime of newly issued tokens.
func (t *TokenIssuer) TTL() time.Duration { return t.cfg.TTL }

func (t *TokenIssuer) IssueFor(userID int64) (string, time.Time, error) {
	now := t.cfg.Clock.Now()
	expiresAt := now.Add(t.cfg.TTL)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		Issuer:    t.cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.cfg.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate returns the user id carried by a valid token.
func (t *TokenIssuer) Validate(token string) (int64, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) {
			return t.cfg.Secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(t.cfg.Issuer),
		jwt.WithTimeFunc(t.cfg.Clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, fmt.Errorf("%w: expired", ErrInvalidToken)
		}
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return 0, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return userID, nil
}
