package auth

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thejerf/abtime"
)

var testJWTSecret = []byte("test-jwt-secret")

func newTestIssuer(t *testing.T, clock abtime.AbstractTime) (*TokenIssuer, *stubUsers) {
	t.Helper()
	users := newStubUsers()
	users.add(1, "alice", "alice@example.com", "pw1")
	users.add(2, "bob", "bob@example.com", "pw2")
	issuer, err := NewTokenIssuer(users, TokenConfig{
		Secret: testJWTSecret,
		TTL:    15 * time.Minute,
		Clock:  clock,
	})
	require.NoError(t, err)
	return issuer, users
}

func TestNewTokenIssuer_RequiresSecret(t *testing.T) {
	_, err := NewTokenIssuer(newStubUsers(), TokenConfig{})
	require.Error(t, err)
}

func TestTokenIssuer_IssueAndValidate(t *testing.T) {
	clock := abtime.NewManual()
	issuer, _ := newTestIssuer(t, clock)

	token, expiresAt, err := issuer.Issue(context.Background(), "alice@example.com", "pw1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, clock.Now().Add(15*time.Minute).Unix(), expiresAt.Unix())

	userID, err := issuer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), userID)
}

func TestTokenIssuer_IssueRejectsBadCredentials(t *testing.T) {
	issuer, _ := newTestIssuer(t, abtime.NewManual())

	_, _, err := issuer.Issue(context.Background(), "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = issuer.Issue(context.Background(), "nobody@example.com", "pw1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestTokenIssuer_Expiry(t *testing.T) {
	clock := abtime.NewManual()
	issuer, _ := newTestIssuer(t, clock)

	token, _, err := issuer.IssueFor(1)
	require.NoError(t, err)

	clock.Advance(14 * time.Minute)
	_, err = issuer.Validate(token)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, err = issuer.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_RejectsForgeries(t *testing.T) {
	clock := abtime.NewManual()
	issuer, _ := newTestIssuer(t, clock)
	now := clock.Now()

	claims := func(sub string) jwt.RegisteredClaims {
		return jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    defaultIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		}
	}
	sign := func(t *testing.T, method jwt.SigningMethod, c jwt.Claims, key any) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, c).SignedString(key)
		require.NoError(t, err)
		return s
	}

	noExpiry := claims("1")
	noExpiry.ExpiresAt = nil
	otherIssuer := claims("1")
	otherIssuer.Issuer = "someone-else"

	cases := map[string]string{
		"empty":          "",
		"garbage":        "not.a.token",
		"wrong secret":   sign(t, jwt.SigningMethodHS256, claims("1"), []byte("other-secret")),
		"other hmac alg": sign(t, jwt.SigningMethodHS512, claims("1"), testJWTSecret),
		"alg none":       sign(t, jwt.SigningMethodNone, claims("1"), jwt.UnsafeAllowNoneSignatureType),
		"no expiry":      sign(t, jwt.SigningMethodHS256, noExpiry, testJWTSecret),
		"other issuer":   sign(t, jwt.SigningMethodHS256, otherIssuer, testJWTSecret),
		"bad subject":    sign(t, jwt.SigningMethodHS256, claims("alice"), testJWTSecret),
		"zero subject":   sign(t, jwt.SigningMethodHS256, claims("0"), testJWTSecret),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := issuer.Validate(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestTokenIssuer_TamperedSubject(t *testing.T) {
	issuer, _ := newTestIssuer(t, abtime.NewManual())
	aliceToken, _, err := issuer.IssueFor(1)
	require.NoError(t, err)
	bobToken, _, err := issuer.IssueFor(2)
	require.NoError(t, err)

	// header and claims of bob with the signature of alice
	bobParts := splitToken(t, bobToken)
	aliceParts := splitToken(t, aliceToken)
	spliced := bobParts[0] + "." + bobParts[1] + "." + aliceParts[2]

	_, err = issuer.Validate(spliced)
	assert.ErrorIs(t, err, ErrInvalidToken)

	id, err := issuer.Validate(bobToken)
	require.NoError(t, err)
	assert.Equal(t, "2", strconv.FormatInt(id, 10))
}

func splitToken(t *testing.T, token string) []string {
	t.Helper()
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	return parts
}
