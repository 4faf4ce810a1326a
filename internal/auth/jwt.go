// internal/auth/jwt.go
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/segmentio/ksuid"

	"github.com/baharkarakas/simsforum/internal/models"
)

const (
	DefaultSessionTTL = 7 * 24 * time.Hour
	sessionType       = "session"
)

var ErrInvalidToken = errors.New("invalid token")

type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenManager{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// WithClock swaps the time source; tests use it to step past expiry.
func (tm *TokenManager) WithClock(now func() time.Time) *TokenManager {
	cp := *tm
	cp.now = now
	return &cp
}

type Claims struct {
	UserID models.ID `json:"uid"`
	Type   string    `json:"typ"`
	jwt.RegisteredClaims
}

// Issue signs a session token bound to userID.
func (tm *TokenManager) Issue(userID models.ID) (token string, expiresAt time.Time, err error) {
	now := tm.now()
	claims := Claims{
		UserID: userID,
		Type:   sessionType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ksuid.New().String(),
			Issuer:    tm.issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Parse validates signature, expiry, issuer and token type.
func (tm *TokenManager) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(tm.now),
		jwt.WithExpirationRequired(),
	}
	if tm.issuer != "" {
		opts = append(opts, jwt.WithIssuer(tm.issuer))
	}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return tm.secret, nil
	}, opts...)
	if err != nil || claims.Type != sessionType || claims.UserID.IsZero() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
