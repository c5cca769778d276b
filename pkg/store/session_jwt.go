package store

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"planthealth/pkg/domain"
)

const jwtIssuer = "planthealth"

// ErrStatelessSession is returned by JWTSessionStore.DeleteSession: a
// signed token stays valid until it expires, there is nothing
// server-side to revoke.
var ErrStatelessSession = errors.New("stateless session cannot be revoked")

// JWTSessionStore issues and validates stateless HS256 session tokens.
type JWTSessionStore struct {
	secret []byte
	ttl    time.Duration
	leeway time.Duration
}

// NewJWTSessionStore builds a stateless JWT session store.
func NewJWTSessionStore(secret string, ttl time.Duration) *JWTSessionStore {
	return &JWTSessionStore{
		secret: []byte(secret),
		ttl:    ttl,
		leeway: 30 * time.Second,
	}
}

// NewSession creates a signed JWT for the user ID.
func (s *JWTSessionStore) NewSession(userID string) (domain.Session, error) {
	now := time.Now().UTC()
	exp := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    jwtIssuer,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return domain.Session{}, err
	}
	return domain.Session{Token: token, UserID: userID, ExpiresAt: exp}, nil
}

// GetSession validates a JWT and reconstructs the session from its claims.
func (s *JWTSessionStore) GetSession(token string) (domain.Session, bool, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(jwtIssuer),
		jwt.WithLeeway(s.leeway),
	)
	// Every parse failure means the token does not identify a session;
	// there is no infrastructure error path for stateless validation.
	if err != nil || !parsed.Valid {
		return domain.Session{}, false, nil
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return domain.Session{}, false, nil
	}
	return domain.Session{
		Token:     token,
		UserID:    claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}, true, nil
}

// DeleteSession always fails with ErrStatelessSession. Deployments that
// need server-side logout should use RedisSessionStore instead.
func (s *JWTSessionStore) DeleteSession(_ string) error {
	return ErrStatelessSession
}
