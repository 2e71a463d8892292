package auth

import (
	"errors"
	"time"

	"shophub/apperr"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is the single outcome for a malformed, forged or expired
// token.
var ErrInvalidToken = apperr.Unauthorized("invalid or expired token")

// Claims are the identity claims carried by a bearer token.
type Claims struct {
	AccountID string `json:"_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	jwt.RegisteredClaims
}

// TokenService issues and validates bearer tokens.
type TokenService interface {
	Issue(accountID, email, firstName, lastName string) (string, error)
	Validate(token string) (*Claims, error)
}

// JWTService signs HS256 tokens with a process-wide secret. Tokens expire a
// fixed duration after issue and cannot be refreshed.
type JWTService struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

func NewJWTService(secret []byte, expiry time.Duration) *JWTService {
	return &JWTService{secret: secret, expiry: expiry, now: time.Now}
}

func (s *JWTService) Issue(accountID, email, firstName, lastName string) (string, error) {
	now := s.now()
	claims := &Claims{
		AccountID: accountID,
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", apperr.Internal(err)
	}
	return signed, nil
}

func (s *JWTService) Validate(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid || claims.Email == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IsInvalidToken reports whether err is the uniform token failure.
func IsInvalidToken(err error) bool {
	return errors.Is(err, ErrInvalidToken)
}
