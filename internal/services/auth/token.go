package auth

import (
	"time"

	"github.com/BearBump/LoadBoard/internal/apperr"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIdentity — кто пришёл с токеном. Ровно то, что нужно gate-проверкам.
type TokenIdentity struct {
	UserID string
	Role   string
}

func (s *Service) issueToken(userID, role string) (string, error) {
	now := time.Now().UTC()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	})
	signed, err := t.SignedString(s.tokenSecret)
	return signed, errors.Wrap(err, "sign token")
}

// ParseToken проверяет подпись и срок; любые проблемы с токеном — это
// PermissionDenied, детали наружу не раскрываем.
func (s *Service) ParseToken(raw string) (TokenIdentity, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.tokenSecret, nil
	})
	if err != nil {
		return TokenIdentity{}, errors.Wrap(apperr.ErrPermissionDenied, "invalid token")
	}
	if claims.Subject == "" || claims.Role == "" {
		return TokenIdentity{}, errors.Wrap(apperr.ErrPermissionDenied, "incomplete token")
	}
	return TokenIdentity{UserID: claims.Subject, Role: claims.Role}, nil
}
