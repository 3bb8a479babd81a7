package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/karigarlink/rfq-service/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims - содержимое токена, выданного сервисом идентификации.
type Claims struct {
	Role    models.Role `json:"role"`
	Name    string      `json:"name,omitempty"`
	IsAdmin bool        `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager выпускает и проверяет HS256-токены.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager создает новый экземпляр TokenManager.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Issue выпускает токен для пользователя.
func (m *TokenManager) Issue(p models.Principal) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:    p.Role,
		Name:    p.Name,
		IsAdmin: p.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify проверяет подпись и срок действия токена и возвращает пользователя.
func (m *TokenManager) Verify(tokenString string) (models.Principal, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return models.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || !models.ValidRole(claims.Role) {
		return models.Principal{}, fmt.Errorf("%w: missing subject or role", ErrInvalidToken)
	}
	return models.Principal{
		ID:      claims.Subject,
		Role:    claims.Role,
		Name:    claims.Name,
		IsAdmin: claims.IsAdmin,
	}, nil
}

type principalKey struct{}

// WithPrincipal кладет пользователя в контекст запроса.
func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext достает пользователя из контекста запроса.
func PrincipalFromContext(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(models.Principal)
	return p, ok
}
