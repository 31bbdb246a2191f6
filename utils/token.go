package authUtils

import (
	"fmt"
	"strings"
	"time"

	"civicconnect-be/apperrors"
	"civicconnect-be/models"

	"github.com/dgrijalva/jwt-go"
)

// Claims carries the principal's identity and role claims.
type Claims struct {
	UID              string `json:"uid"`
	Email            string `json:"email"`
	IsOrganization   bool   `json:"isOrganization"`
	Role             string `json:"role,omitempty"`
	OrganizationName string `json:"organizationName,omitempty"`
	jwt.StandardClaims
}

// TokenIssuer signs and verifies HS256 bearer tokens.
type TokenIssuer struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, expiry time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), expiry: expiry, now: time.Now}
}

// Expiry is the lifetime of issued tokens.
func (t *TokenIssuer) Expiry() time.Duration {
	return t.expiry
}

// GenerateToken signs a token for the principal.
func (t *TokenIssuer) GenerateToken(p models.Principal) (string, error) {
	if len(t.secret) == 0 {
		return "", fmt.Errorf("JWT secret is not configured")
	}
	now := t.now()
	claims := Claims{
		UID:              p.UID,
		Email:            p.Email,
		IsOrganization:   p.IsOrganization,
		Role:             p.Role,
		OrganizationName: p.OrganizationName,
		StandardClaims: jwt.StandardClaims{
			Subject:   p.UID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(t.expiry).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// ParseToken verifies the token and returns its principal. Any failure is
// reported as apperrors.ErrUnauthorized.
func (t *TokenIssuer) ParseToken(tokenString string) (models.Principal, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return models.Principal{}, fmt.Errorf("missing token: %w", apperrors.ErrUnauthorized)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return models.Principal{}, fmt.Errorf("invalid token: %w", apperrors.ErrUnauthorized)
	}
	if claims.UID == "" {
		return models.Principal{}, fmt.Errorf("token has no uid claim: %w", apperrors.ErrUnauthorized)
	}

	return models.Principal{
		UID:              claims.UID,
		Email:            claims.Email,
		IsOrganization:   claims.IsOrganization,
		Role:             claims.Role,
		OrganizationName: claims.OrganizationName,
	}, nil
}
