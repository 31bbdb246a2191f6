package authUtils

import (
	"testing"
	"time"

	"civicconnect-be/apperrors"
	"civicconnect-be/models"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	in := models.Principal{
		UID:              "u1",
		Email:            "org@example.com",
		IsOrganization:   true,
		Role:             "organization",
		OrganizationName: "Public Works Department (PWD)",
	}

	token, err := issuer.GenerateToken(in)
	require.NoError(t, err)

	out, err := issuer.ParseToken("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestTokenIssuer_Rejects(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	good, err := issuer.GenerateToken(models.Principal{UID: "u1"})
	require.NoError(t, err)

	expired := NewTokenIssuer("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.GenerateToken(models.Principal{UID: "u1"})
	require.NoError(t, err)

	noUID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := map[string]string{
		"empty":        "",
		"garbage":      "not-a-token",
		"wrong secret": mustSign(t, "other", models.Principal{UID: "u1"}),
		"expired":      old,
		"missing uid":  noUID,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := issuer.ParseToken(token)
			assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
		})
	}

	_, err = issuer.ParseToken(good)
	assert.NoError(t, err)
}

func mustSign(t *testing.T, secret string, p models.Principal) string {
	t.Helper()
	token, err := NewTokenIssuer(secret, time.Hour).GenerateToken(p)
	require.NoError(t, err)
	return token
}
