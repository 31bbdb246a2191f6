package services

import (
	"context"
	"testing"
	"time"

	"civicconnect-be/apperrors"
	"civicconnect-be/models"
	"civicconnect-be/store"
	authUtils "civicconnect-be/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccountService(t *testing.T, cache RoleCache) (*AccountService, *store.MemoryStore, *authUtils.TokenIssuer) {
	t.Helper()
	s := store.NewMemoryStore()
	tokens := authUtils.NewTokenIssuer("test-secret", time.Hour)
	return NewAccountService(s, tokens, NewRoleResolver(s, cache)), s, tokens
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, _, tokens := newAccountService(t, nil)

	res, err := svc.Register(ctx, RegisterInput{Email: "Citizen@Example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "citizen", res.User.Username)
	assert.Equal(t, models.KindUser, res.Resolution.Kind)
	assert.Equal(t, UserDashboardPath, res.RedirectPath)
	assert.NotEqual(t, "secret123", res.User.Password)

	_, err = svc.Register(ctx, RegisterInput{Email: "citizen@example.com", Password: "other"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	login, err := svc.Login(ctx, "citizen@example.com", "secret123")
	require.NoError(t, err)
	p, err := tokens.ParseToken(login.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.UID, p.UID)
	assert.False(t, p.IsOrganization)

	_, err = svc.Login(ctx, "citizen@example.com", "wrong")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	_, err = svc.Login(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestRegisterOrganization(t *testing.T) {
	ctx := context.Background()
	svc, s, _ := newAccountService(t, nil)

	_, err := svc.Register(ctx, RegisterInput{Email: "o@example.com", Password: "pw", IsOrganization: true, OrganizationName: "Ministry of Magic"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	res, err := svc.Register(ctx, RegisterInput{Email: "o@example.com", Password: "pw", IsOrganization: true, OrganizationName: "Tata Power"})
	require.NoError(t, err)
	assert.Equal(t, models.KindOrganization, res.Resolution.Kind)
	assert.Equal(t, "tata-power", res.Resolution.OrganizationID())
	assert.Equal(t, OrganizationDashboardPath, res.RedirectPath)

	profile, err := s.GetOrganizationProfile(ctx, res.User.UID)
	require.NoError(t, err)
	assert.Equal(t, []models.IssueCategory{models.Streetlights}, profile.DepartmentType)
}

func TestUpdateProfile_SwitchesRoleAndInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	cache := NewRedisRoleCache(newTestRedis(t), time.Minute)
	svc, s, tokens := newAccountService(t, cache)

	reg, err := svc.Register(ctx, RegisterInput{Email: "dept@example.com", Password: "pw"})
	require.NoError(t, err)
	p := models.Principal{UID: reg.User.UID, Email: "dept@example.com"}

	// Warm the cache with the user resolution.
	assert.Equal(t, models.KindUser, svc.roles.Resolve(ctx, p).Kind)

	res, err := svc.UpdateProfile(ctx, p, UpdateProfileInput{IsOrganization: true, OrganizationName: "pwd"})
	require.NoError(t, err)
	assert.Equal(t, models.KindOrganization, res.Resolution.Kind)
	assert.Equal(t, "pwd", res.Resolution.OrganizationID())

	claims, err := tokens.ParseToken(res.Token)
	require.NoError(t, err)
	assert.True(t, claims.IsOrganization)
	assert.Equal(t, "Public Works Department (PWD)", claims.OrganizationName)

	// An old token without the claim still resolves to the organization.
	assert.Equal(t, models.KindOrganization, svc.roles.Resolve(ctx, p).Kind)

	res, err = svc.UpdateProfile(ctx, p, UpdateProfileInput{IsOrganization: false})
	require.NoError(t, err)
	assert.Equal(t, models.KindUser, res.Resolution.Kind)
	_, err = s.GetOrganizationProfile(ctx, p.UID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.UpdateProfile(ctx, p, UpdateProfileInput{IsOrganization: true})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestUpdateProfile_CreatesMissingUserRecord(t *testing.T) {
	ctx := context.Background()
	svc, s, _ := newAccountService(t, nil)

	p := models.Principal{UID: "external-1", Email: "ext@example.com"}
	_, err := svc.UpdateProfile(ctx, p, UpdateProfileInput{})
	require.NoError(t, err)

	u, err := s.GetUserByID(ctx, "external-1")
	require.NoError(t, err)
	assert.Equal(t, "ext", u.Username)
	assert.False(t, u.IsOrganization)
}

func TestMe(t *testing.T) {
	svc, _, _ := newAccountService(t, nil)
	me := svc.Me(context.Background(), orgActor("o1", "mseb"))
	assert.True(t, me.IsOrganization)
	assert.Equal(t, models.KindOrganization, me.UserType)
	assert.Equal(t, "mseb", me.OrganizationID)
	require.NotNil(t, me.OrganizationName)
	assert.Equal(t, "Maharashtra State Electricity Board (MSEB)", *me.OrganizationName)
	assert.Equal(t, OrganizationDashboardPath, me.RedirectPath)

	me = svc.Me(context.Background(), userActor("u1"))
	assert.False(t, me.IsOrganization)
	assert.Nil(t, me.OrganizationName)
	assert.Equal(t, UserDashboardPath, me.RedirectPath)
}
