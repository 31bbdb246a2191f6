package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"civicconnect-be/apperrors"
	"civicconnect-be/directory"
	"civicconnect-be/logger"
	"civicconnect-be/models"
	"civicconnect-be/store"
	authUtils "civicconnect-be/utils"
)

type RegisterInput struct {
	Username         string
	Email            string
	Password         string
	IsOrganization   bool
	OrganizationName string
}

type UpdateProfileInput struct {
	Email            string
	IsOrganization   bool
	OrganizationName string
}

// AuthResult is returned by every operation that issues a token.
type AuthResult struct {
	Token        string            `json:"token"`
	User         *models.User      `json:"user"`
	Resolution   models.Resolution `json:"resolution"`
	RedirectPath string            `json:"redirectPath"`
}

// Me describes the caller as resolved on this request.
type Me struct {
	UID              string                      `json:"uid"`
	Email            string                      `json:"email"`
	Username         string                      `json:"username,omitempty"`
	IsOrganization   bool                        `json:"isOrganization"`
	OrganizationName *string                     `json:"organizationName"`
	OrganizationID   string                      `json:"organizationId,omitempty"`
	UserType         models.Kind                 `json:"userType"`
	Profile          *models.OrganizationProfile `json:"profile"`
	RedirectPath     string                      `json:"redirectPath"`
}

// AccountService registers principals, checks credentials and keeps role
// claims, user records and organization profiles in step.
type AccountService struct {
	store  store.Store
	tokens *authUtils.TokenIssuer
	roles  *RoleResolver
	now    func() time.Time
}

func NewAccountService(s store.Store, tokens *authUtils.TokenIssuer, roles *RoleResolver) *AccountService {
	return &AccountService{store: s, tokens: tokens, roles: roles, now: time.Now}
}

func (a *AccountService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return nil, fmt.Errorf("email and password are required: %w", apperrors.ErrValidation)
	}
	var org *models.Organization
	if in.IsOrganization {
		found, err := organizationByName(in.OrganizationName)
		if err != nil {
			return nil, err
		}
		org = &found
	}

	username := strings.TrimSpace(in.Username)
	if username == "" {
		username = strings.Split(email, "@")[0]
	}
	now := a.now()
	user := &models.User{
		Username:       username,
		Email:          email,
		Password:       in.Password,
		IsOrganization: org != nil,
		Role:           string(models.KindUser),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if org != nil {
		user.Role = string(models.KindOrganization)
		user.OrganizationName = &org.Name
	}
	if err := user.HashPassword(); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	err := a.store.Atomic(ctx, func(ctx context.Context, tx store.Store) error {
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		if org == nil {
			return nil
		}
		return tx.UpsertOrganizationProfile(ctx, newProfile(user, *org, now))
	})
	if err != nil {
		return nil, err
	}

	logger.WithUser(user.UID, "accounts").WithField("organization", org != nil).Info("principal registered")
	return a.issue(ctx, user)
}

func (a *AccountService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := a.store.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("invalid credentials: %w", apperrors.ErrUnauthorized)
		}
		return nil, err
	}
	if !user.ComparePassword(password) {
		return nil, fmt.Errorf("invalid credentials: %w", apperrors.ErrUnauthorized)
	}
	return a.issue(ctx, user)
}

// Me reports the caller's identity using the resolution already made for
// this request.
func (a *AccountService) Me(ctx context.Context, actor models.Actor) *Me {
	me := &Me{
		UID:            actor.UID,
		Email:          actor.Email,
		IsOrganization: actor.ActsAsOrganization(),
		UserType:       actor.Kind,
		Profile:        actor.Profile,
		RedirectPath:   DashboardFor(StateFor(true, actor.Kind)),
	}
	if actor.User != nil {
		me.Username = actor.User.Username
		if me.Email == "" {
			me.Email = actor.User.Email
		}
	}
	if actor.ActsAsOrganization() {
		if id := actorOrganizationID(actor); id != "" {
			me.OrganizationID = id
			if org, ok := directory.ByID(id); ok {
				me.OrganizationName = &org.Name
			}
		}
		if me.OrganizationName == nil && actor.Principal.OrganizationName != "" {
			name := actor.Principal.OrganizationName
			me.OrganizationName = &name
		}
	}
	return me
}

// UpdateProfile switches a principal between user and organization. The user
// record and organization profile are written together, the cached role is
// dropped and a token carrying the new claims is issued.
func (a *AccountService) UpdateProfile(ctx context.Context, p models.Principal, in UpdateProfileInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		email = strings.ToLower(p.Email)
	}
	if email == "" {
		return nil, fmt.Errorf("email is required: %w", apperrors.ErrValidation)
	}
	var org *models.Organization
	if in.IsOrganization {
		found, err := organizationByName(in.OrganizationName)
		if err != nil {
			return nil, err
		}
		org = &found
	}

	now := a.now()
	var user *models.User
	err := a.store.Atomic(ctx, func(ctx context.Context, tx store.Store) error {
		existing, err := tx.GetUserByID(ctx, p.UID)
		switch {
		case err == nil:
			user = existing
		case errors.Is(err, apperrors.ErrNotFound):
			user = &models.User{UID: p.UID, CreatedAt: now}
		default:
			return err
		}

		user.Email = email
		if user.Username == "" {
			user.Username = strings.Split(email, "@")[0]
		}
		user.IsOrganization = org != nil
		user.UpdatedAt = now
		if org != nil {
			user.Role = string(models.KindOrganization)
			user.OrganizationName = &org.Name
		} else {
			user.Role = string(models.KindUser)
			user.OrganizationName = nil
		}
		if err := tx.UpsertUser(ctx, user); err != nil {
			return err
		}

		if org == nil {
			return tx.DeleteOrganizationProfile(ctx, p.UID)
		}
		profile := newProfile(user, *org, now)
		if prev, err := tx.GetOrganizationProfile(ctx, p.UID); err == nil {
			profile.CreatedAt = prev.CreatedAt
		}
		return tx.UpsertOrganizationProfile(ctx, profile)
	})
	if err != nil {
		return nil, err
	}

	a.roles.Invalidate(ctx, p.UID)
	logger.WithUser(p.UID, "accounts").WithField("organization", org != nil).Info("profile updated")
	return a.issue(ctx, user)
}

func (a *AccountService) issue(ctx context.Context, user *models.User) (*AuthResult, error) {
	principal := models.Principal{
		UID:            user.UID,
		Email:          user.Email,
		IsOrganization: user.IsOrganization,
		Role:           user.Role,
	}
	if user.OrganizationName != nil {
		principal.OrganizationName = *user.OrganizationName
	}
	token, err := a.tokens.GenerateToken(principal)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	res := a.roles.Resolve(ctx, principal)
	return &AuthResult{
		Token:        token,
		User:         user,
		Resolution:   res,
		RedirectPath: DashboardFor(StateFor(true, res.Kind)),
	}, nil
}

// organizationByName accepts a directory display name or id.
func organizationByName(name string) (models.Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Organization{}, fmt.Errorf("organization name is required for organization accounts: %w", apperrors.ErrValidation)
	}
	org, ok := directory.Lookup(name)
	if !ok {
		return models.Organization{}, fmt.Errorf("invalid organization name %q, select one from the directory: %w", name, apperrors.ErrValidation)
	}
	return org, nil
}

func newProfile(user *models.User, org models.Organization, now time.Time) *models.OrganizationProfile {
	return &models.OrganizationProfile{
		UID:            user.UID,
		Email:          user.Email,
		OrganizationID: org.ID,
		Name:           org.Name,
		DepartmentType: append([]models.IssueCategory(nil), org.IssueTypes...),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
