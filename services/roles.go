package services

import (
	"context"
	"errors"

	"civicconnect-be/apperrors"
	"civicconnect-be/logger"
	"civicconnect-be/models"
	"civicconnect-be/store"

	"golang.org/x/sync/errgroup"
)

// RoleCache stores resolutions per principal. Implementations swallow their
// own failures; a miss is always safe.
type RoleCache interface {
	Get(ctx context.Context, p models.Principal) (models.Resolution, bool)
	Set(ctx context.Context, p models.Principal, res models.Resolution)
	Invalidate(ctx context.Context, uid string)
}

// RoleResolver decides whether a principal is a user or an organization.
//
// Precedence: token claims give a tentative kind; an organizations record for
// the uid is authoritative; otherwise a users record decides, where either the
// record or the claims marking an organization wins; otherwise the tentative
// kind stands. Lookup failures fall through to the next step.
type RoleResolver struct {
	profiles store.ProfileStore
	cache    RoleCache
}

// NewRoleResolver builds a resolver. cache may be nil.
func NewRoleResolver(profiles store.ProfileStore, cache RoleCache) *RoleResolver {
	return &RoleResolver{profiles: profiles, cache: cache}
}

func (r *RoleResolver) Resolve(ctx context.Context, p models.Principal) models.Resolution {
	if r.cache != nil {
		if res, ok := r.cache.Get(ctx, p); ok {
			roleResolutions.WithLabelValues(string(res.Kind), "true").Inc()
			return res
		}
	}

	res, degraded := r.resolve(ctx, p)
	roleResolutions.WithLabelValues(string(res.Kind), "false").Inc()
	// A resolution reached past a failed lookup holds for this request only.
	if r.cache != nil && !degraded {
		r.cache.Set(ctx, p, res)
	}
	return res
}

// Invalidate drops any cached resolution for uid.
func (r *RoleResolver) Invalidate(ctx context.Context, uid string) {
	if r.cache != nil {
		r.cache.Invalidate(ctx, uid)
	}
}

// resolve applies the precedence. degraded reports that a lookup failed for a
// reason other than a missing record.
func (r *RoleResolver) resolve(ctx context.Context, p models.Principal) (res models.Resolution, degraded bool) {
	tentative := models.KindUser
	if p.ClaimsOrganization() {
		tentative = models.KindOrganization
	}

	var (
		profile    *models.OrganizationProfile
		user       *models.User
		profileErr error
		userErr    error
		g          errgroup.Group
	)
	g.Go(func() error {
		found, err := r.profiles.GetOrganizationProfile(ctx, p.UID)
		if err != nil {
			logLookupFailure(p.UID, "organization profile", err)
			profileErr = err
			return nil
		}
		profile = found
		return nil
	})
	g.Go(func() error {
		found, err := r.profiles.GetUserByID(ctx, p.UID)
		if err != nil {
			logLookupFailure(p.UID, "user record", err)
			userErr = err
			return nil
		}
		user = found
		return nil
	})
	_ = g.Wait()

	switch {
	case profile != nil:
		return models.Resolution{Kind: models.KindOrganization, Profile: profile, User: user}, false
	case user != nil:
		kind := models.KindUser
		if user.ClaimsOrganization() || tentative == models.KindOrganization {
			kind = models.KindOrganization
		}
		return models.Resolution{Kind: kind, User: user}, lookupFailed(profileErr)
	default:
		return models.Resolution{Kind: tentative}, lookupFailed(profileErr) || lookupFailed(userErr)
	}
}

func lookupFailed(err error) bool {
	return err != nil && !errors.Is(err, apperrors.ErrNotFound)
}

func logLookupFailure(uid, what string, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		return
	}
	logger.WithUser(uid, "roles").WithError(err).Warnf("%s lookup failed, falling through", what)
}
