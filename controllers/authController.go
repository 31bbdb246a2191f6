package controllers

import (
	"net/http"
	"time"

	"civicconnect-be/middlewares"
	"civicconnect-be/services"

	"github.com/gin-gonic/gin"
)

// CookieConfig controls the auth_token cookie set at login.
type CookieConfig struct {
	Domain     string
	Production bool
	MaxAge     time.Duration
}

type AuthController struct {
	accounts *services.AccountService
	cookie   CookieConfig
}

func NewAuthController(accounts *services.AccountService, cookie CookieConfig) *AuthController {
	// Cross-origin cookies in production must not pin a domain.
	if cookie.Production {
		cookie.Domain = ""
	}
	return &AuthController{accounts: accounts, cookie: cookie}
}

// Register handles POST /api/auth/register
func (a *AuthController) Register(c *gin.Context) {
	var input struct {
		Username         string `json:"username" binding:"max=50"`
		Email            string `json:"email" binding:"required,email"`
		Password         string `json:"password" binding:"required,min=6"`
		IsOrganization   bool   `json:"isOrganization"`
		OrganizationName string `json:"organizationName"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := a.accounts.Register(ctx, services.RegisterInput{
		Username:         input.Username,
		Email:            input.Email,
		Password:         input.Password,
		IsOrganization:   input.IsOrganization,
		OrganizationName: input.OrganizationName,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	a.setCookie(c, res.Token)
	c.JSON(http.StatusCreated, authResponse(res))
}

// Login handles POST /api/auth/login
func (a *AuthController) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := a.accounts.Login(ctx, input.Email, input.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	a.setCookie(c, res.Token)
	c.JSON(http.StatusOK, authResponse(res))
}

// Logout clears the auth_token cookie.
func (a *AuthController) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(middlewares.AuthCookieName, "", -1, "/", a.cookie.Domain, a.cookie.Production, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Me returns the caller as resolved on this request.
func (a *AuthController) Me(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	c.JSON(http.StatusOK, a.accounts.Me(ctx, actor))
}

// UpdateProfile handles POST /api/auth/update-profile
func (a *AuthController) UpdateProfile(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var input struct {
		Email            string `json:"email" binding:"omitempty,email"`
		IsOrganization   bool   `json:"isOrganization"`
		OrganizationName string `json:"organizationName"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := a.accounts.UpdateProfile(ctx, actor.Principal, services.UpdateProfileInput{
		Email:            input.Email,
		IsOrganization:   input.IsOrganization,
		OrganizationName: input.OrganizationName,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	a.setCookie(c, res.Token)

	body := authResponse(res)
	body["message"] = "User profile updated successfully"
	body["isOrganization"] = res.User.IsOrganization
	body["organizationName"] = res.User.OrganizationName
	c.JSON(http.StatusOK, body)
}

// Route answers whether the caller may open a client path.
func (a *AuthController) Route(c *gin.Context) {
	path := c.DefaultQuery("path", "/")
	state := services.StateUnauthenticated
	if actor, ok := middlewares.ActorFrom(c); ok {
		state = services.StateFor(true, actor.Kind)
	}
	c.JSON(http.StatusOK, services.DecidePath(state, path))
}

func (a *AuthController) setCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(middlewares.AuthCookieName, token, int(a.cookie.MaxAge.Seconds()), "/", a.cookie.Domain, a.cookie.Production, true)
}

func authResponse(res *services.AuthResult) gin.H {
	return gin.H{
		"token":        res.Token,
		"user":         res.User,
		"userType":     res.Resolution.Kind,
		"profile":      res.Resolution.Profile,
		"redirectPath": res.RedirectPath,
	}
}
