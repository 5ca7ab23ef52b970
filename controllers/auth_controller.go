package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/cppla/devboard/middleware"
	"github.com/cppla/devboard/services"
	"github.com/cppla/devboard/utils"
)

const oauthStateTTL = 10 * time.Minute

// AuthController handles authentication related endpoints including local and third-party providers.
type AuthController struct {
	auth      *services.AuthService
	states    *utils.StateStore
	providers map[string]*OAuthProvider
}

// NewAuthController creates an AuthController.
func NewAuthController(auth *services.AuthService, states *utils.StateStore, providers map[string]*OAuthProvider) *AuthController {
	if states == nil {
		states = utils.NewStateStore(nil)
	}
	return &AuthController{auth: auth, states: states, providers: providers}
}

// Signup registers a local account and logs it in.
func (a *AuthController) Signup(ctx *gin.Context) {
	var req services.SignupInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badPayload(ctx)
		return
	}

	res, err := a.auth.Signup(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Respond(ctx, http.StatusCreated, res)
}

// Login verifies user credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badPayload(ctx)
		return
	}

	res, err := a.auth.Login(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, res)
}

// Logout invalidates the token by blacklisting it until expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	if err := a.auth.Logout(ctx.Request.Context(), ctx.GetString(middleware.ContextTokenKey)); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the current authenticated user's information.
func (a *AuthController) Me(ctx *gin.Context) {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}
	utils.Success(ctx, user.Public())
}

// OAuthRedirect generates a provider-specific authorization URL.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	p, ok := a.provider(ctx)
	if !ok {
		return
	}

	state := uuid.NewString()
	if err := a.states.Save(ctx.Request.Context(), state, oauthStateTTL); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{
		"authorizationUrl": p.Config.AuthCodeURL(state, oauth2.AccessTypeOnline),
		"state":            state,
	})
}

// OAuthCallback exchanges the authorization code for a user identity and issues a JWT.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	p, ok := a.provider(ctx)
	if !ok {
		return
	}

	code := ctx.Query("code")
	state := ctx.Query("state")
	if code == "" || state == "" {
		utils.Error(ctx, http.StatusBadRequest, 40005, "missing code or state")
		return
	}
	if !a.states.Consume(ctx.Request.Context(), state) {
		utils.Error(ctx, http.StatusBadRequest, 40006, "invalid or expired state")
		return
	}

	token, err := p.Config.Exchange(ctx.Request.Context(), code)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40007, "failed to exchange code")
		return
	}

	identity, err := p.Identify(ctx.Request.Context(), p.Config.Client(ctx.Request.Context(), token))
	if err != nil {
		utils.Sugar.Warnw("oauth identity lookup failed", "provider", ctx.Param("provider"), "error", err)
		utils.Error(ctx, http.StatusBadGateway, 50201, "failed to fetch provider profile")
		return
	}

	res, err := a.auth.LoginWithProvider(ctx.Request.Context(), *identity)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, res)
}

func (a *AuthController) provider(ctx *gin.Context) (*OAuthProvider, bool) {
	name := strings.ToLower(ctx.Param("provider"))
	p, ok := a.providers[name]
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40004, "unsupported or unconfigured provider: "+name)
		return nil, false
	}
	return p, true
}
