package handlers

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/SscSPs/auth_service/internal/apperrors"
	"github.com/SscSPs/auth_service/internal/core/domain"
	portssvc "github.com/SscSPs/auth_service/internal/core/ports/services"
	"github.com/SscSPs/auth_service/internal/middleware"
	"github.com/SscSPs/auth_service/internal/platform/config"
	"github.com/SscSPs/auth_service/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/securecookie"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateTTL    = 10 * time.Minute
	oauthCookiePath  = "/auth"
	oauthStateBytes  = 32
)

// oauthState is what the state cookie carries between the redirect and the callback.
type oauthState struct {
	Provider string `json:"p"`
	Value    string `json:"v"`
}

// oauthHandler runs the authorization-code flow for the configured providers.
type oauthHandler struct {
	providers   *portssvc.ServiceContainer
	authService portssvc.AuthSvcFacade
	cookie      *securecookie.SecureCookie
	secure      bool
	frontendURL string
	analytics   *utils.PosthogClientWrapper
}

func newOAuthHandler(cfg *config.Config, services *portssvc.ServiceContainer, analytics *utils.PosthogClientWrapper) *oauthHandler {
	hashKey := []byte(cfg.OAuthStateHashKey)
	if len(hashKey) == 0 {
		// Outside production a missing key only invalidates in-flight sign-ins on restart.
		hashKey = securecookie.GenerateRandomKey(32)
	}
	var blockKey []byte
	if cfg.OAuthStateBlockKey != "" {
		blockKey = []byte(cfg.OAuthStateBlockKey)
	}
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(oauthStateTTL / time.Second))
	sc.SetSerializer(securecookie.JSONEncoder{})

	return &oauthHandler{
		providers:   services,
		authService: services.Auth,
		cookie:      sc,
		secure:      cfg.IsProduction,
		frontendURL: cfg.FrontendBaseURL,
		analytics:   analytics,
	}
}

// registerOAuthRoutes mounts /{provider} and /{provider}/callback for every linkable provider.
func registerOAuthRoutes(auth *gin.RouterGroup, h *oauthHandler) {
	for _, p := range domain.ExternalProviders {
		auth.GET("/"+string(p), h.start(p))
		auth.GET("/"+string(p)+"/callback", h.callback(p))
	}
}

// start godoc
// @Summary Begin OAuth sign-in
// @Description Redirects to the provider's consent page. Available for google and facebook.
// @Tags oauth
// @Param provider path string true "Provider" Enums(google, facebook)
// @Success 307
// @Success 302 "Redirect to the frontend with error=provider_not_configured"
// @Router /auth/{provider} [get]
func (h *oauthHandler) start(provider domain.AuthProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		client, ok := h.providers.OAuthProvider(provider)
		if !ok {
			middleware.GetLoggerFromCtx(c.Request.Context()).Warn("OAuth sign-in requested for unconfigured provider", slog.String("provider", string(provider)))
			c.Redirect(http.StatusFound, buildOAuthRedirect(h.frontendURL, provider, domain.OAuthFailed(domain.OAuthReasonProviderNotConfigured)))
			return
		}
		value, err := utils.GenerateSecureRandomString(oauthStateBytes)
		if err != nil {
			respondWithError(c, apperrors.NewInternalError("Failed to start sign-in", err))
			return
		}
		encoded, err := h.cookie.Encode(oauthStateCookie, oauthState{Provider: string(provider), Value: value})
		if err != nil {
			respondWithError(c, apperrors.NewInternalError("Failed to start sign-in", err))
			return
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(oauthStateCookie, encoded, int(oauthStateTTL/time.Second), oauthCookiePath, "", h.secure, true)
		c.Redirect(http.StatusTemporaryRedirect, client.AuthCodeURL(value))
	}
}

// callback godoc
// @Summary Complete OAuth sign-in
// @Description Exchanges the authorization code and redirects to the frontend with a token pair or an error reason.
// @Tags oauth
// @Param provider path string true "Provider" Enums(google, facebook)
// @Param code query string false "Authorization code"
// @Param state query string true "State issued by the sign-in redirect"
// @Success 302
// @Router /auth/{provider}/callback [get]
func (h *oauthHandler) callback(provider domain.AuthProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := h.completeSignIn(c, provider)
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(oauthStateCookie, "", -1, oauthCookiePath, "", h.secure, true)
		c.Redirect(http.StatusFound, buildOAuthRedirect(h.frontendURL, provider, result))
	}
}

func (h *oauthHandler) completeSignIn(c *gin.Context, provider domain.AuthProvider) domain.OAuthResult {
	ctx := c.Request.Context()
	logger := middleware.GetLoggerFromCtx(ctx).With(slog.String("provider", string(provider)))

	client, ok := h.providers.OAuthProvider(provider)
	if !ok {
		return domain.OAuthFailed(domain.OAuthReasonProviderNotConfigured)
	}
	if reason := c.Query("error"); reason != "" {
		logger.Info("Provider denied sign-in", slog.String("reason", reason))
		return domain.OAuthFailed(domain.OAuthReasonProviderDenied)
	}
	if !h.validState(c, provider) {
		logger.Warn("OAuth state mismatch")
		return domain.OAuthFailed(domain.OAuthReasonInvalidState)
	}
	code := c.Query("code")
	if code == "" {
		return domain.OAuthFailed(domain.OAuthReasonExchangeFailed)
	}

	profile, err := client.FetchProfile(ctx, code)
	if err != nil {
		logger.Warn("OAuth code exchange failed", slog.String("error", err.Error()))
		if errors.Is(err, apperrors.ErrValidation) {
			return domain.OAuthFailed(domain.OAuthReasonInvalidProfile)
		}
		return domain.OAuthFailed(domain.OAuthReasonExchangeFailed)
	}

	auth, err := h.authService.OAuthLogin(ctx, *profile)
	if err != nil {
		reason := oauthFailureReason(err)
		if reason == domain.OAuthReasonInternal {
			logger.Error("OAuth sign-in failed", slog.String("error", err.Error()))
		} else {
			logger.Info("OAuth sign-in rejected", slog.String("reason", string(reason)))
		}
		return domain.OAuthFailed(reason)
	}
	logger.Info("OAuth sign-in succeeded", slog.String("user_id", auth.User.UserID))
	middleware.PosthogEvent(c, h.analytics, auth.User.UserID, utils.EventOAuthLoggedIn, map[string]any{"provider": string(provider)})
	return domain.OAuthSucceeded(auth.Tokens)
}

// validState checks the query state against the signed cookie in constant time.
func (h *oauthHandler) validState(c *gin.Context, provider domain.AuthProvider) bool {
	raw, err := c.Cookie(oauthStateCookie)
	if err != nil {
		return false
	}
	var state oauthState
	if err := h.cookie.Decode(oauthStateCookie, raw, &state); err != nil {
		return false
	}
	if state.Provider != string(provider) || state.Value == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(state.Value), []byte(c.Query("state"))) == 1
}

func oauthFailureReason(err error) domain.OAuthFailureReason {
	switch {
	case errors.Is(err, apperrors.ErrForbidden):
		return domain.OAuthReasonAccountInactive
	case errors.Is(err, apperrors.ErrDuplicate):
		return domain.OAuthReasonAccountConflict
	case errors.Is(err, apperrors.ErrValidation):
		return domain.OAuthReasonInvalidProfile
	default:
		return domain.OAuthReasonInternal
	}
}

// buildOAuthRedirect points the browser at the frontend callback page with
// either the token pair or an error reason in the query.
func buildOAuthRedirect(frontendURL string, provider domain.AuthProvider, result domain.OAuthResult) string {
	target, err := url.JoinPath(frontendURL, "auth", "callback")
	if err != nil {
		target = strings.TrimRight(frontendURL, "/") + "/auth/callback"
	}
	q := url.Values{}
	q.Set("provider", string(provider))
	if !result.Success || result.Tokens == nil {
		reason := result.Reason
		if reason == "" {
			reason = domain.OAuthReasonInternal
		}
		q.Set("error", string(reason))
		return target + "?" + q.Encode()
	}
	expiresIn := int64(time.Until(result.Tokens.AccessTokenExpiresAt) / time.Second)
	if expiresIn < 0 {
		expiresIn = 0
	}
	q.Set("access_token", result.Tokens.AccessToken)
	q.Set("refresh_token", result.Tokens.RefreshToken)
	q.Set("token_type", "Bearer")
	q.Set("expires_in", strconv.FormatInt(expiresIn, 10))
	return target + "?" + q.Encode()
}
