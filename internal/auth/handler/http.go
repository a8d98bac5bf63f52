// Package handler exposes the auth API over HTTP. The refresh token never
// appears in a response body; it travels only in the refresh_token cookie
// scoped to the auth route tree.
package handler

import (
	"encoding/json"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"company-portal/backend/internal/apperror"
	"company-portal/backend/internal/auth/service"
	"company-portal/backend/internal/authevents"
	"company-portal/backend/internal/server/middleware"
	"company-portal/backend/internal/server/respond"
)

const (
	refreshCookieName = "refresh_token"
	refreshCookiePath = "/api/v1/auth"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	slugPattern  = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// CookieConfig controls the refresh cookie attributes that vary by
// deployment.
type CookieConfig struct {
	Domain string
	Secure bool
}

// AuthHandler serves the auth endpoints.
type AuthHandler struct {
	svc    *service.AuthService
	events authevents.Emitter
	logger *zap.Logger
	cookie CookieConfig
}

// NewAuthHandler returns an AuthHandler. events may be nil to disable event
// publishing.
func NewAuthHandler(svc *service.AuthService, events authevents.Emitter, logger *zap.Logger, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{svc: svc, events: events, logger: logger, cookie: cookie}
}

type signupRequest struct {
	CompanyName string `json:"companyName"`
	CompanySlug string `json:"companySlug"`
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

func (r signupRequest) validate() error {
	if n := len(strings.TrimSpace(r.CompanyName)); n < 2 || n > 120 {
		return apperror.InvalidInput("companyName must be 2-120 characters")
	}
	if r.CompanySlug != "" {
		if len(r.CompanySlug) < 2 || len(r.CompanySlug) > 80 || !slugPattern.MatchString(r.CompanySlug) {
			return apperror.InvalidInput("companySlug must be 2-80 lowercase letters, digits, or hyphens")
		}
	}
	if n := len(strings.TrimSpace(r.FullName)); n < 2 || n > 120 {
		return apperror.InvalidInput("fullName must be 2-120 characters")
	}
	if !emailPattern.MatchString(strings.TrimSpace(r.Email)) {
		return apperror.InvalidInput("email is invalid")
	}
	if len(r.Password) < 8 || len(r.Password) > 128 {
		return apperror.InvalidInput("password must be 8-128 characters")
	}
	return nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r loginRequest) validate() error {
	if !emailPattern.MatchString(strings.TrimSpace(r.Email)) {
		return apperror.InvalidInput("email is invalid")
	}
	if len(r.Password) < 8 || len(r.Password) > 128 {
		return apperror.InvalidInput("password must be 8-128 characters")
	}
	return nil
}

// tokenResponse is the success payload for signup, login, and refresh. The
// refresh token is deliberately absent.
type tokenResponse struct {
	AccessToken string           `json:"accessToken"`
	User        service.UserView `json:"user"`
}

// SignupCompany handles POST /signup/company.
func (h *AuthHandler) SignupCompany(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	if err := req.validate(); err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	meta := requestMeta(r)
	result, err := h.svc.SignupCompany(r.Context(), service.SignupInput{
		CompanyName: req.CompanyName,
		CompanySlug: req.CompanySlug,
		FullName:    req.FullName,
		Email:       req.Email,
		Password:    req.Password,
	}, meta)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	h.setRefreshCookie(w, result.RefreshToken, result.RefreshExpiresAt)
	h.emit(authevents.TypeCompanySignedUp, result.User, meta)
	respond.JSON(w, http.StatusCreated, "Company account created", tokenResponse{
		AccessToken: result.AccessToken,
		User:        result.User,
	})
}

// Login handles POST /login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	if err := req.validate(); err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	meta := requestMeta(r)
	result, err := h.svc.Login(r.Context(), req.Email, req.Password, meta)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	h.setRefreshCookie(w, result.RefreshToken, result.RefreshExpiresAt)
	h.emit(authevents.TypeUserLoggedIn, result.User, meta)
	respond.JSON(w, http.StatusOK, "Login successful", tokenResponse{
		AccessToken: result.AccessToken,
		User:        result.User,
	})
}

// Refresh handles POST /refresh. The current refresh token comes from the
// cookie and the rotated one goes back out the same way.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		respond.Error(w, h.logger, apperror.InvalidSession("Refresh token missing"))
		return
	}

	meta := requestMeta(r)
	result, err := h.svc.Refresh(r.Context(), cookie.Value, meta)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	h.setRefreshCookie(w, result.RefreshToken, result.RefreshExpiresAt)
	h.emit(authevents.TypeSessionRotated, result.User, meta)
	respond.JSON(w, http.StatusOK, "Token refreshed", tokenResponse{
		AccessToken: result.AccessToken,
		User:        result.User,
	})
}

// Logout handles POST /logout. Always succeeds and always clears the cookie,
// whatever state the token is in.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var token string
	if cookie, err := r.Cookie(refreshCookieName); err == nil {
		token = cookie.Value
	}
	h.svc.Logout(r.Context(), token)

	h.clearRefreshCookie(w)
	h.emit(authevents.TypeUserLoggedOut, service.UserView{}, requestMeta(r))
	respond.JSON(w, http.StatusOK, "Logout successful", nil)
}

// Me handles GET /me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		respond.Error(w, h.logger, apperror.Unauthorized("Unauthorized"))
		return
	}

	view, err := h.svc.GetProfile(r.Context(), id.UserID, id.CompanyID)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, "Authenticated user", view)
}

// AdminCheck handles GET /admin-check. Role gating happens in the route
// middleware; by the time this runs the caller is a company admin.
func (h *AuthHandler) AdminCheck(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		respond.Error(w, h.logger, apperror.Unauthorized("Unauthorized"))
		return
	}
	respond.JSON(w, http.StatusOK, "Admin access verified", map[string]any{
		"userId":    id.UserID,
		"companyId": id.CompanyID,
		"role":      id.Role,
	})
}

func (h *AuthHandler) emit(eventType string, user service.UserView, meta service.Meta) {
	authevents.EmitAsync(h.events, h.logger, authevents.Event{
		Type:       eventType,
		UserID:     user.ID,
		CompanyID:  user.CompanyID,
		UserAgent:  meta.UserAgent,
		IPAddress:  meta.IPAddress,
		OccurredAt: time.Now().UTC(),
	})
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     refreshCookiePath,
		Domain:   h.cookie.Domain,
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		Domain:   h.cookie.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return apperror.InvalidInput("Request body is not valid JSON")
	}
	return nil
}

// requestMeta extracts the user agent and client IP recorded on refresh
// sessions. RemoteAddr is already the real client when the RealIP middleware
// runs ahead of the handlers.
func requestMeta(r *http.Request) service.Meta {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return service.Meta{
		UserAgent: r.UserAgent(),
		IPAddress: ip,
	}
}
