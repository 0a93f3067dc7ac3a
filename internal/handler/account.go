package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/account-service/internal/apperror"
	"github.com/sakif/account-service/internal/auth"
	"github.com/sakif/account-service/internal/model"
	"github.com/sakif/account-service/internal/service"
	"github.com/sakif/account-service/internal/validation"
)

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 1 << 20

// AccountService is the business logic the handler drives. The handler
// depends on this interface, not on *service.AccountService, so tests can
// substitute a fake.
type AccountService interface {
	Register(ctx context.Context, payload map[string]any) (*validation.Result, error)
	Login(ctx context.Context, in service.LoginInput) (*service.LoginResult, error)
	GetProfile(ctx context.Context, rc auth.RequestContext, identifier string) (any, error)
	UpdateSelf(ctx context.Context, rc auth.RequestContext, in service.UpdateInput) error
	DeleteSelf(ctx context.Context, rc auth.RequestContext, in service.DeleteInput) error
	VerifyToken(ctx context.Context, rc auth.RequestContext) (*model.Claims, error)
}

var _ AccountService = (*service.AccountService)(nil)

// CookieConfig describes the cookie the login handler stores the token in.
//
// HttpOnly follows the IS_DEV setting: the cookie is HttpOnly in dev mode
// and readable by scripts otherwise. Deployments that want the usual
// behaviour set IS_DEV=true.
type CookieConfig struct {
	Name     string
	Path     string
	MaxAge   int // seconds
	HTTPOnly bool
}

// AccountHandler exposes the account operations over HTTP.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister    → POST   /register
//   - HandleLogin       → POST   /login
//   - HandleGetUser     → GET    /user/{username}
//   - HandleUpdate      → PUT    /user/update
//   - HandleDelete      → DELETE /user/delete
//   - HandleVerifyToken → POST   /verify-token
//
// Handlers decode the body, hand the credentials captured by
// auth.Credentials to the service, and map the result with writeJSON /
// writeError. No business rule lives here.
type AccountHandler struct {
	accounts AccountService
	cookie   CookieConfig
	logger   *slog.Logger
}

// NewAccountHandler creates an AccountHandler.
func NewAccountHandler(accounts AccountService, cookie CookieConfig, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		cookie:   cookie,
		logger:   logger,
	}
}

// decodeJSON reads a JSON body into dst. Any decode failure is a BadRequest.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.BadRequest(service.MsgBadRequest)
	}
	return nil
}

// HandleRegister creates an account.
//
// HTTP: POST /register
// Body: {"username", "password", "email", "firstName", "lastName", "phoneNumber", "roomNumber"}
//
// The body is decoded into a map rather than a struct so a field of the
// wrong JSON type is reported as a bad shape instead of silently zeroed.
func (h *AccountHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.accounts.Register(r.Context(), payload)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// HandleLogin verifies credentials and issues a token.
//
// HTTP: POST /login
// Body: {"username" or "email", "password"}
//
// The token is returned in the body and also set as a cookie, so both
// header-based and browser clients can use it.
func (h *AccountHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.accounts.Login(r.Context(), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    result.Token,
		Path:     h.cookie.Path,
		MaxAge:   h.cookie.MaxAge,
		HttpOnly: h.cookie.HTTPOnly,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, result)
}

// HandleGetUser returns a profile. The caller sees the private fields only
// when looking at their own account.
//
// HTTP: GET /user/{username}
func (h *AccountHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "username")
	rc := auth.RequestContextFromContext(r.Context())

	profile, err := h.accounts.GetProfile(r.Context(), rc, identifier)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleUpdate changes the caller's own profile.
//
// HTTP: PUT /user/update
// Body: any of the profile fields plus "password" (the current password)
func (h *AccountHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in service.UpdateInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	rc := auth.RequestContextFromContext(r.Context())
	if err := h.accounts.UpdateSelf(r.Context(), rc, in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Profile Updated"})
}

// HandleDelete removes the caller's own account.
//
// HTTP: DELETE /user/delete
// Body: {"password"}
func (h *AccountHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	var in service.DeleteInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	rc := auth.RequestContextFromContext(r.Context())
	if err := h.accounts.DeleteSelf(r.Context(), rc, in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	// the session's cookie names an account that no longer exists
	http.SetCookie(w, &http.Cookie{
		Name:   h.cookie.Name,
		Value:  "",
		Path:   h.cookie.Path,
		MaxAge: -1,
	})
	writeJSON(w, http.StatusOK, MessageResponse{Message: "User Deleted"})
}

// HandleVerifyToken returns the claims of the presented token.
//
// HTTP: POST /verify-token
func (h *AccountHandler) HandleVerifyToken(w http.ResponseWriter, r *http.Request) {
	rc := auth.RequestContextFromContext(r.Context())

	claims, err := h.accounts.VerifyToken(r.Context(), rc)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, claims)
}

// HandleRoot is a liveness probe for the API prefix.
//
// HTTP: GET /
func HandleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("TEST COMPLETE"))
}

// HandleNotFound answers every unmatched route.
func HandleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{
		Error:   "not_found",
		Message: "Route " + r.URL.Path + " not found",
	})
}
