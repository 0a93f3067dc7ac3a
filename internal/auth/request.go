package auth

import (
	"net/http"
	"strings"

	"github.com/sakif/account-service/internal/apperror"
	"github.com/sakif/account-service/internal/model"
)

// DefaultCookieName is the cookie the login handler stores the token in.
const DefaultCookieName = "auth"

// Client-facing messages. They are intentionally vague.
const (
	MsgTokenMissing = "Token is missing"
	MsgTokenInvalid = "Invalid or expired token"
)

// TokenVerifier is the part of TokenService the authorization flow needs.
type TokenVerifier interface {
	Verify(token string) (*model.Claims, error)
}

// RequestContext carries the credentials a request presented. It is built
// once at the HTTP edge so the service layer never touches *http.Request.
type RequestContext struct {
	// HasHeader is true when an Authorization header was sent at all, even
	// an empty one; a present header always shadows the cookie.
	HasHeader   bool
	BearerToken string
	CookieToken string
}

// RequestContextFrom extracts the Authorization header and the named cookie.
func RequestContextFrom(r *http.Request, cookieName string) RequestContext {
	var rc RequestContext
	if values, ok := r.Header["Authorization"]; ok && len(values) > 0 {
		rc.HasHeader = true
		rc.BearerToken = strings.TrimSpace(strings.TrimPrefix(values[0], "Bearer "))
	}
	if c, err := r.Cookie(cookieName); err == nil {
		rc.CookieToken = c.Value
	}
	return rc
}

// Token returns the credential to verify. The header takes priority over
// the cookie; ok is false when neither carries a token.
func (rc RequestContext) Token() (string, bool) {
	if rc.HasHeader {
		return rc.BearerToken, rc.BearerToken != ""
	}
	return rc.CookieToken, rc.CookieToken != ""
}

// Authenticate verifies the request's token. Every failure is reported as
// apperror.ErrUnauthorized with a generic message, so a client cannot learn
// why a token was rejected.
func Authenticate(rc RequestContext, tokens TokenVerifier) (*model.Claims, error) {
	token, ok := rc.Token()
	if !ok {
		return nil, apperror.Unauthorized(MsgTokenMissing)
	}
	claims, err := tokens.Verify(token)
	if err != nil || claims == nil {
		return nil, apperror.Unauthorized(MsgTokenInvalid)
	}
	return claims, nil
}
