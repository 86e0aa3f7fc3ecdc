package security

import (
	"net/http"
	"strings"

	"YChat/service/presence"
	"YChat/tools/errs"
	sec "YChat/tools/security"

	"github.com/gin-gonic/gin"
)

// Context keys set by the middleware; downstream handlers read these.
const (
	CtxUserIDKey      = "userId"
	CtxAuthSessionKey = "authSessionId"
)

// TokenFromRequest pulls the bearer token from the Authorization header, or
// from the `token` query parameter (websocket clients cannot always set
// headers on the upgrade request).
func TokenFromRequest(r *http.Request) string {
	if authz := strings.TrimSpace(r.Header.Get("Authorization")); authz != "" {
		if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return strings.TrimSpace(authz[len("bearer "):])
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// JWTValidator implements the realtime gateway's TokenValidator collaborator.
type JWTValidator struct {
	Opts sec.Options
}

func (v JWTValidator) Validate(r *http.Request) (*sec.Claims, error) {
	token := TokenFromRequest(r)
	if token == "" {
		return nil, errs.ErrTokenInvalid.WithDetail("missing token")
	}
	claims, err := sec.Verify(v.Opts, token)
	if err != nil {
		return nil, errs.ErrTokenInvalid.WithDetail(err.Error())
	}
	return claims, nil
}

// Middleware authenticates HTTP requests and, as a side effect, refreshes the
// caller's presence activity on every connection tied to the same auth
// session — plain API traffic keeps a user's last-seen fresh.
func Middleware(validator JWTValidator, dir *presence.Directory) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := validator.Validate(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.AsCodeError(err))
			return
		}

		c.Set(CtxUserIDKey, claims.UserID)
		c.Set(CtxAuthSessionKey, claims.SessionID)

		dir.UpdateActivityByAuthToken(claims.UserID, claims.SessionID)

		c.Next()
	}
}
