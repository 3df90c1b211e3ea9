package auth

import "github.com/labstack/echo/v4"

// ContextKey represents keys for context values
type ContextKey string

// ClaimsContextKey holds the validated *JWTClaims of an admin request.
const ClaimsContextKey ContextKey = "admin_claims"

// GetClaims returns the admin claims set by RequireAdmin.
func GetClaims(c echo.Context) (*JWTClaims, bool) {
	claims, ok := c.Get(string(ClaimsContextKey)).(*JWTClaims)
	return claims, ok
}
