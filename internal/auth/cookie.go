package auth

import (
	"net/http"

	"github.com/taskhive-dev/taskhive/internal/token"
)

const RefreshCookieName = "refreshToken"

// RefreshCookiePath scopes the cookie to the API prefix. Every route that
// consumes the cookie (the refresh endpoint, logout, and the guard's silent
// rotation fallback) lives under it, and the cookie is never sent to
// anything outside the API.
const RefreshCookiePath = "/api"

// SetRefreshCookie writes the refresh token cookie: httpOnly, strict
// same-site, secure in production.
func SetRefreshCookie(w http.ResponseWriter, value string, production bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    value,
		Path:     RefreshCookiePath,
		MaxAge:   int(token.DefaultRefreshTTL.Seconds()),
		Secure:   production,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func ClearRefreshCookie(w http.ResponseWriter, production bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     RefreshCookiePath,
		MaxAge:   -1,
		Secure:   production,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
