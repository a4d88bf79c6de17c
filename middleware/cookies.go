package middleware

import (
	"net/http"
	"time"

	goPasskey "github.com/karmoybt/goPasskey"
)

// SessionCookieName is the cookie carrying the opaque session token.
const SessionCookieName = "session"

// SetSessionCookie writes the session cookie for an issued token. HttpOnly
// always; Secure and SameSite follow the engine's security config.
func SetSessionCookie(w http.ResponseWriter, cfg goPasskey.SecurityConfig, token goPasskey.SessionToken) {
	sameSite := cfg.SameSitePolicy
	if sameSite == 0 {
		sameSite = http.SameSiteStrictMode
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token.Token,
		Path:     "/",
		Expires:  token.ExpiresAt,
		MaxAge:   int(time.Until(token.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   cfg.RequireSecureCookies,
		SameSite: sameSite,
	})
}

// ClearSessionCookie expires the session cookie immediately.
func ClearSessionCookie(w http.ResponseWriter, cfg goPasskey.SecurityConfig) {
	sameSite := cfg.SameSitePolicy
	if sameSite == 0 {
		sameSite = http.SameSiteStrictMode
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.RequireSecureCookies,
		SameSite: sameSite,
	})
}
