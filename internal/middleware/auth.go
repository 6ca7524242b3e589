package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
)

// AuthCookie is the name of the cookie set after a successful login.
const AuthCookie = "authenticated"

// CookieValue derives the cookie value from the password, so changing the
// password invalidates existing logins.
func CookieValue(password string) string {
	sum := sha256.Sum256([]byte("contours:" + password))
	return hex.EncodeToString(sum[:])
}

// AuthMiddleware lets through requests carrying a valid auth cookie. API and
// websocket calls without one get 401; page requests are sent to /login.
func AuthMiddleware(password string, next http.Handler) http.Handler {
	expected := CookieValue(password)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" ||
			r.URL.Path == "/auth/login" ||
			strings.HasPrefix(r.URL.Path, "/static/") {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(AuthCookie)
		if err != nil || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(expected)) != 1 {
			if strings.HasPrefix(r.URL.Path, "/api/") ||
				r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
				r.Header.Get("Content-Type") == "application/json" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
