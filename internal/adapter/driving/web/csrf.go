package web

import (
	"crypto/rand"
	"crypto/subtle"
	"net/http"
)

// Double-submit token: the dialog's action forms echo the cookie value back
// in a hidden field.
const (
	csrfCookieName = "csrf_token"
	csrfFormField  = "csrf_token"
)

// csrfToken returns the token carried by the request's cookie, issuing a
// fresh one scoped to the dialog routes when the cookie is missing.
func csrfToken(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(csrfCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	token := rand.Text()
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/checks/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	return token
}

// validateCSRF reports whether the submitted form token equals the cookie.
func validateCSRF(r *http.Request) bool {
	c, err := r.Cookie(csrfCookieName)
	if err != nil || c.Value == "" {
		return false
	}
	submitted := r.PostFormValue(csrfFormField)
	return submitted != "" && subtle.ConstantTimeCompare([]byte(submitted), []byte(c.Value)) == 1
}
