package http

import (
	"net/http"
	"strings"
	"time"
)

const (
	// refreshCookieName is the cookie carrying the refresh token for web clients.
	refreshCookieName = "refresh_token"

	// refreshCookiePath scopes the cookie to the auth surface so it is never
	// sent with ordinary API traffic.
	refreshCookiePath = "/api/auth"

	clientTypeHeader = "X-Client-Type"

	clientTypeWeb    = "web"
	clientTypeMobile = "mobile"
)

// clientType reads X-Client-Type. Anything other than an explicit "web" is
// treated as mobile, including an absent header.
func clientType(r *http.Request) string {
	if strings.EqualFold(strings.TrimSpace(r.Header.Get(clientTypeHeader)), clientTypeWeb) {
		return clientTypeWeb
	}
	return clientTypeMobile
}

// refreshCookies centralizes construction of the refresh token cookie so the
// Set-Cookie header is emitted from exactly one place, with one set of
// attributes.
type refreshCookies struct {
	ttl    time.Duration
	secure bool
}

func (c refreshCookies) set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     refreshCookiePath,
		MaxAge:   int(c.ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// clear expires the cookie immediately. MaxAge -1 emits "Max-Age=0" on the
// wire, which is the deletion signal browsers honour.
func (c refreshCookies) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (c refreshCookies) read(r *http.Request) (string, bool) {
	ck, err := r.Cookie(refreshCookieName)
	if err != nil || ck.Value == "" {
		return "", false
	}
	return ck.Value, true
}
