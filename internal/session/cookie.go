package session

import (
	"net/http"
	"time"
)

const RefreshCookieName = "club_refresh"

// CookieOptions controls how the refresh token is mirrored into a cookie for
// browser clients. The zero value is usable: Path /auth, HttpOnly, SameSite=Lax.
type CookieOptions struct {
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// SetRefresh writes the refresh cookie. It expires with the session.
func (o CookieOptions) SetRefresh(w http.ResponseWriter, refreshToken string, expiresAt time.Time) {
	c := o.cookie(refreshToken)
	c.Expires = expiresAt
	if maxAge := int(time.Until(expiresAt).Seconds()); maxAge > 0 {
		c.MaxAge = maxAge
	}
	http.SetCookie(w, c)
}

// ClearRefresh tells the client to drop the refresh cookie.
func (o CookieOptions) ClearRefresh(w http.ResponseWriter) {
	c := o.cookie("")
	c.MaxAge = -1
	http.SetCookie(w, c)
}

// RefreshFromRequest returns the refresh cookie value, or "" when absent.
func RefreshFromRequest(r *http.Request) string {
	c, err := r.Cookie(RefreshCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func (o CookieOptions) cookie(value string) *http.Cookie {
	path := o.Path
	if path == "" {
		path = "/auth"
	}
	sameSite := o.SameSite
	if sameSite == 0 {
		sameSite = http.SameSiteLaxMode
	}

	return &http.Cookie{
		Name:     RefreshCookieName,
		Value:    value,
		Path:     path,
		Domain:   o.Domain,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: sameSite,
	}
}
