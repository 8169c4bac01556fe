package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

// The PKCE verifier lives as long as the state cookie it travels with.
const pkceCookieName = "__oauth_pkce"

// startPKCE stores a fresh verifier and returns the S256 challenge option
// for the consent URL.
func startPKCE(c *gin.Context, secure bool) oauth2.AuthCodeOption {
	verifier := oauth2.GenerateVerifier()

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     pkceCookieName,
		Value:    verifier,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(stateTTL.Seconds()),
	})

	return oauth2.S256ChallengeOption(verifier)
}

// pkceVerifier returns the verifier set by startPKCE, or "" when the login
// did not start at the consent redirect.
func pkceVerifier(c *gin.Context) string {
	cookie, err := c.Request.Cookie(pkceCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func clearPKCE(c *gin.Context, secure bool) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     pkceCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
