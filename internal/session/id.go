package session

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"club-auth/internal/utils"
)

// idBytes gives session ids and refresh secrets 256 bits of entropy.
const idBytes = 32

// GenerateID returns a random session id. Ids are base64url, so they never
// contain the '.' used to join refresh tokens.
func GenerateID() (string, error) {
	id, err := utils.RandomString(idBytes)
	if err != nil {
		return "", fmt.Errorf("session: generate id: %w", err)
	}
	return id, nil
}

// Refresh tokens are "<session id>.<secret>". Only the secret's digest is
// stored with the session.
func formatRefreshToken(sessionID, secret string) string {
	return sessionID + "." + secret
}

func parseRefreshToken(token string) (sessionID, secret string, ok bool) {
	sessionID, secret, ok = strings.Cut(token, ".")
	if !ok || sessionID == "" || secret == "" {
		return "", "", false
	}
	return sessionID, secret, true
}

func hashRefresh(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
