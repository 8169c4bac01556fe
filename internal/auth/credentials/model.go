package credentials

import "time"

// Credential is a single-use login credential. Only the hash is stored;
// the row is deleted when it is consumed.
type Credential struct {
	ID          string
	AccountID   string
	SecretHash  string
	HashVersion string
	IssuedAt    time.Time
}
