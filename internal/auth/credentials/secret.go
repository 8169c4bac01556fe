package credentials

import (
	"fmt"

	"club-auth/internal/utils"
)

const secretBytes = 32

// Secret is the plaintext half of a one-time credential. It lives only for
// the duration of a single login and must never be logged.
type Secret struct {
	ID    string // credential row id
	value string
}

func newSecret(id string) (Secret, error) {
	v, err := utils.RandomString(secretBytes)
	if err != nil {
		return Secret{}, fmt.Errorf("credentials: generate secret: %w", err)
	}
	return Secret{ID: id, value: v}, nil
}

// Value returns the plaintext secret.
func (s Secret) Value() string {
	return s.value
}

func (s Secret) IsZero() bool {
	return s.value == ""
}

func (s Secret) String() string {
	return "[redacted]"
}

func (s Secret) GoString() string {
	return "credentials.Secret{ID:" + s.ID + ", value:[redacted]}"
}

func (s Secret) MarshalText() ([]byte, error) {
	return []byte("[redacted]"), nil
}
