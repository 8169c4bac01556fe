package auth

import "time"

// Identity represents a normalized external authentication identity
// returned by an OAuth provider. It contains facts only, no decisions.
type Identity struct {
	Provider       string // e.g. "kakao", "google"
	ProviderUserID string // provider-scoped unique user identifier
	Email          string // empty when the provider withholds it
	EmailVerified  bool
	Nickname       string
	Name           string
	AvatarURL      string
	Birthday       string // MMDD as reported by the provider
	BirthYear      string
	Gender         string
	AgeRange       string
}

// Account is the local account linked to exactly one
// (provider, provider user id) pair.
type Account struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	Nickname       string     `json:"nickname"`
	Name           string     `json:"name,omitempty"`
	AvatarURL      string     `json:"avatar_url,omitempty"`
	Provider       string     `json:"provider"`
	ProviderUserID string     `json:"provider_user_id"`
	Birthday       string     `json:"birthday,omitempty"`
	BirthYear      string     `json:"birth_year,omitempty"`
	Gender         string     `json:"gender,omitempty"`
	AgeRange       string     `json:"age_range,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
}

// ApplyIdentity projects the provider profile onto the account.
// Empty provider fields never clear values already stored.
func (a *Account) ApplyIdentity(id *Identity, email string) {
	a.Provider = id.Provider
	a.ProviderUserID = id.ProviderUserID
	a.Email = email

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&a.Nickname, id.Nickname)
	set(&a.Name, id.Name)
	set(&a.AvatarURL, id.AvatarURL)
	set(&a.Birthday, id.Birthday)
	set(&a.BirthYear, id.BirthYear)
	set(&a.Gender, id.Gender)
	set(&a.AgeRange, id.AgeRange)
}
