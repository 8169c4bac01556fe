package provider

import (
	"context"
	"testing"

	"club-auth/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type namedProvider string

func (n namedProvider) Name() string {
	return string(n)
}

func (n namedProvider) AuthCodeURL(string, ...oauth2.AuthCodeOption) string {
	return ""
}

func (n namedProvider) ExchangeCode(context.Context, string, string, ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	return nil, nil
}

func (n namedProvider) FetchProfile(context.Context, *oauth2.Token) (*auth.Identity, error) {
	return nil, nil
}

func (n namedProvider) Revoke(context.Context, string) error {
	return nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(namedProvider("kakao"), namedProvider("google"))

	p, err := r.Get("kakao")
	require.NoError(t, err)
	assert.Equal(t, "kakao", p.Name())

	_, err = r.Get("naver")
	assert.ErrorIs(t, err, ErrUnknownProvider)

	assert.Equal(t, []string{"google", "kakao"}, r.Names())
}

func TestRegistryIgnoresCase(t *testing.T) {
	r := NewRegistry(namedProvider("kakao"))

	p, err := r.Get("Kakao")
	require.NoError(t, err)
	assert.Equal(t, "kakao", p.Name())

	_, err = r.Get("")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestRegistryDuplicatePanics(t *testing.T) {
	assert.Panics(t, func() {
		NewRegistry(namedProvider("kakao"), namedProvider("KAKAO"))
	})
}
