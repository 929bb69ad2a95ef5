package oauth

import (
	"context"
	"fmt"
	"strings"
)

// Profile is the sign-in identity a provider hands back for the bookmark
// owner. Name is what the provider reports, which may be empty.
type Profile struct {
	Provider       string
	ProviderUserID string
	Email          string
	Login          string
	Name           string
	AvatarURL      string
}

// Complete reports whether the profile can own an account.
func (p *Profile) Complete() bool {
	return p != nil && p.Provider != "" && p.ProviderUserID != "" && p.OwnerEmail() != ""
}

// OwnerEmail is the address accounts are keyed by.
func (p *Profile) OwnerEmail() string {
	return strings.ToLower(strings.TrimSpace(p.Email))
}

// DisplayName falls back from the reported name to the login and then to
// the local part of the email.
func (p *Profile) DisplayName() string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	if login := strings.TrimSpace(p.Login); login != "" {
		return login
	}
	email := p.OwnerEmail()
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}

// Provider signs a bookmark owner in through a third-party account.
type Provider interface {
	Name() string
	AuthURL(state string) (string, error)
	ExchangeCode(ctx context.Context, code string) (*Profile, error)
}

type ProviderFactory func(args interface{}) (Provider, error)

var registry = map[string]ProviderFactory{}

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewProvider(name string, args interface{}) (Provider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("sign-in provider is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported sign-in provider: %s", name)
	}
	return factory(args)
}
