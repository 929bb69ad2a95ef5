package oauth

import (
	"net/http"
	"strings"
)

type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// Endpoint overrides provider URLs; empty fields keep the public defaults.
type Endpoint struct {
	AuthURL  string
	TokenURL string
	APIURL   string
}

func (e Endpoint) withDefaults(def Endpoint) Endpoint {
	if e.AuthURL == "" {
		e.AuthURL = def.AuthURL
	}
	if e.TokenURL == "" {
		e.TokenURL = def.TokenURL
	}
	if e.APIURL == "" {
		e.APIURL = def.APIURL
	}
	e.APIURL = strings.TrimSuffix(e.APIURL, "/")
	return e
}

type ProviderArgs struct {
	Config   ProviderConfig
	Endpoint Endpoint
	Client   *http.Client
}

func decodeProviderArgs(args interface{}) (ProviderArgs, error) {
	if args == nil {
		return ProviderArgs{}, nil
	}
	if cfg, ok := args.(ProviderArgs); ok {
		cfg.Config.RedirectURL = strings.TrimSpace(cfg.Config.RedirectURL)
		cfg.Config.ClientID = strings.TrimSpace(cfg.Config.ClientID)
		cfg.Config.ClientSecret = strings.TrimSpace(cfg.Config.ClientSecret)
		return cfg, nil
	}
	return ProviderArgs{}, nil
}
