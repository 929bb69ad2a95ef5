package service

import (
	"context"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/bmark/internal/model"
	"github.com/xxxsen/bmark/internal/oauth"
	appErr "github.com/xxxsen/bmark/internal/pkg/errors"
	"github.com/xxxsen/bmark/internal/pkg/jwt"
	"github.com/xxxsen/bmark/internal/pkg/timeutil"
	"github.com/xxxsen/bmark/internal/repo"
)

type OAuthService struct {
	users      *repo.UserRepo
	oauths     *repo.OAuthRepo
	identities *IdentityCache
	jwtSecret  []byte
	jwtTTL     time.Duration
	providers  map[string]oauth.Provider
}

func NewOAuthService(users *repo.UserRepo, oauths *repo.OAuthRepo, identities *IdentityCache, secret []byte, ttl time.Duration, providers map[string]oauth.Provider) *OAuthService {
	if providers == nil {
		providers = map[string]oauth.Provider{}
	}
	return &OAuthService{
		users:      users,
		oauths:     oauths,
		identities: identities,
		jwtSecret:  secret,
		jwtTTL:     ttl,
		providers:  providers,
	}
}

func (s *OAuthService) Providers() []string {
	names := make([]string, 0, len(s.providers))
	for _, name := range []string{"github", "google"} {
		if _, ok := s.providers[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

func (s *OAuthService) GetAuthURL(provider, state string) (string, error) {
	impl := s.providers[strings.ToLower(provider)]
	if impl == nil {
		return "", appErr.ErrInvalid
	}
	return impl.AuthURL(state)
}

func (s *OAuthService) ExchangeCode(ctx context.Context, provider, code string) (*oauth.Profile, error) {
	impl := s.providers[strings.ToLower(provider)]
	if impl == nil {
		return nil, appErr.ErrInvalid
	}
	return impl.ExchangeCode(ctx, code)
}

// LoginOrCreate signs in the owner of a provider account, creating the
// user on first sign-in. Display name and avatar follow the provider.
func (s *OAuthService) LoginOrCreate(ctx context.Context, profile *oauth.Profile) (*model.User, string, error) {
	if !profile.Complete() {
		return nil, "", appErr.ErrInvalid
	}
	email := profile.OwnerEmail()
	name := profile.DisplayName()
	logger := logutil.GetLogger(ctx).With(zap.String("provider", profile.Provider))
	now := timeutil.NowUnix()
	if account, err := s.oauths.GetByProviderUserID(ctx, profile.Provider, profile.ProviderUserID); err == nil {
		user, err := s.users.GetByID(ctx, account.UserID)
		if err != nil {
			return nil, "", err
		}
		if user.DisplayName != name || user.AvatarURL != profile.AvatarURL {
			if err := s.users.UpdateProfile(ctx, user.ID, name, profile.AvatarURL, now); err != nil {
				logger.Warn("refresh profile failed", zap.String("user_id", user.ID), zap.Error(err))
			} else {
				user.DisplayName = name
				user.AvatarURL = profile.AvatarURL
				s.identities.Forget(user.ID)
			}
		}
		if account.Login != profile.Login || account.Email != email {
			_ = s.oauths.UpdateLogin(ctx, account.ID, email, profile.Login, now)
		}
		return s.issue(user)
	} else if !appErr.IsNotFound(err) {
		return nil, "", err
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", appErr.ErrConflict
	} else if !appErr.IsNotFound(err) {
		return nil, "", err
	}
	user := &model.User{
		ID:          newID(),
		Email:       email,
		DisplayName: name,
		AvatarURL:   profile.AvatarURL,
		Ctime:       now,
		Mtime:       now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}
	account := &model.OAuthAccount{
		ID:             newID(),
		UserID:         user.ID,
		Provider:       profile.Provider,
		ProviderUserID: profile.ProviderUserID,
		Email:          email,
		Login:          profile.Login,
		Ctime:          now,
		Mtime:          now,
	}
	if err := s.oauths.Create(ctx, account); err != nil {
		return nil, "", err
	}
	logger.Info("user created from oauth", zap.String("user_id", user.ID))
	return s.issue(user)
}

func (s *OAuthService) issue(user *model.User) (*model.User, string, error) {
	token, err := jwt.GenerateToken(user.ID, user.Email, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *OAuthService) ListBindings(ctx context.Context, userID string) ([]model.OAuthAccount, error) {
	return s.oauths.ListByUser(ctx, userID)
}
