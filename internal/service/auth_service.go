package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/bmark/internal/model"
	appErr "github.com/xxxsen/bmark/internal/pkg/errors"
	"github.com/xxxsen/bmark/internal/pkg/jwt"
	"github.com/xxxsen/bmark/internal/pkg/password"
	"github.com/xxxsen/bmark/internal/pkg/timeutil"
	"github.com/xxxsen/bmark/internal/repo"
)

type AuthService struct {
	users         *repo.UserRepo
	identities    *IdentityCache
	jwtSecret     []byte
	jwtTTL        time.Duration
	allowRegister bool
}

func NewAuthService(users *repo.UserRepo, identities *IdentityCache, secret []byte, ttl time.Duration, allowRegister bool) *AuthService {
	return &AuthService{
		users:         users,
		identities:    identities,
		jwtSecret:     secret,
		jwtTTL:        ttl,
		allowRegister: allowRegister,
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", appErr.ErrInvalid
	}
	return email, nil
}

func (s *AuthService) Register(ctx context.Context, email, plainPassword string) (*model.User, string, error) {
	if !s.allowRegister {
		return nil, "", appErr.ErrForbidden
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, "", err
	}
	if err := password.Validate(plainPassword); err != nil {
		return nil, "", err
	}
	hash, err := password.Hash(plainPassword)
	if err != nil {
		return nil, "", err
	}
	now := timeutil.NowUnix()
	user := &model.User{
		ID:           newID(),
		Email:        email,
		PasswordHash: hash,
		Ctime:        now,
		Mtime:        now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}
	logutil.GetLogger(ctx).Info("user registered", zap.String("user_id", user.ID))
	token, err := jwt.GenerateToken(user.ID, user.Email, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) Login(ctx context.Context, email, plainPassword string) (*model.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, "", appErr.ErrUnauthorized
		}
		return nil, "", err
	}
	if err := password.Compare(user.PasswordHash, plainPassword); err != nil {
		return nil, "", appErr.ErrUnauthorized
	}
	token, err := jwt.GenerateToken(user.ID, user.Email, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Session resolves the identity behind an already verified token subject.
func (s *AuthService) Session(ctx context.Context, userID string) (*model.User, error) {
	if user, ok := s.identities.Get(userID); ok {
		return &user, nil
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.ErrUnauthorized
		}
		return nil, err
	}
	s.identities.Put(*user)
	return user, nil
}

func (s *AuthService) Logout(ctx context.Context, userID string) {
	s.identities.Forget(userID)
	logutil.GetLogger(ctx).Debug("user signed out", zap.String("user_id", userID))
}
