package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/statement/internal/auth/domain"
	"github.com/smallbiznis/statement/internal/auth/password"
	"github.com/smallbiznis/statement/internal/auth/token"
	"github.com/smallbiznis/statement/internal/clock"
	"github.com/smallbiznis/statement/internal/config"
	"github.com/smallbiznis/statement/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	minPasswordLength = 8
	tokenType         = "Bearer"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Config config.Config
	Repo   domain.Repository
	Tokens *token.Issuer
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	cfg    config.AuthConfig
	repo   domain.Repository
	tokens *token.Issuer
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("auth.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		cfg:    p.Config.Auth,
		repo:   p.Repo,
		tokens: p.Tokens,
	}
}

func (s *Service) CreateUser(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	username := normalizeUsername(req.Username)
	if username == "" {
		return nil, domain.ErrInvalidUsername
	}
	if len(strings.TrimSpace(req.Password)) < minPasswordLength {
		return nil, domain.ErrWeakPassword
	}
	role, ok := domain.ParseRole(req.Role)
	if !ok {
		return nil, domain.ErrInvalidRole
	}

	if _, err := s.repo.FindByUsername(ctx, s.db, username); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = username
	}

	now := s.clock.Now()
	user := &domain.User{
		ID:           s.genID.Generate().String(),
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: hashed,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, s.db, user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrUserExists
		}
		return nil, err
	}

	s.log.Info("user created", zap.String("user_id", user.ID), zap.String("role", string(role)))
	return user, nil
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	username := normalizeUsername(req.Username)
	if username == "" || req.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByUsername(ctx, s.db, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !password.Verify(req.Password, user.PasswordHash) {
		s.log.Info("login rejected", zap.String("user_id", user.ID))
		return nil, domain.ErrInvalidCredentials
	}

	now := s.clock.Now()
	raw, expiresAt, err := s.tokens.Mint(user, now)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{"last_login_at": now}
	if password.NeedsRehash(user.PasswordHash) {
		if rehashed, err := password.Hash(req.Password); err == nil {
			fields["password_hash"] = rehashed
			user.PasswordHash = rehashed
		}
	}
	if err := s.repo.UpdateFields(ctx, s.db, user.ID, fields); err != nil {
		s.log.Warn("record last login failed", zap.String("user_id", user.ID), zap.Error(err))
	}
	user.LastLoginAt = &now

	return &domain.LoginResult{
		AccessToken: raw,
		TokenType:   tokenType,
		ExpiresAt:   expiresAt,
		User:        user,
	}, nil
}

func (s *Service) Authenticate(ctx context.Context, rawToken string) (*domain.Principal, error) {
	raw := strings.TrimSpace(rawToken)
	if raw == "" {
		return nil, domain.ErrInvalidToken
	}

	claims, err := s.tokens.Parse(raw, s.clock.Now())
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	return &domain.Principal{
		UserID:   claims.Subject,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}

// EnsureAdmin creates the configured admin account when no user with that
// name exists yet. It is a no-op without an admin password.
func (s *Service) EnsureAdmin(ctx context.Context) error {
	if !s.cfg.EnsureAdminOnBoot {
		return nil
	}
	username := normalizeUsername(s.cfg.AdminUsername)
	if username == "" || s.cfg.AdminPassword == "" {
		s.log.Warn("admin bootstrap skipped: ADMIN_USERNAME or ADMIN_PASSWORD not set")
		return nil
	}

	_, err := s.repo.FindByUsername(ctx, s.db, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return err
	}

	_, err = s.CreateUser(ctx, domain.CreateUserRequest{
		Username:    username,
		DisplayName: s.cfg.AdminDisplayName,
		Password:    s.cfg.AdminPassword,
		Role:        string(domain.RoleAdmin),
	})
	if errors.Is(err, domain.ErrUserExists) {
		return nil
	}
	return err
}

func normalizeUsername(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
