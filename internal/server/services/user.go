// Package services contains server-side business logic. This file implements
// UserService, which handles registration, portal logins, device bookkeeping,
// and issuing/refreshing JWTs plus server-stored refresh tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/feedvault/internal/common"
	"github.com/dmitrijs2005/feedvault/internal/dbx"
	"github.com/dmitrijs2005/feedvault/internal/logging"
	"github.com/dmitrijs2005/feedvault/internal/server/auth"
	"github.com/dmitrijs2005/feedvault/internal/server/config"
	"github.com/dmitrijs2005/feedvault/internal/server/models"
	"github.com/dmitrijs2005/feedvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/feedvault/internal/server/repositories/users"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// LoginRequest carries credentials plus the client metadata recorded in the
// login history.
type LoginRequest struct {
	Email       string
	Password    string
	DeviceToken string
	IPAddress   string
	UserAgent   string
	Country     string
}

type LoginResult struct {
	TokenPair
	User        *models.User
	DeviceToken string
}

// UserService provides authentication-related operations:
// - Register: create users
// - Login: verify credentials on a role portal and mint tokens
// - RefreshToken: rotate refresh tokens and mint new access tokens
// - Authenticate: resolve an access token to a user for the HTTP layer
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	log                          logging.Logger
	jwtSecret                    []byte
	adminEmail                   string
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	now                          func() time.Time
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		log:                          log.With("module", "users"),
		jwtSecret:                    []byte(cfg.SecretKey),
		adminEmail:                   cfg.AdminEmail,
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		now:                          time.Now,
	}
}

// AccessTokenValidity is the lifetime used for the jwt cookie.
func (s *UserService) AccessTokenValidity() time.Duration { return s.accessTokenValidityDuration }

// RefreshTokenValidity is the lifetime used for the refresh token cookie.
func (s *UserService) RefreshTokenValidity() time.Duration { return s.refreshTokenValidityDuration }

// Register creates a user. The account is an admin iff its email matches the
// configured admin email.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", common.ErrorValidation)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, common.ErrorInternal
	}

	role := common.RoleUser
	if s.adminEmail != "" && strings.EqualFold(email, s.adminEmail) {
		role = common.RoleAdmin
	}

	user := &models.User{Name: name, Email: email, PasswordHash: hash, Role: role}
	u, err := s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.log.Info(ctx, "user registered", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// Login verifies credentials for the given portal role. Users of the other
// role are turned away with ErrWrongPortal. An unknown device token is stored
// as pending without blocking the login.
func (s *UserService) Login(ctx context.Context, portal string, req LoginRequest) (*LoginResult, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, common.ErrorInternal
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, common.ErrInvalidCredentials
	}

	// only reveal the role once the password checks out
	if user.Role != portal {
		s.log.Warn(ctx, "wrong login portal", "user_id", user.ID, "portal", portal, "role", user.Role)
		return nil, fmt.Errorf("%w: use /%s/login instead", common.ErrWrongPortal, user.Role)
	}

	device := req.DeviceToken
	if device == "" {
		device = uuid.NewString()
	}
	country := req.Country
	if country == "" {
		country = "Unknown"
	}
	now := s.now()

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		devs := s.repomanager.Devices(tx)
		approved, err := devs.IsApproved(ctx, user.ID, device)
		if err != nil {
			return fmt.Errorf("error checking device: %w", err)
		}
		if !approved {
			s.log.Info(ctx, "new device pending approval", "user_id", user.ID)
			if err := devs.AddPending(ctx, &models.Device{
				UserID:      user.ID,
				DeviceToken: device,
				IPAddress:   req.IPAddress,
				UserAgent:   req.UserAgent,
				Country:     country,
			}); err != nil {
				return fmt.Errorf("error storing device: %w", err)
			}
		}
		if err := devs.AddLogin(ctx, &models.LoginRecord{
			UserID:      user.ID,
			DeviceToken: device,
			IPAddress:   req.IPAddress,
			UserAgent:   req.UserAgent,
			Country:     country,
			LoginTime:   now,
		}); err != nil {
			return fmt.Errorf("error storing login: %w", err)
		}
		if err := s.repomanager.Users(tx).RecordLogin(ctx, user.ID, users.LoginInfo{
			IPAddress:   req.IPAddress,
			UserAgent:   req.UserAgent,
			Country:     country,
			DeviceToken: device,
			At:          now,
		}); err != nil {
			return fmt.Errorf("error recording login: %w", err)
		}

		var genErr error
		pair, genErr = s.generateTokenPair(ctx, user, device, tx)
		return genErr
	})
	if err != nil {
		return nil, err
	}

	user.LastLogin = &now
	user.DeviceToken = device
	user.IPAddress = req.IPAddress
	user.UserAgent = req.UserAgent
	user.Country = country

	s.log.Info(ctx, "login", "user_id", user.ID, "portal", portal, "country", country)
	return &LoginResult{TokenPair: *pair, User: user, DeviceToken: device}, nil
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. Expired tokens yield ErrRefreshTokenExpired.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.ExpiresAt.Before(s.now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, token.UserID)
	if err != nil {
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, user, token.DeviceToken, tx)
		return genErr
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout revokes the refresh token, if any.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.repomanager.RefreshTokens(s.db).Delete(ctx, refreshToken); err != nil {
		return fmt.Errorf("error deleting refresh token: %w", err)
	}
	return nil
}

// Authenticate resolves an access token to its user. A device cookie that
// differs from the user's current device yields ErrUnauthorizedDevice; a
// missing one is allowed.
func (s *UserService) Authenticate(ctx context.Context, accessToken, deviceToken string) (*models.User, error) {
	claims, err := auth.ParseToken(accessToken, s.jwtSecret)
	if err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	if deviceToken == "" {
		s.log.Debug(ctx, "no device token presented", "user_id", user.ID)
	} else if deviceToken != user.DeviceToken {
		s.log.Warn(ctx, "device mismatch", "user_id", user.ID)
		return nil, common.ErrUnauthorizedDevice
	}

	return user, nil
}

// Me returns the user with the given id.
func (s *UserService) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, userID)
}

// --- helpers below ---

func (s *UserService) generateAccessToken(user *models.User) (string, error) {
	return auth.GenerateToken(user.ID, user.Role, s.jwtSecret, s.accessTokenValidityDuration)
}

func (s *UserService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

// generateTokenPair mints an access token and stores a refresh token for
// device, pruning the user's expired refresh tokens on the way.
func (s *UserService) generateTokenPair(ctx context.Context, user *models.User, device string, tx dbx.DBTX) (*TokenPair, error) {
	access, err := s.generateAccessToken(user)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := s.generateRefreshToken()
	if err != nil {
		return nil, common.ErrorInternal
	}
	repo := s.repomanager.RefreshTokens(tx)
	now := s.now()
	if n, err := repo.DeleteExpired(ctx, user.ID, now); err != nil {
		return nil, common.ErrorInternal
	} else if n > 0 {
		s.log.Debug(ctx, "expired refresh tokens pruned", "user_id", user.ID, "count", n)
	}
	if err := repo.Create(ctx, &models.RefreshToken{
		UserID:      user.ID,
		Token:       refresh,
		DeviceToken: device,
		ExpiresAt:   now.Add(s.refreshTokenValidityDuration),
	}); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
