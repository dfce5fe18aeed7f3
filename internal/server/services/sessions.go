// Package services contains server-side business logic. SessionService
// orchestrates the credential lifecycle: registration, login, refresh
// rotation, logout, and password changes.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/taskboard/internal/common"
	"github.com/dmitrijs2005/taskboard/internal/dbx"
	"github.com/dmitrijs2005/taskboard/internal/logging"
	"github.com/dmitrijs2005/taskboard/internal/server/auth"
	"github.com/dmitrijs2005/taskboard/internal/server/config"
	"github.com/dmitrijs2005/taskboard/internal/server/models"
	"github.com/dmitrijs2005/taskboard/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
// The two credentials deliberately stay separate types of thing: the access
// token is unrevocable until blacklisted, the refresh token is a database row.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// RevocationList is the slice of the revocation store the session service
// needs: recording fingerprints on logout. Lookups belong to the gateway.
type RevocationList interface {
	Blacklist(ctx context.Context, fingerprint string, expiresAt time.Time)
}

// SessionService provides authentication-related operations:
//   - Register: create accounts and mint the first token pair
//   - Login: verify credentials and mint tokens
//   - Refresh: rotate refresh tokens and mint new access tokens
//   - ChangePassword: update the hash and revoke every refresh token
//   - Logout: delete the refresh record and blacklist the access token
type SessionService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	issuer                       *auth.TokenIssuer
	hasher                       *auth.PasswordHasher
	revocation                   RevocationList
	refreshTokenValidityDuration time.Duration
	logger                       logging.Logger
}

// NewSessionService constructs a SessionService using repositories and server config.
func NewSessionService(
	db *sql.DB,
	m repomanager.RepositoryManager,
	issuer *auth.TokenIssuer,
	hasher *auth.PasswordHasher,
	revocation RevocationList,
	cfg *config.Config,
	logger logging.Logger,
) *SessionService {
	return &SessionService{
		db:                           db,
		repomanager:                  m,
		issuer:                       issuer,
		hasher:                       hasher,
		revocation:                   revocation,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		logger:                       logger.With("module", "sessions"),
	}
}

// Register creates an account with the default role and performs the same
// issuance as Login. Duplicate emails yield common.ErrorEmailInUse.
func (s *SessionService) Register(ctx context.Context, email, password string) (*TokenPair, error) {
	repo := s.repomanager.Users(s.db)

	exists, err := repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if exists {
		return nil, common.ErrorEmailInUse
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user, err := repo.Create(ctx, &models.User{
		Email:        email,
		PasswordHash: hash,
		Roles:        []string{models.RoleUser},
	})
	if err != nil {
		return nil, common.ErrorInternal
	}

	return s.generateTokenPair(ctx, user, s.db)
}

// Login verifies the password against the stored hash and, on success,
// returns a new TokenPair. Absent principal and hash mismatch are both
// common.ErrorInvalidCredentials; nothing else leaks.
func (s *SessionService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorInvalidCredentials
		}
		return nil, common.ErrorInternal
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, common.ErrorInvalidCredentials
	}

	return s.generateTokenPair(ctx, user, s.db)
}

// Refresh validates a refresh token, rotates it, and returns a fresh
// TokenPair bound to the same principal. Rotation is a conditional
// delete-then-insert in one transaction: of two concurrent calls presenting
// the same token, exactly one wins; the other observes
// common.ErrRefreshTokenInvalid. A store failure mid-rotation is returned to
// the caller (fail-closed) — inventing a token on ambiguity would break the
// single-live-record invariant.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	record, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrRefreshTokenInvalid
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	// Absent and expired are the same outcome for the caller.
	if record.Expires.Before(time.Now()) {
		return nil, common.ErrRefreshTokenInvalid
	}

	user, err := s.repomanager.Users(s.db).FindByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrRefreshTokenInvalid
		}
		return nil, common.ErrorInternal
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		deleted, err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken)
		if err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		if !deleted {
			// A concurrent rotation already consumed this token.
			return common.ErrRefreshTokenInvalid
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, user, tx)
		return genErr
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// ChangePassword verifies the current password, stores the new hash, and
// revokes every refresh token the user holds, forcing re-authentication on
// every device. A wrong current password changes nothing.
func (s *SessionService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.repomanager.Users(s.db).FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorInvalidCredentials
		}
		return common.ErrorInternal
	}

	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		return common.ErrorInvalidCredentials
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return common.ErrorInternal
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).UpdatePassword(ctx, user.ID, hash); err != nil {
			return fmt.Errorf("error updating password: %w", err)
		}
		if err := s.repomanager.RefreshTokens(tx).DeleteByUser(ctx, user.ID); err != nil {
			return fmt.Errorf("error revoking refresh tokens: %w", err)
		}
		return nil
	})
}

// Logout deletes the refresh record if one is presented and blacklists the
// access token under its own embedded expiry, so the revocation entry
// self-expires exactly when the token would have. Both arguments are
// optional. Blacklist write failures never fail a logout.
func (s *SessionService) Logout(ctx context.Context, refreshToken, accessToken string) error {
	if refreshToken != "" {
		if _, err := s.repomanager.RefreshTokens(s.db).Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
	}

	if accessToken != "" {
		// ExpiryOf reads the embedded expiry without re-validating; an
		// unreadable token carries nothing worth revoking.
		if exp, err := s.issuer.ExpiryOf(accessToken); err == nil {
			s.revocation.Blacklist(ctx, auth.Fingerprint(accessToken), exp)
		}
	}

	return nil
}

// SweepExpired deletes refresh rows whose expiry has passed. Run periodically
// by the app; correctness never depends on it, row-level expiry checks do the
// real work.
func (s *SessionService) SweepExpired(ctx context.Context) {
	n, err := s.repomanager.RefreshTokens(s.db).DeleteExpired(ctx)
	if err != nil {
		s.logger.Error(ctx, "refresh token sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info(ctx, "swept expired refresh tokens", "deleted", n)
	}
}

func (s *SessionService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *SessionService) generateTokenPair(ctx context.Context, user *models.User, tx dbx.DBTX) (*TokenPair, error) {
	access, err := s.issuer.Issue(user.Email)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := s.generateRefreshToken()
	if err != nil {
		return nil, common.ErrorInternal
	}
	if err := s.repomanager.RefreshTokens(tx).Create(ctx, user.ID, refresh, s.refreshTokenValidityDuration); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
