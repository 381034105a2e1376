package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"therapro/internal/adapters/storage"
	"therapro/internal/domain/account"
)

// AccountStoreForLogin defines the store interface needed by Login.
type AccountStoreForLogin interface {
	GetByUsername(ctx context.Context, username string) (account.Account, error)
}

// LoginInput carries input for the login orchestrator.
type LoginInput struct {
	Username string
	Password string
}

// LoginResult carries the identity a session is created for.
type LoginResult struct {
	AccountID   string
	Username    string
	Role        string
	TherapistID string
}

// LoginDeps holds dependencies for Login.
type LoginDeps struct {
	AccountStore AccountStoreForLogin
}

// ErrInvalidCredentials covers an unknown username and a wrong password alike so
// callers cannot tell the two apart.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ExecuteLogin checks a username and password pair.
// PRE: none
// POST: Returns the account identity on success, ErrInvalidCredentials for an
// unknown user or wrong password, or the wrapped store error
// INVARIANT: No state is modified
func ExecuteLogin(ctx context.Context, input LoginInput, deps LoginDeps) (LoginResult, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}

	acct, err := deps.AccountStore.GetByUsername(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		slog.Info("auth_event", "event", "login_failed", "username", username, "reason", "not_found")
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("load account: %w", err)
	}
	if err := acct.CheckPassword(input.Password); err != nil {
		slog.Info("auth_event", "event", "login_failed", "username", username, "reason", "wrong_password")
		return LoginResult{}, ErrInvalidCredentials
	}

	slog.Info("auth_event", "event", "login_success", "username", username, "role", acct.Role)
	return LoginResult{
		AccountID:   acct.ID,
		Username:    acct.Username,
		Role:        acct.Role,
		TherapistID: acct.TherapistID,
	}, nil
}
