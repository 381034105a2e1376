package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"therapro/internal/adapters/storage"
	"therapro/internal/domain/account"
)

// AccountStoreForSeed defines the store interface needed by SeedAccounts.
type AccountStoreForSeed interface {
	GetByUsername(ctx context.Context, username string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
}

// AccountSeed describes one configured login.
type AccountSeed struct {
	Username    string
	Password    string
	Role        string
	TherapistID string
}

// SeedAccountsDeps holds dependencies for SeedAccounts.
type SeedAccountsDeps struct {
	AccountStore AccountStoreForSeed
}

// ExecuteSeedAccounts creates each configured account that does not exist yet.
// Existing accounts keep their password so a changed config cannot silently
// reset one; the therapist link is refreshed.
// PRE: Database is migrated
// POST: An account exists for every seed username
func ExecuteSeedAccounts(ctx context.Context, deps SeedAccountsDeps, seeds []AccountSeed) error {
	for _, seed := range seeds {
		existing, err := deps.AccountStore.GetByUsername(ctx, seed.Username)
		switch {
		case err == nil:
			if existing.TherapistID == seed.TherapistID {
				continue
			}
			existing.TherapistID = seed.TherapistID
			if err := existing.Validate(); err != nil {
				return fmt.Errorf("seed account %s: %w", seed.Username, err)
			}
			if err := deps.AccountStore.Save(ctx, existing); err != nil {
				return fmt.Errorf("seed account %s: %w", seed.Username, err)
			}
			continue
		case !errors.Is(err, storage.ErrNotFound):
			return fmt.Errorf("seed account %s: %w", seed.Username, err)
		}

		acct := account.Account{
			ID:          uuid.New().String(),
			Username:    seed.Username,
			Role:        seed.Role,
			TherapistID: seed.TherapistID,
			CreatedAt:   time.Now(),
		}
		if err := acct.Validate(); err != nil {
			return fmt.Errorf("seed account %s: %w", seed.Username, err)
		}
		if err := acct.SetPassword(seed.Password); err != nil {
			return fmt.Errorf("seed account %s: %w", seed.Username, err)
		}
		if err := deps.AccountStore.Save(ctx, acct); err != nil {
			return fmt.Errorf("seed account %s: %w", seed.Username, err)
		}
		slog.Info("auth_event", "event", "account_seeded", "username", seed.Username, "role", seed.Role)
	}
	return nil
}
