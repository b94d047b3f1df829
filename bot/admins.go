package bot

import (
	"context"

	"verifybot/database"
	"verifybot/metrics"
)

// AdminStore persists which Telegram accounts may run privileged commands.
// The owner is always authorized whether or not a row exists.
type AdminStore struct {
	db      database.Database
	ownerID int64
}

// NewAdminStore builds an AdminStore bound to the owner account.
func NewAdminStore(db database.Database, ownerID int64) *AdminStore {
	return &AdminStore{db: db, ownerID: ownerID}
}

// SeedOwner ensures the owner account has an admin row. Idempotent.
func (s *AdminStore) SeedOwner(ctx context.Context, username string) error {
	metrics.IncrementDatabaseQuery("insert")
	_, err := s.db.Exec(ctx, `
        INSERT INTO bot_admins (telegram_id, username)
        VALUES ($1, $2)
        ON CONFLICT (telegram_id) DO NOTHING`,
		s.ownerID, username)
	return err
}

// IsAdmin reports whether the account may run privileged commands.
func (s *AdminStore) IsAdmin(ctx context.Context, telegramID int64) (bool, error) {
	if telegramID == s.ownerID {
		return true, nil
	}
	var exists bool
	metrics.IncrementDatabaseQuery("select")
	err := s.db.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM bot_admins WHERE telegram_id = $1)",
		telegramID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// Promote grants admin rights to an account. Idempotent.
func (s *AdminStore) Promote(ctx context.Context, telegramID int64, username string) error {
	metrics.IncrementDatabaseQuery("insert")
	_, err := s.db.Exec(ctx, `
        INSERT INTO bot_admins (telegram_id, username)
        VALUES ($1, $2)
        ON CONFLICT (telegram_id) DO UPDATE SET username = EXCLUDED.username`,
		telegramID, username)
	return err
}

// Demote revokes admin rights. The owner cannot be demoted.
func (s *AdminStore) Demote(ctx context.Context, telegramID int64) (bool, error) {
	if telegramID == s.ownerID {
		return false, nil
	}
	metrics.IncrementDatabaseQuery("delete")
	tag, err := s.db.Exec(ctx, "DELETE FROM bot_admins WHERE telegram_id = $1", telegramID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// OwnerID returns the configured owner account ID.
func (s *AdminStore) OwnerID() int64 {
	return s.ownerID
}
