package cache

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"gitlab.com/mipimipi/rosecache/internal/store"
)

// ErrLockHeld is returned by AcquireLock when another holder's lease has
// not yet expired.
var ErrLockHeld = errors.New("lock is held by another scanner")

// AcquireLock implements spec.md §4.J: a row in the locks table keyed by
// name, with an explicit lease expiry. A stale lease (valid_until in the
// past) is free for the taking.
func AcquireLock(db *store.DB, name string, lease time.Duration) error {
	now := time.Now().Unix()
	validUntil := time.Now().Add(lease).Unix()

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "cannot begin lock transaction")
	}
	defer tx.Rollback()

	var existing int64
	err = tx.QueryRow("SELECT valid_until FROM locks WHERE name = ?", name).Scan(&existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// free to acquire
	case err != nil:
		return errors.Wrap(err, "cannot read lock row")
	case existing > now:
		return ErrLockHeld
	}

	if _, err := tx.Exec(
		"INSERT INTO locks (name, valid_until) VALUES (?, ?) ON CONFLICT(name) DO UPDATE SET valid_until = excluded.valid_until",
		name, validUntil,
	); err != nil {
		return errors.Wrap(err, "cannot write lock row")
	}

	return tx.Commit()
}

// RenewLock extends a held lock's lease, used mid-scan for long-running
// cycles so the lock does not expire out from under the orchestrator.
func RenewLock(db *store.DB, name string, lease time.Duration) error {
	validUntil := time.Now().Add(lease).Unix()
	_, err := db.Exec("UPDATE locks SET valid_until = ? WHERE name = ?", validUntil, name)
	if err != nil {
		return errors.Wrap(err, "cannot renew lock")
	}
	return nil
}

// ReleaseLock deletes the lock row, making the scope immediately available.
func ReleaseLock(db *store.DB, name string) error {
	_, err := db.Exec("DELETE FROM locks WHERE name = ?", name)
	if err != nil {
		return errors.Wrap(err, "cannot release lock")
	}
	return nil
}
