// Package repository holds the SQL access layer. Sentinel errors let the
// service layer tell missing rows, uniqueness violations and lost
// compare-and-swap updates apart without inspecting driver errors.
package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when no live row matches.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a guarded UPDATE matched no row because the
// guard (stock > 0, status = active) no longer holds.
var ErrConflict = errors.New("conflict")

// ErrDuplicate is matched by every *DuplicateError.
var ErrDuplicate = errors.New("duplicate key")

// MySQL server error numbers inspected by this package.
const (
	mysqlDuplicateEntry  = 1062
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// DuplicateError reports which unique key rejected a write.
type DuplicateError struct {
	Key string // index name without table prefix, e.g. uq_users_email_live
	Err error
}

func (e *DuplicateError) Error() string        { return "duplicate entry for key " + e.Key }
func (e *DuplicateError) Unwrap() error        { return e.Err }
func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

// DuplicateKey returns the violated key name when err is a duplicate error.
func DuplicateKey(err error) (string, bool) {
	var de *DuplicateError
	if errors.As(err, &de) {
		return de.Key, true
	}
	return "", false
}

// classify turns driver errors into the package sentinels.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return &DuplicateError{Key: duplicateKeyName(me.Message), Err: err}
	}
	return err
}

// duplicateKeyName extracts the key from
// "Duplicate entry 'x' for key 'users.uq_users_email_live'".
func duplicateKeyName(msg string) string {
	i := strings.LastIndex(msg, "for key '")
	if i < 0 {
		return ""
	}
	key := strings.TrimSuffix(msg[i+len("for key '"):], "'")
	if dot := strings.LastIndex(key, "."); dot >= 0 {
		key = key[dot+1:]
	}
	return key
}

// IsRetryable reports whether the transaction that produced err was rolled
// back by InnoDB and may succeed when run again.
func IsRetryable(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDeadlock || me.Number == mysqlLockWaitTimeout
	}
	return false
}
