package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"hanzireader/internal/fileutil"
	"hanzireader/internal/logging"
)

// Backup writes a consistent snapshot of the database to dest. The snapshot
// is built beside dest and renamed into place, so an existing backup is only
// replaced by a complete one.
func (s *Store) Backup(ctx context.Context, dest string) error {
	ctx = ensureContext(ctx)
	dest, err := filepath.Abs(dest)
	if err != nil {
		return opError("backup", "", ErrReadFailed, fmt.Errorf("resolve destination: %w", err))
	}
	if same, _ := samePath(dest, s.path); same {
		return opError("backup", "", ErrReadFailed, errors.New("destination is the live database"))
	}
	db, err := s.handle(ctx)
	if err != nil {
		return opError("backup", "", ErrReadFailed, err)
	}
	tmp, err := fileutil.TempSibling(dest)
	if err != nil {
		return opError("backup", "", ErrReadFailed, err)
	}
	if _, err := db.ExecContext(ctx, "VACUUM INTO ?", tmp); err != nil {
		_ = os.Remove(tmp)
		return opError("backup", "", ErrReadFailed, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return opError("backup", "", ErrReadFailed, fmt.Errorf("rename backup: %w", err))
	}
	s.logger.Info("store backup written",
		logging.String("destination", dest),
		logging.EventType("store_backup_written"),
	)
	return nil
}

func samePath(a, b string) (bool, error) {
	ai, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	return os.SameFile(ai, bi), nil
}
