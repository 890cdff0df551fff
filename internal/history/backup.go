package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sjhan/battmon/internal/model"
)

// ErrBackupMissing is returned by Restore when the backup file does not exist.
var ErrBackupMissing = errors.New("backup file not found")

// exportWindowDays is how much history the JSON export carries.
const exportWindowDays = 365

// CreateBackup copies the database file to a timestamped path in the backup
// directory and writes a JSON export of the trailing year alongside it. The
// live file is never mutated. Returns the path of the binary copy.
func (s *Store) CreateBackup() (string, error) {
	// Fold the WAL into the main file so the copy is self-contained.
	if _, err := s.conn().Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		slog.Debug("wal checkpoint before backup failed", "error", err)
	}

	base, err := s.backupName(time.Now())
	if err != nil {
		return "", err
	}
	dbCopy := base + ".db"
	if err := copyFile(s.dbPath, dbCopy); err != nil {
		return "", fmt.Errorf("copying database to %s: %w", dbCopy, err)
	}

	// The JSON export is best-effort: a serialization failure must not
	// invalidate the binary backup that already succeeded.
	jsonPath := base + ".json"
	if err := s.exportJSON(jsonPath); err != nil {
		slog.Warn("json export failed", "path", jsonPath, "error", err)
	}

	return dbCopy, nil
}

// backupName returns a collision-free artifact path prefix for the given
// time. Two backups within the same second get distinct names. Only a
// definite not-exist result claims a slot; any other stat error means the
// backup directory is unusable and the whole backup must fail.
func (s *Store) backupName(now time.Time) (string, error) {
	stamp := now.Format("20060102_150405")
	base := filepath.Join(s.backupDir, "battery_history_backup_"+stamp)
	candidate := base
	for i := 1; ; i++ {
		_, err := os.Stat(candidate + ".db")
		if errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("probing backup path %s: %w", candidate+".db", err)
		}
		candidate = fmt.Sprintf("%s_%d", base, i)
	}
}

// Restore replaces the live database with the contents of backupPath. The
// current live database is snapshotted first; if that snapshot cannot be
// written the restore aborts before touching the live file.
func (s *Store) Restore(backupPath string) error {
	if _, err := os.Stat(backupPath); err != nil {
		return fmt.Errorf("%w: %s", ErrBackupMissing, backupPath)
	}

	snap, err := s.CreateBackup()
	if err != nil {
		return fmt.Errorf("snapshotting live database before restore: %w", err)
	}
	slog.Info("live database snapshotted before restore", "path", snap)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing database for restore: %w", err)
	}

	if err := copyFile(backupPath, s.dbPath); err != nil {
		// Reopen whatever is on disk so the store stays usable.
		if db, openErr := open(s.dbPath); openErr == nil {
			s.db = db
		}
		return fmt.Errorf("restoring database from %s: %w", backupPath, err)
	}

	// Stale WAL/SHM files belong to the overwritten database.
	os.Remove(s.dbPath + "-wal")
	os.Remove(s.dbPath + "-shm")

	db, err := open(s.dbPath)
	if err != nil {
		return fmt.Errorf("reopening restored database: %w", err)
	}
	s.db = db
	return nil
}

// exportJSON serializes the trailing year of both record kinds to path.
func (s *Store) exportJSON(path string) error {
	desktop, err := s.DesktopHistory(exportWindowDays)
	if err != nil {
		return err
	}
	mobile, err := s.MobileHistory("", exportWindowDays)
	if err != nil {
		return err
	}

	doc := model.Export{
		ExportDate:     time.Now(),
		Version:        model.DataVersion,
		DesktopHistory: desktop,
		MobileHistory:  mobile,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
