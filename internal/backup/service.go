package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/feedmill/feedmill/internal/shared"
)

// maxRestoreBytes bounds uploaded snapshots.
const maxRestoreBytes = 64 << 20

// Service exports and restores snapshots.
type Service struct {
	repo        Repository
	invalidator shared.Invalidator
	now         func() time.Time
}

func NewService(repo Repository, invalidator shared.Invalidator) *Service {
	if invalidator == nil {
		invalidator = shared.NopInvalidator{}
	}
	return &Service{repo: repo, invalidator: invalidator, now: time.Now}
}

// FileName is the attachment name for a snapshot taken at t.
func FileName(t time.Time) string {
	return "backup_" + t.Format("2006-01-02") + ".json"
}

func (s *Service) Export(ctx context.Context) (Snapshot, error) {
	snap, err := s.repo.Export(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("export snapshot: %w", err)
	}
	snap.CreatedAt = s.now().UTC()
	return snap, nil
}

// WriteTo streams a fresh snapshot as indented JSON.
func (s *Service) WriteTo(ctx context.Context, w io.Writer) error {
	snap, err := s.Export(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// Restore replaces every business table with the snapshot read from r.
func (s *Service) Restore(ctx context.Context, r io.Reader) (Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(io.LimitReader(r, maxRestoreBytes)).Decode(&snap); err != nil {
		return Snapshot{}, shared.Invalid("backup file is not valid JSON")
	}
	if err := snap.Check(); err != nil {
		return Snapshot{}, err
	}
	if err := s.repo.Restore(ctx, snap); err != nil {
		return Snapshot{}, fmt.Errorf("restore snapshot: %w", err)
	}
	_ = s.invalidator.Bump(ctx)
	return snap, nil
}

// SaveToDir writes a snapshot into dir and returns the file path. Scheduled
// runs may land on the same day, so the name carries a random suffix.
func (s *Service) SaveToDir(ctx context.Context, dir string) (string, error) {
	if dir == "" {
		return "", shared.Invalid("backup directory is not configured")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	now := s.now()
	name := fmt.Sprintf("backup_%s_%s.json", now.Format("2006-01-02"), uuid.NewString()[:8])
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", fmt.Errorf("open backup file: %w", err)
	}
	if err := s.WriteTo(ctx, f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close backup file: %w", err)
	}
	return path, nil
}
