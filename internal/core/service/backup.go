package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mcnannay/peptrackr/internal/core/domain"
)

// BackupVersion is the current backup document version.
const BackupVersion = 1

// Backup is a point-in-time export of every store entry.
type Backup struct {
	Version    int                     `json:"version"`
	ExportedAt time.Time               `json:"exported_at"`
	Entries    map[string]domain.Value `json:"entries"`
}

// ImportResult summarizes an Import.
type ImportResult struct {
	Imported int
	Removed  int
}

// Export returns every stored entry.
//
// The export is read in a single unit of work; entries written concurrently
// may or may not be included.
func (s *StoreService) Export(ctx context.Context) (*Backup, error) {
	entries, err := s.GetMany(ctx, nil)
	if err != nil {
		return nil, err
	}

	s.logger.Info("store exported", "entries", len(entries))

	return &Backup{
		Version:    BackupVersion,
		ExportedAt: s.now().UTC(),
		Entries:    entries,
	}, nil
}

// Import puts every entry of b, one key at a time.
//
// There is no cross-key transaction: on failure the entries written so far
// stay written and the returned result reports how many were applied. With
// replace set, keys absent from b are deleted afterwards.
func (s *StoreService) Import(ctx context.Context, b *Backup, replace bool) (*ImportResult, error) {
	// 1. Validate the document
	if b == nil {
		return nil, domain.ErrInvalidBackup.WithDetails("empty document")
	}
	if b.Version != BackupVersion {
		return nil, domain.ErrInvalidBackup.WithDetails(
			fmt.Sprintf("unsupported version %d (want %d)", b.Version, BackupVersion),
		)
	}
	for key, value := range b.Entries {
		if err := domain.ValidateKey(key); err != nil {
			return nil, domain.ErrInvalidBackup.WithCause(err).WithDetails(fmt.Sprintf("key %q", key))
		}
		if value == nil {
			return nil, domain.ErrInvalidBackup.WithDetails(fmt.Sprintf("key %q has no value", key))
		}
	}

	// 2. Apply entries in key order so partial imports are predictable
	keys := make([]string, 0, len(b.Entries))
	for key := range b.Entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := &ImportResult{}
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if _, err := s.Put(ctx, key, b.Entries[key]); err != nil {
			return result, err
		}
		result.Imported++
	}

	// 3. Optionally remove keys the document does not mention
	if replace {
		current, err := s.GetMany(ctx, nil)
		if err != nil {
			return result, err
		}
		for key := range current {
			if _, keep := b.Entries[key]; keep {
				continue
			}
			if err := s.Delete(ctx, key); err != nil {
				if domain.IsDomainError(err, domain.ErrEntryNotFound.Code) {
					continue
				}
				return result, err
			}
			result.Removed++
		}
	}

	s.logger.Info("store imported",
		"imported", result.Imported,
		"removed", result.Removed,
		"replace", replace)

	return result, nil
}
