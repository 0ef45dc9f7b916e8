package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mcnannay/peptrackr/internal/core/domain"
)

func TestStoreService_Export(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	svc := NewStoreService(newMockEntryRepo(), WithClock(func() time.Time { return fixed }))

	svc.Put(ctx, "theme", domain.MustValue(`"dark"`))
	svc.Put(ctx, "doses", domain.MustValue(`[{"mg":2.5}]`))

	b, err := svc.Export(ctx)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if b.Version != BackupVersion {
		t.Errorf("Version = %d, want %d", b.Version, BackupVersion)
	}
	if !b.ExportedAt.Equal(fixed) || b.ExportedAt.Location() != time.UTC {
		t.Errorf("ExportedAt = %v, want %v in UTC", b.ExportedAt, fixed)
	}
	if len(b.Entries) != 2 {
		t.Fatalf("Entries = %d, want 2", len(b.Entries))
	}

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded Backup
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !decoded.Entries["doses"].Equal(b.Entries["doses"]) {
		t.Errorf("decoded doses = %s, want %s", decoded.Entries["doses"], b.Entries["doses"])
	}
}

func TestStoreService_Import(t *testing.T) {
	ctx := context.Background()

	newBackup := func() *Backup {
		return &Backup{
			Version: BackupVersion,
			Entries: map[string]domain.Value{
				"a": domain.MustValue(`1`),
				"b": domain.MustValue(`{"x":true}`),
			},
		}
	}

	t.Run("merge keeps other keys", func(t *testing.T) {
		repo := newMockEntryRepo()
		svc := NewStoreService(repo)
		svc.Put(ctx, "a", domain.MustValue(`0`))
		svc.Put(ctx, "z", domain.MustValue(`"keep"`))

		res, err := svc.Import(ctx, newBackup(), false)
		if err != nil {
			t.Fatalf("Import() error = %v", err)
		}
		if res.Imported != 2 || res.Removed != 0 {
			t.Errorf("Import() = %+v, want 2 imported, 0 removed", res)
		}
		if len(repo.entries) != 3 {
			t.Errorf("stored %d entries, want 3", len(repo.entries))
		}
		if got := repo.entries["a"].String(); got != "1" {
			t.Errorf("a = %s, want 1", got)
		}
	})

	t.Run("replace removes other keys", func(t *testing.T) {
		repo := newMockEntryRepo()
		svc := NewStoreService(repo)
		svc.Put(ctx, "z", domain.MustValue(`"drop"`))

		res, err := svc.Import(ctx, newBackup(), true)
		if err != nil {
			t.Fatalf("Import() error = %v", err)
		}
		if res.Imported != 2 || res.Removed != 1 {
			t.Errorf("Import() = %+v, want 2 imported, 1 removed", res)
		}
		if _, ok := repo.entries["z"]; ok {
			t.Error("z should have been removed")
		}
	})

	t.Run("export then import restores state", func(t *testing.T) {
		src := NewStoreService(newMockEntryRepo())
		src.Put(ctx, "settings", domain.MustValue(`{"units":"mg"}`))
		src.Put(ctx, "flag", domain.MustValue(`false`))

		b, err := src.Export(ctx)
		if err != nil {
			t.Fatalf("Export() error = %v", err)
		}

		dst := NewStoreService(newMockEntryRepo())
		if _, err := dst.Import(ctx, b, true); err != nil {
			t.Fatalf("Import() error = %v", err)
		}
		got, err := dst.GetMany(ctx, nil)
		if err != nil {
			t.Fatalf("GetMany() error = %v", err)
		}
		if len(got) != 2 || !got["settings"].Equal(b.Entries["settings"]) {
			t.Errorf("restored = %v, want %v", got, b.Entries)
		}
	})
}

func TestStoreService_ImportRejects(t *testing.T) {
	ctx := context.Background()
	svc := NewStoreService(newMockEntryRepo())

	tests := []struct {
		name string
		b    *Backup
	}{
		{"nil document", nil},
		{"wrong version", &Backup{Version: 99}},
		{"empty key", &Backup{Version: BackupVersion, Entries: map[string]domain.Value{"": domain.MustValue(`1`)}}},
		{"missing value", &Backup{Version: BackupVersion, Entries: map[string]domain.Value{"k": nil}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Import(ctx, tt.b, false)
			if !errors.Is(err, domain.ErrInvalidBackup) {
				t.Errorf("Import() error = %v, want ErrInvalidBackup", err)
			}
		})
	}
}

func TestStoreService_ImportCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := newMockEntryRepo()
	svc := NewStoreService(repo)
	res, err := svc.Import(ctx, &Backup{
		Version: BackupVersion,
		Entries: map[string]domain.Value{"a": domain.MustValue(`1`)},
	}, false)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Import() error = %v, want context.Canceled", err)
	}
	if res == nil || res.Imported != 0 {
		t.Errorf("Import() result = %+v, want 0 imported", res)
	}
	if len(repo.entries) != 0 {
		t.Errorf("stored %d entries, want 0", len(repo.entries))
	}
}
