package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mcnannay/peptrackr/internal/core/domain"
)

// mockEntryRepo is an in-memory EntryRepository for testing.
type mockEntryRepo struct {
	mu      sync.Mutex
	entries map[string]domain.Value

	// Hooks to simulate storage behaviour.
	failWith      error
	existsLies    bool // Exists reports the opposite of the truth once
	togglesLeft   int  // next N Insert/Replace calls see the key flipped first
	insertCalls   int
	replaceCalls  int
	upsertCalls   int
	findRequested []string
}

func newMockEntryRepo() *mockEntryRepo {
	return &mockEntryRepo{entries: make(map[string]domain.Value)}
}

func (m *mockEntryRepo) Get(_ context.Context, key string) (domain.Value, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	v, ok := m.entries[key]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	return v.Clone(), nil
}

func (m *mockEntryRepo) Find(_ context.Context, keys []string) (map[string]domain.Value, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	m.findRequested = append([]string(nil), keys...)
	out := make(map[string]domain.Value)
	for _, k := range keys {
		if v, ok := m.entries[k]; ok {
			out[k] = v.Clone()
		}
	}
	return out, nil
}

func (m *mockEntryRepo) All(_ context.Context) (map[string]domain.Value, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := make(map[string]domain.Value, len(m.entries))
	for k, v := range m.entries {
		out[k] = v.Clone()
	}
	return out, nil
}

func (m *mockEntryRepo) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return false, m.failWith
	}
	_, ok := m.entries[key]
	if m.existsLies {
		m.existsLies = false
		return !ok, nil
	}
	return ok, nil
}

// toggle simulates a concurrent writer or deleter landing just before a write.
func (m *mockEntryRepo) toggle(key string) {
	if m.togglesLeft == 0 {
		return
	}
	m.togglesLeft--
	if _, ok := m.entries[key]; ok {
		delete(m.entries, key)
	} else {
		m.entries[key] = domain.MustValue(`"rival"`)
	}
}

func (m *mockEntryRepo) Insert(_ context.Context, e *domain.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertCalls++
	m.toggle(e.Key)
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.entries[e.Key]; ok {
		return domain.ErrEntryConflict
	}
	m.entries[e.Key] = e.Value.Clone()
	return nil
}

func (m *mockEntryRepo) Replace(_ context.Context, e *domain.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaceCalls++
	m.toggle(e.Key)
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.entries[e.Key]; !ok {
		return domain.ErrEntryNotFound
	}
	m.entries[e.Key] = e.Value.Clone()
	return nil
}

func (m *mockEntryRepo) Upsert(_ context.Context, e *domain.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertCalls++
	if m.failWith != nil {
		return m.failWith
	}
	m.entries[e.Key] = e.Value.Clone()
	return nil
}

func (m *mockEntryRepo) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.entries[key]; !ok {
		return domain.ErrEntryNotFound
	}
	delete(m.entries, key)
	return nil
}

func (m *mockEntryRepo) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return 0, m.failWith
	}
	return len(m.entries), nil
}

func (m *mockEntryRepo) Ping(_ context.Context) error {
	return m.failWith
}

func (m *mockEntryRepo) Close() error { return nil }

// recordingObserver captures observed operations.
type recordingObserver struct {
	mu   sync.Mutex
	seen []string
}

func (o *recordingObserver) ObserveOp(op, result string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, op+":"+result)
}

func (o *recordingObserver) last() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.seen) == 0 {
		return ""
	}
	return o.seen[len(o.seen)-1]
}

func TestStoreService_PutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := NewStoreService(newMockEntryRepo())

	values := []string{
		`null`,
		`true`,
		`3.14`,
		`"dark"`,
		`[1,"two",null,{"three":3}]`,
		`{"meds":[{"name":"sema","dose":0.25}],"nested":{"deep":{"deeper":[]}}}`,
	}

	for _, raw := range values {
		t.Run(raw, func(t *testing.T) {
			v := domain.MustValue(raw)
			res, err := svc.Put(ctx, "k", v)
			if err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			if res.Key != "k" {
				t.Errorf("Put() key = %q, want %q", res.Key, "k")
			}

			got, err := svc.Get(ctx, "k")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if !got.Equal(v) {
				t.Errorf("Get() = %s, want %s", got, v)
			}
		})
	}
}

func TestStoreService_PutLastWriteWins(t *testing.T) {
	ctx := context.Background()
	repo := newMockEntryRepo()
	svc := NewStoreService(repo)

	first, err := svc.Put(ctx, "settings", domain.MustValue(`{"a":1,"b":2}`))
	if err != nil {
		t.Fatalf("first Put() error = %v", err)
	}
	if !first.Created {
		t.Error("first Put() should report Created")
	}

	second, err := svc.Put(ctx, "settings", domain.MustValue(`{"c":3}`))
	if err != nil {
		t.Fatalf("second Put() error = %v", err)
	}
	if second.Created {
		t.Error("second Put() should report a replace")
	}

	got, err := svc.Get(ctx, "settings")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	// No merge: the first document's keys are gone.
	if got.String() != `{"c":3}` {
		t.Errorf("Get() = %s, want {\"c\":3}", got)
	}
	if repo.insertCalls != 1 || repo.replaceCalls != 1 {
		t.Errorf("insert/replace calls = %d/%d, want 1/1", repo.insertCalls, repo.replaceCalls)
	}
}

func TestStoreService_PutIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newMockEntryRepo()
	svc := NewStoreService(repo)
	v := domain.MustValue(`["a","b"]`)

	for i := 0; i < 3; i++ {
		if _, err := svc.Put(ctx, "list", v); err != nil {
			t.Fatalf("Put() #%d error = %v", i, err)
		}
	}

	all, err := svc.GetMany(ctx, nil)
	if err != nil {
		t.Fatalf("GetMany() error = %v", err)
	}
	if len(all) != 1 || !all["list"].Equal(v) {
		t.Errorf("GetMany() = %v, want single entry %s", all, v)
	}
}

func TestStoreService_PutRaces(t *testing.T) {
	ctx := context.Background()

	t.Run("insert loses to concurrent insert", func(t *testing.T) {
		repo := newMockEntryRepo()
		repo.entries["k"] = domain.MustValue(`1`)
		repo.existsLies = true // lookup says absent, row is present

		svc := NewStoreService(repo)
		res, err := svc.Put(ctx, "k", domain.MustValue(`2`))
		if err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if res.Created {
			t.Error("Put() should fall back to replace")
		}
		if got := repo.entries["k"].String(); got != "2" {
			t.Errorf("stored = %s, want 2", got)
		}
	})

	t.Run("replace loses to concurrent delete", func(t *testing.T) {
		repo := newMockEntryRepo()
		repo.existsLies = true // lookup says present, row is gone

		svc := NewStoreService(repo)
		res, err := svc.Put(ctx, "k", domain.MustValue(`3`))
		if err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if !res.Created {
			t.Error("Put() should fall back to insert")
		}
		if got := repo.entries["k"].String(); got != "3" {
			t.Errorf("stored = %s, want 3", got)
		}
	})

	t.Run("insert and fallback replace both lose", func(t *testing.T) {
		repo := newMockEntryRepo()
		repo.togglesLeft = 2 // inserted before Insert, deleted before Replace

		svc := NewStoreService(repo)
		res, err := svc.Put(ctx, "k", domain.MustValue(`4`))
		if err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if !res.Created {
			t.Error("Put() after a lost replace should report created")
		}
		if repo.upsertCalls != 1 {
			t.Errorf("upsertCalls = %d, want 1", repo.upsertCalls)
		}
		if got := repo.entries["k"].String(); got != "4" {
			t.Errorf("stored = %s, want 4", got)
		}
	})

	t.Run("replace and fallback insert both lose", func(t *testing.T) {
		repo := newMockEntryRepo()
		repo.entries["k"] = domain.MustValue(`1`)
		repo.togglesLeft = 2 // deleted before Replace, inserted before Insert

		svc := NewStoreService(repo)
		res, err := svc.Put(ctx, "k", domain.MustValue(`5`))
		if err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if res.Created {
			t.Error("Put() after a lost insert should report replaced")
		}
		if repo.upsertCalls != 1 {
			t.Errorf("upsertCalls = %d, want 1", repo.upsertCalls)
		}
		if got := repo.entries["k"].String(); got != "5" {
			t.Errorf("stored = %s, want 5", got)
		}
	})
}

func TestStoreService_PutValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewStoreService(newMockEntryRepo())

	if _, err := svc.Put(ctx, "", domain.MustValue(`1`)); !errors.Is(err, domain.ErrInvalidKey) {
		t.Errorf("Put(empty key) error = %v, want ErrInvalidKey", err)
	}
	if _, err := svc.Put(ctx, "k", nil); !errors.Is(err, domain.ErrInvalidValue) {
		t.Errorf("Put(nil value) error = %v, want ErrInvalidValue", err)
	}
}

func TestStoreService_GetNotFound(t *testing.T) {
	ctx := context.Background()
	svc := NewStoreService(newMockEntryRepo())

	for _, key := range []string{"missing", ""} {
		_, err := svc.Get(ctx, key)
		if !errors.Is(err, domain.ErrEntryNotFound) {
			t.Errorf("Get(%q) error = %v, want ErrEntryNotFound", key, err)
		}
	}
}

func TestStoreService_Delete(t *testing.T) {
	ctx := context.Background()
	svc := NewStoreService(newMockEntryRepo())

	if err := svc.Delete(ctx, "absent"); !errors.Is(err, domain.ErrEntryNotFound) {
		t.Errorf("Delete(absent) error = %v, want ErrEntryNotFound", err)
	}

	if _, err := svc.Put(ctx, "theme", domain.MustValue(`"dark"`)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := svc.Delete(ctx, "theme"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.Get(ctx, "theme"); !errors.Is(err, domain.ErrEntryNotFound) {
		t.Errorf("Get() after Delete error = %v, want ErrEntryNotFound", err)
	}
	if err := svc.Delete(ctx, "theme"); !errors.Is(err, domain.ErrEntryNotFound) {
		t.Errorf("second Delete() error = %v, want ErrEntryNotFound", err)
	}
}

func TestStoreService_GetMany(t *testing.T) {
	ctx := context.Background()
	repo := newMockEntryRepo()
	svc := NewStoreService(repo)

	for k, raw := range map[string]string{"k1": `1`, "k3": `"three"`} {
		if _, err := svc.Put(ctx, k, domain.MustValue(raw)); err != nil {
			t.Fatalf("Put(%s) error = %v", k, err)
		}
	}

	t.Run("missing keys omitted", func(t *testing.T) {
		got, err := svc.GetMany(ctx, []string{"k1", "k2"})
		if err != nil {
			t.Fatalf("GetMany() error = %v", err)
		}
		if len(got) != 1 || got["k1"].String() != "1" {
			t.Errorf("GetMany() = %v, want {k1: 1}", got)
		}
	})

	t.Run("nil keys returns all", func(t *testing.T) {
		got, err := svc.GetMany(ctx, nil)
		if err != nil {
			t.Fatalf("GetMany() error = %v", err)
		}
		if len(got) != 2 {
			t.Errorf("GetMany() returned %d entries, want 2", len(got))
		}
	})

	t.Run("empty keys returns nothing", func(t *testing.T) {
		got, err := svc.GetMany(ctx, []string{})
		if err != nil {
			t.Fatalf("GetMany() error = %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("GetMany() = %v, want empty map", got)
		}
	})

	t.Run("duplicates and invalid keys collapse", func(t *testing.T) {
		got, err := svc.GetMany(ctx, []string{"k3", "", "k3", "k1"})
		if err != nil {
			t.Fatalf("GetMany() error = %v", err)
		}
		if len(got) != 2 {
			t.Errorf("GetMany() returned %d entries, want 2", len(got))
		}
		want := []string{"k1", "k3"}
		if len(repo.findRequested) != len(want) {
			t.Fatalf("Find() requested %v, want %v", repo.findRequested, want)
		}
		for i := range want {
			if repo.findRequested[i] != want[i] {
				t.Errorf("Find() requested %v, want %v", repo.findRequested, want)
			}
		}
	})
}

func TestStoreService_StorageFailure(t *testing.T) {
	ctx := context.Background()
	repo := newMockEntryRepo()
	repo.failWith = errors.New("database is locked")
	svc := NewStoreService(repo)

	checks := map[string]error{}
	_, checks["get"] = svc.Get(ctx, "k")
	_, checks["get_many"] = svc.GetMany(ctx, nil)
	_, checks["put"] = svc.Put(ctx, "k", domain.MustValue(`1`))
	checks["delete"] = svc.Delete(ctx, "k")
	_, checks["count"] = svc.Count(ctx)

	for op, err := range checks {
		if !errors.Is(err, domain.ErrStorageError) {
			t.Errorf("%s error = %v, want ErrStorageError", op, err)
		}
		if !errors.Is(err, repo.failWith) {
			t.Errorf("%s error should wrap the backend cause", op)
		}
	}

	if err := svc.Ping(ctx); !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Errorf("Ping() error = %v, want ErrServiceUnavailable", err)
	}
}

func TestStoreService_Observer(t *testing.T) {
	ctx := context.Background()
	obs := &recordingObserver{}
	svc := NewStoreService(newMockEntryRepo(), WithObserver(obs))

	steps := []struct {
		run  func()
		want string
	}{
		{func() { svc.Put(ctx, "k", domain.MustValue(`1`)) }, "put:created"},
		{func() { svc.Put(ctx, "k", domain.MustValue(`2`)) }, "put:replaced"},
		{func() { svc.Get(ctx, "k") }, "get:ok"},
		{func() { svc.Get(ctx, "nope") }, "get:not_found"},
		{func() { svc.GetMany(ctx, nil) }, "get_many:ok"},
		{func() { svc.Delete(ctx, "k") }, "delete:ok"},
		{func() { svc.Delete(ctx, "k") }, "delete:not_found"},
		{func() { svc.Put(ctx, "", domain.MustValue(`1`)) }, "put:invalid"},
	}

	for _, step := range steps {
		step.run()
		if got := obs.last(); got != step.want {
			t.Errorf("observed %q, want %q", got, step.want)
		}
	}
}

func TestStoreService_ThemeExample(t *testing.T) {
	ctx := context.Background()
	svc := NewStoreService(newMockEntryRepo())

	res, err := svc.Put(ctx, "theme", domain.MustValue(`"dark"`))
	if err != nil || res.Key != "theme" {
		t.Fatalf("Put() = %+v, %v", res, err)
	}
	got, err := svc.Get(ctx, "theme")
	if err != nil || got.String() != `"dark"` {
		t.Fatalf("Get() = %s, %v", got, err)
	}
	if err := svc.Delete(ctx, "theme"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.Get(ctx, "theme"); !errors.Is(err, domain.ErrEntryNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrEntryNotFound", err)
	}
}
