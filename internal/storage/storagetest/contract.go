// Package storagetest holds the behaviour every EntryRepository must share.
//
// Backend packages call Run from their own tests with a constructor that
// returns a fresh, empty repository.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mcnannay/peptrackr/internal/core/domain"
	"github.com/mcnannay/peptrackr/internal/core/service"
)

// Factory returns an empty repository. Cleanup is registered on t.
type Factory func(t *testing.T) service.EntryRepository

// Run exercises repo-level behaviour and the store properties through a
// StoreService built on the repository.
func Run(t *testing.T, open Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, repo service.EntryRepository)
	}{
		{"InsertGet", testInsertGet},
		{"InsertConflict", testInsertConflict},
		{"ReplaceMissing", testReplaceMissing},
		{"Upsert", testUpsert},
		{"DeleteMissing", testDeleteMissing},
		{"FindAllCount", testFindAllCount},
		{"OpaqueKeys", testOpaqueKeys},
		{"RoundTrip", testRoundTrip},
		{"LastWriteWins", testLastWriteWins},
		{"GetManyPartial", testGetManyPartial},
		{"ThemeLifecycle", testThemeLifecycle},
		{"ConcurrentPut", testConcurrentPut},
		{"ConcurrentPutDelete", testConcurrentPutDelete},
		{"Ping", testPing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, open(t))
		})
	}
}

func testInsertGet(t *testing.T, repo service.EntryRepository) {
	ctx := context.Background()

	exists, err := repo.Exists(ctx, "k")
	require.NoError(t, err)
	require.False(t, exists)

	_, err = repo.Get(ctx, "k")
	require.ErrorIs(t, err, domain.ErrEntryNotFound)

	require.NoError(t, repo.Insert(ctx, &domain.Entry{Key: "k", Value: domain.MustValue(`{"a":[1,2]}`)}))

	exists, err = repo.Exists(ctx, "k")
	require.NoError(t, err)
	require.True(t, exists)

	got, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, `{"a":[1,2]}`, got.String())
}

func testInsertConflict(t *testing.T, repo service.EntryRepository) {
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, &domain.Entry{Key: "k", Value: domain.MustValue(`1`)}))
	err := repo.Insert(ctx, &domain.Entry{Key: "k", Value: domain.MustValue(`2`)})
	require.ErrorIs(t, err, domain.ErrEntryConflict)

	got, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "1", got.String())
}

func testReplaceMissing(t *testing.T, repo service.EntryRepository) {
	ctx := context.Background()

	err := repo.Replace(ctx, &domain.Entry{Key: "nope", Value: domain.MustValue(`1`)})
	require.ErrorIs(t, err, domain.ErrEntryNotFound)

	exists, err := repo.Exists(ctx, "nope")
	require.NoError(t, err)
	require.False(t, exists)
}

func testDeleteMissing(t *testing.T, repo service.EntryRepository) {
	ctx := context.Background()

	require.ErrorIs(t, repo.Delete(ctx, "nope"), domain.ErrEntryNotFound)

	require.NoError(t, repo.Insert(ctx, &domain.Entry{Key: "k", Value: domain.NullValue}))
	require.NoError(t, repo.Delete(ctx, "k"))
	require.ErrorIs(t, repo.Delete(ctx, "k"), domain.ErrEntryNotFound)
}

func testFindAllCount(t *testing.T, repo service.EntryRepository) {
	ctx := context.Background()

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	all, err := repo.All(ctx)
	require.NoError(t, err)
	require.Empty(t, all)

	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("key-%d", i)
		require.NoError(t, repo.Insert(ctx, &domain.Entry{Key: key, Value: domain.MustValue(fmt.Sprint(i))}))
	}

	n, err = repo.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 5, n)

	all, err = repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 5)
	require.Equal(t, "3", all["key-3"].String())

	found, err := repo.Find(ctx, []string{"key-1", "key-4", "missing"})
	require.NoError(t, err)
	require.Len(t, found, 2)
	require.Equal(t, "4", found["key-4"].String())

	found, err = repo.Find(ctx, []string{})
	require.NoError(t, err)
	require.Empty(t, found)
}

func testOpaqueKeys(t *testing.T, repo service.EntryRepository) {
	ctx := context.Background()

	keys := []string{"a/b", "with space", "ünïcødé", "kv/nested", "100%", "x"}
	for _, key := range keys {
		require.NoError(t, repo.Insert(ctx, &domain.Entry{Key: key, Value: domain.MustValue(`"v"`)}))
	}

	all, err := repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, len(keys))
	for _, key := range keys {
		require.Contains(t, all, key)
	}
}

func testRoundTrip(t *testing.T, repo service.EntryRepository) {
	ctx := context.Background()
	svc := service.NewStoreService(repo)

	values := []string{
		`null`, `false`, `0`, `-12.5e3`, `""`, `"dark"`, `[]`, `{}`,
		`[1,[2,[3,[4]]],{"k":null}]`,
		`{"meds":[{"name":"tirz","dose":5,"unit":"mg"}],"active":true}`,
	}
	for i, raw := range values {
		key := fmt.Sprintf("v%d", i)
		_, err := svc.Put(ctx, key, domain.MustValue(raw))
		require.NoError(t, err)

		got, err := svc.Get(ctx, key)
		require.NoError(t, err)
		require.Equal(t, domain.MustValue(raw).String(), got.String())
	}
}

func testLastWriteWins(t *testing.T, repo service.EntryRepository) {
	ctx := context.Background()
	svc := service.NewStoreService(repo)

	res, err := svc.Put(ctx, "k", domain.MustValue(`{"old":1}`))
	require.NoError(t, err)
	require.True(t, res.Created)

	res, err = svc.Put(ctx, "k", domain.MustValue(`["new"]`))
	require.NoError(t, err)
	require.False(t, res.Created)

	got, err := svc.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, `["new"]`, got.String())

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func testGetManyPartial(t *testing.T, repo service.EntryRepository) {
	ctx := context.Background()
	svc := service.NewStoreService(repo)

	_, err := svc.Put(ctx, "k1", domain.MustValue(`"one"`))
	require.NoError(t, err)
	_, err = svc.Put(ctx, "k3", domain.MustValue(`3`))
	require.NoError(t, err)

	got, err := svc.GetMany(ctx, []string{"k1", "k2"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, `"one"`, got["k1"].String())

	all, err := svc.GetMany(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func testThemeLifecycle(t *testing.T, repo service.EntryRepository) {
	ctx := context.Background()
	svc := service.NewStoreService(repo)

	res, err := svc.Put(ctx, "theme", domain.MustValue(`"dark"`))
	require.NoError(t, err)
	require.Equal(t, "theme", res.Key)

	got, err := svc.Get(ctx, "theme")
	require.NoError(t, err)
	require.Equal(t, `"dark"`, got.String())

	require.NoError(t, svc.Delete(ctx, "theme"))

	_, err = svc.Get(ctx, "theme")
	require.ErrorIs(t, err, domain.ErrEntryNotFound)
	require.ErrorIs(t, svc.Delete(ctx, "theme"), domain.ErrEntryNotFound)
}

func testConcurrentPut(t *testing.T, repo service.EntryRepository) {
	ctx := context.Background()
	svc := service.NewStoreService(repo)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Half the writers share a key.
			key := fmt.Sprintf("own-%d", i)
			if i%2 == 0 {
				key = "shared"
			}
			if _, err := svc.Put(ctx, key, domain.MustValue(fmt.Sprint(i))); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 11, n)
}

func testUpsert(t *testing.T, repo service.EntryRepository) {
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &domain.Entry{Key: "k", Value: domain.MustValue(`1`)}))
	require.NoError(t, repo.Upsert(ctx, &domain.Entry{Key: "k", Value: domain.MustValue(`{"a": 2}`)}))

	v, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	require.JSONEq(t, `{"a": 2}`, string(v))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

// testConcurrentPutDelete interleaves puts and deletes of one key; a put must
// never surface the not-found or conflict it may lose along the way.
func testConcurrentPutDelete(t *testing.T, repo service.EntryRepository) {
	ctx := context.Background()
	svc := service.NewStoreService(repo)

	const workers, rounds = 16, 25

	var wg sync.WaitGroup
	errs := make(chan error, workers*rounds)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				if _, err := svc.Put(ctx, "race", domain.MustValue(fmt.Sprint(i))); err != nil {
					errs <- err
				}
				if err := svc.Delete(ctx, "race"); err != nil && !errors.Is(err, domain.ErrEntryNotFound) {
					errs <- err
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	// Every worker ends with a delete, so the key may or may not survive
	// depending on ordering, but a final put always lands.
	_, err := svc.Put(ctx, "race", domain.MustValue(`"last"`))
	require.NoError(t, err)
	v, err := svc.Get(ctx, "race")
	require.NoError(t, err)
	require.Equal(t, `"last"`, v.String())
}

func testPing(t *testing.T, repo service.EntryRepository) {
	require.NoError(t, repo.Ping(context.Background()))
}
