package services

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"campaign-messaging-api/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestLocalUploadLockRejectsSecondHolder(t *testing.T) {
	lock := NewLocalUploadLock()
	ctx := context.Background()

	var inner error
	err := lock.WithLock(ctx, 7, func() error {
		inner = lock.WithLock(ctx, 7, func() error { return nil })
		return lock.WithLock(ctx, 8, func() error { return nil })
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errors.Is(inner, ErrUploadInProgress) {
		t.Fatalf("expected ErrUploadInProgress, got %v", inner)
	}

	if err := lock.WithLock(ctx, 7, func() error { return nil }); err != nil {
		t.Fatalf("lock not released: %v", err)
	}
}

func TestLocalUploadLockReleasesOnError(t *testing.T) {
	lock := NewLocalUploadLock()
	boom := errors.New("boom")

	if err := lock.WithLock(context.Background(), 1, func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if err := lock.WithLock(context.Background(), 1, func() error { return nil }); err != nil {
		t.Fatalf("lock not released after error: %v", err)
	}
}

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisUploadLock(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	lock := NewRedisUploadLock(rdb, time.Minute)
	ctx := context.Background()

	err := lock.WithLock(ctx, 5, func() error {
		if !mr.Exists("upload:campaign:5") {
			t.Fatalf("expected lock key to be set")
		}
		if ttl := mr.TTL("upload:campaign:5"); ttl != time.Minute {
			t.Fatalf("unexpected ttl %v", ttl)
		}
		return lock.WithLock(ctx, 5, func() error { return nil })
	})
	if !errors.Is(err, ErrUploadInProgress) {
		t.Fatalf("expected ErrUploadInProgress, got %v", err)
	}
	if mr.Exists("upload:campaign:5") {
		t.Fatalf("expected lock key to be released")
	}
}

func TestRedisUploadLockKeepsForeignToken(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	lock := NewRedisUploadLock(rdb, time.Minute)

	err := lock.WithLock(context.Background(), 5, func() error {
		// Simulates expiry followed by another replica taking the lock.
		return mr.Set("upload:campaign:5", "someone-else")
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := mr.Get("upload:campaign:5")
	if err != nil || got != "someone-else" {
		t.Fatalf("foreign lock was released: %q %v", got, err)
	}
}

func TestRedisUploadLockRenewsWhileHeld(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	ttl := 300 * time.Millisecond
	lock := NewRedisUploadLock(rdb, ttl)
	key := "upload:campaign:6"

	err := lock.WithLock(context.Background(), 6, func() error {
		mr.FastForward(250 * time.Millisecond)
		deadline := time.Now().Add(2 * time.Second)
		for mr.TTL(key) <= 200*time.Millisecond {
			if time.Now().After(deadline) {
				t.Fatalf("lease was not renewed, ttl %v", mr.TTL(key))
			}
			time.Sleep(10 * time.Millisecond)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mr.Exists(key) {
		t.Fatalf("expected lock key to be released")
	}
}

func TestMySQLUploadLock(t *testing.T) {
	lockName := "upload:campaign:3"
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`SELECT GET_LOCK`),
			args:    []driver.Value{lockName},
			columns: []string{"status"},
			rows:    [][]driver.Value{{int64(1)}},
		},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`SELECT RELEASE_LOCK`),
			args:    []driver.Value{lockName},
			columns: []string{"status"},
			rows:    [][]driver.Value{{int64(1)}},
		},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`SELECT GET_LOCK`),
			args:    []driver.Value{lockName},
			columns: []string{"status"},
			rows:    [][]driver.Value{{int64(0)}},
		},
	}

	gormDB, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	lock := NewMySQLUploadLock(gormDB)
	ran := false
	if err := lock.WithLock(context.Background(), 3, func() error {
		ran = true
		return nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Fatalf("expected fn to run while holding the lock")
	}

	err := lock.WithLock(context.Background(), 3, func() error {
		t.Fatalf("fn must not run when the lock is busy")
		return nil
	})
	if !errors.Is(err, ErrUploadInProgress) {
		t.Fatalf("expected ErrUploadInProgress, got %v", err)
	}

	if err := state.verifyComplete(); err != nil {
		t.Fatalf("%v", err)
	}
}

func TestNewUploadLockBackends(t *testing.T) {
	_, rdb := newMiniredisClient(t)

	cases := []struct {
		backend string
		rdb     *redis.Client
		wantErr bool
	}{
		{backend: "", wantErr: false},
		{backend: "local", wantErr: false},
		{backend: "mysql", wantErr: false},
		{backend: "redis", rdb: rdb, wantErr: false},
		{backend: "redis", rdb: nil, wantErr: true},
		{backend: "zookeeper", wantErr: true},
	}
	for _, tc := range cases {
		_, err := NewUploadLock(config.UploadSettings{LockBackend: tc.backend, LockTTL: time.Minute}, nil, tc.rdb)
		if (err != nil) != tc.wantErr {
			t.Fatalf("backend %q: wantErr=%v got %v", tc.backend, tc.wantErr, err)
		}
	}
}

func TestPersistentContextIgnoresCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := persistentContext(ctx).Err(); err != nil {
		t.Fatalf("expected live context, got %v", err)
	}
	if persistentContext(nil) == nil {
		t.Fatalf("expected background context for nil input")
	}
}
