package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"campaign-messaging-api/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// UploadLock makes uploads to the same campaign mutually exclusive. WithLock
// returns ErrUploadInProgress without calling fn when the campaign is busy.
type UploadLock interface {
	WithLock(ctx context.Context, campaignID int, fn func() error) error
}

// NewUploadLock picks the backend named by UPLOAD_LOCK_BACKEND. Redis and MySQL
// locks cover several API replicas; the local lock only covers this process.
func NewUploadLock(s config.UploadSettings, db *gorm.DB, rdb *redis.Client) (UploadLock, error) {
	switch s.LockBackend {
	case "", "local":
		return NewLocalUploadLock(), nil
	case "mysql":
		return NewMySQLUploadLock(db), nil
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("upload lock backend redis requires REDIS_ADDR")
		}
		return NewRedisUploadLock(rdb, s.LockTTL), nil
	default:
		return nil, fmt.Errorf("unknown upload lock backend %q", s.LockBackend)
	}
}

func uploadLockName(campaignID int) string {
	return fmt.Sprintf("upload:campaign:%d", campaignID)
}

type LocalUploadLock struct {
	mu   sync.Mutex
	held map[int]bool
}

func NewLocalUploadLock() *LocalUploadLock {
	return &LocalUploadLock{held: map[int]bool{}}
}

func (l *LocalUploadLock) WithLock(ctx context.Context, campaignID int, fn func() error) error {
	l.mu.Lock()
	if l.held[campaignID] {
		l.mu.Unlock()
		return ErrUploadInProgress
	}
	l.held[campaignID] = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.held, campaignID)
		l.mu.Unlock()
	}()
	return fn()
}

// MySQLUploadLock uses a named lock held on one pinned connection for the whole upload.
type MySQLUploadLock struct {
	db *gorm.DB
}

func NewMySQLUploadLock(db *gorm.DB) *MySQLUploadLock {
	if db == nil {
		db = config.DB
	}
	return &MySQLUploadLock{db: db}
}

func (l *MySQLUploadLock) WithLock(ctx context.Context, campaignID int, fn func() error) error {
	name := uploadLockName(campaignID)
	return l.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		var ok int
		if err := conn.Raw("SELECT GET_LOCK(?, 0)", name).Scan(&ok).Error; err != nil {
			return err
		}
		if ok != 1 {
			return ErrUploadInProgress
		}
		defer func() {
			var released int
			if err := conn.WithContext(persistentContext(ctx)).Raw("SELECT RELEASE_LOCK(?)", name).Scan(&released).Error; err != nil {
				log.Printf("upload lock release failed (campaign=%d): %v", campaignID, err)
			}
		}()
		return fn()
	})
}

var releaseIfOwner = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var extendIfOwner = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisUploadLock expires after ttl unless renewed. The holder renews it every
// ttl/3 while fn runs, so only a crashed replica lets it lapse.
type RedisUploadLock struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisUploadLock(rdb *redis.Client, ttl time.Duration) *RedisUploadLock {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisUploadLock{rdb: rdb, ttl: ttl}
}

func (l *RedisUploadLock) WithLock(ctx context.Context, campaignID int, fn func() error) error {
	key := uploadLockName(campaignID)
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrUploadInProgress
	}

	stop := make(chan struct{})
	renewed := make(chan struct{})
	go func() {
		defer close(renewed)
		l.renew(ctx, campaignID, key, token, stop)
	}()

	defer func() {
		close(stop)
		<-renewed
		if err := releaseIfOwner.Run(persistentContext(ctx), l.rdb, []string{key}, token).Err(); err != nil {
			log.Printf("upload lock release failed (campaign=%d): %v", campaignID, err)
		}
	}()
	return fn()
}

func (l *RedisUploadLock) renew(ctx context.Context, campaignID int, key, token string, stop <-chan struct{}) {
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := extendIfOwner.Run(ctx, l.rdb, []string{key}, token, l.ttl.Milliseconds()).Int()
			if err != nil {
				log.Printf("upload lock renewal failed (campaign=%d): %v", campaignID, err)
				continue
			}
			if n == 0 {
				log.Printf("upload lock lost (campaign=%d)", campaignID)
				return
			}
		}
	}
}
