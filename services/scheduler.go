package services

import (
	"context"
	"time"

	"github.com/bjscha03/Final-Banner-Site-sub004/utils"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ErrSweepLocked is returned when another instance holds the sweep lock.
var ErrSweepLocked = errors.New("sweep lock held by another instance")

const sweepLockKey = "cart-recovery:sweep-lock"

// Sweeper runs one abandoned cart sweep.
type Sweeper interface {
	Run(ctx context.Context, now time.Time) (*SweepResult, error)
}

// Locker grants a cross-instance lock. unlock is only valid when ok is true.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(), ok bool, err error)
}

// Scheduler triggers sweeps on a ticker and on demand. Concurrent triggers
// in one process share a single run.
type Scheduler struct {
	sweeper  Sweeper
	locker   Locker
	interval time.Duration
	lockTTL  time.Duration
	group    singleflight.Group
	now      func() time.Time
}

func NewScheduler(sweeper Sweeper, locker Locker, interval time.Duration) *Scheduler {
	return &Scheduler{
		sweeper:  sweeper,
		locker:   locker,
		interval: interval,
		lockTTL:  15 * time.Minute,
		now:      time.Now,
	}
}

// Trigger runs a sweep now, joining one that is already in flight. The run
// is detached from ctx cancellation and bounded by the lock TTL, so a caller
// that goes away never stops a sweep halfway through its batches.
func (s *Scheduler) Trigger(ctx context.Context) (*SweepResult, error) {
	v, err, shared := s.group.Do("sweep", func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.lockTTL)
		defer cancel()

		if s.locker != nil {
			unlock, ok, err := s.locker.TryLock(ctx, sweepLockKey, s.lockTTL)
			switch {
			case err != nil:
				utils.LogWarn("Sweep lock unavailable, running without it: %v", err)
			case !ok:
				return nil, ErrSweepLocked
			default:
				defer unlock()
			}
		}
		return s.sweeper.Run(ctx, s.now().UTC())
	})
	if shared {
		utils.LogDebug("Sweep trigger joined an in-flight run")
	}
	result, _ := v.(*SweepResult)
	return result, err
}

// Run sweeps every interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	utils.LogInfo("Abandoned cart scheduler started, interval=%s", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			utils.LogInfo("Abandoned cart scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.Trigger(ctx); err != nil {
				if errors.Is(err, ErrSweepLocked) {
					utils.LogInfo("Skipping sweep: %v", err)
					continue
				}
				utils.LogError("Scheduled sweep failed: %v", err)
			}
		}
	}
}

var releaseLockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker is a SET NX lock released only by its holder.
type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.New().String()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	unlock := func() {
		// release even when the sweep context was cancelled
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseLockScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
			utils.LogError("Failed to release sweep lock: %v", err)
		}
	}
	return unlock, true, nil
}
