package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockBusy is returned when another credit sale for the same customer
// holds the lock.
var ErrLockBusy = errors.New("dashboard: credit sale already in progress for customer")

// DefaultLockTTL bounds how long a crashed holder can block a customer.
const DefaultLockTTL = 10 * time.Second

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// CreditLock serialises credit sales per customer across dashboard
// instances. Without a Redis client it falls back to an in-process lock.
type CreditLock struct {
	client *redis.Client
	ttl    time.Duration

	mu    sync.Mutex
	local map[string]struct{}
}

// NewCreditLock builds a lock. client may be nil.
func NewCreditLock(client *redis.Client, ttl time.Duration) *CreditLock {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &CreditLock{client: client, ttl: ttl, local: make(map[string]struct{})}
}

func creditLockKey(customerID string) string {
	return "ledger:lock:credit:" + customerID
}

// Acquire takes the customer's lock or returns ErrLockBusy. The returned
// func releases it.
func (l *CreditLock) Acquire(ctx context.Context, customerID string) (func(), error) {
	if l.client == nil {
		return l.acquireLocal(customerID)
	}
	key := creditLockKey(customerID)
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockBusy
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}, nil
}

func (l *CreditLock) acquireLocal(customerID string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.local[customerID]; held {
		return nil, ErrLockBusy
	}
	l.local[customerID] = struct{}{}
	return func() {
		l.mu.Lock()
		delete(l.local, customerID)
		l.mu.Unlock()
	}, nil
}
