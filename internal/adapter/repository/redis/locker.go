package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/iho/godeposit/internal/domain"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// AccountLocker implements usecase.AccountLocker with SET NX PX and a token-checked release.
type AccountLocker struct {
	client *redis.Client
	prefix string
}

// NewAccountLocker creates a new AccountLocker.
func NewAccountLocker(client *redis.Client) *AccountLocker {
	return &AccountLocker{
		client: client,
		prefix: "lock:reconcile:",
	}
}

// Acquire takes the lock for address or returns domain.ErrAccountBusy.
func (l *AccountLocker) Acquire(ctx context.Context, address string, ttl time.Duration) (func(context.Context) error, error) {
	key := l.prefix + address
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, domain.Transient(err)
	}
	if !ok {
		return nil, domain.ErrAccountBusy
	}

	return func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}, nil
}
