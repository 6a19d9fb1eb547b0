package redis

import (
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
)

// newTestRedisClient starts a miniredis server and closes it with the test.
func newTestRedisClient(t *testing.T) (*redislib.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

// ledgerKeys lists the stored session and idempotency keys.
func ledgerKeys(mr *miniredis.Miniredis) (sessions, idempotency []string) {
	for _, key := range mr.Keys() {
		if session, ok := strings.CutPrefix(key, selectionPrefix); ok {
			sessions = append(sessions, session)
		} else if scoped, ok := strings.CutPrefix(key, idempotencyPrefix); ok {
			idempotency = append(idempotency, scoped)
		}
	}
	return sessions, idempotency
}
