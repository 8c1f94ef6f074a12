package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/frahmantamala/approval-portal/internal"
	"github.com/redis/go-redis/v9"
)

const (
	IdempotencyKeyHeader   = "Idempotency-Key"
	IdempotentReplayHeader = "Idempotent-Replayed"

	idempotencyLockTTL = 30 * time.Second
)

var errRequestInProgress = internal.NewConflictError("a request with this idempotency key is still being processed", internal.ErrCodeRequestInProgress)

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        string `json:"body"`
}

// Idempotency replays the stored response of a POST that already completed
// under the same Idempotency-Key for the same employee. Concurrent duplicates
// get 409 while the first one runs. Redis failures let the request through.
func Idempotency(rdb redis.Cmdable, ttl time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyKeyHeader)
			if rdb == nil || key == "" || r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			cacheKey := idempotencyCacheKey(r, key)
			lockKey := cacheKey + ":lock"

			val, err := rdb.Get(ctx, cacheKey).Result()
			switch {
			case err == nil:
				var stored storedResponse
				if jsonErr := json.Unmarshal([]byte(val), &stored); jsonErr == nil {
					replay(w, stored)
					return
				}
				logger.Warn("discarding unreadable idempotent response", "key", cacheKey)
			case !errors.Is(err, redis.Nil):
				logger.Warn("idempotency lookup failed, passing through", "error", err, "key", cacheKey)
				next.ServeHTTP(w, r)
				return
			}

			acquired, err := rdb.SetNX(ctx, lockKey, "1", idempotencyLockTTL).Result()
			if err != nil {
				logger.Warn("idempotency lock failed, passing through", "error", err, "key", cacheKey)
				next.ServeHTTP(w, r)
				return
			}
			if !acquired {
				writeAppError(w, errRequestInProgress)
				return
			}

			rec := &captureWriter{ResponseWriter: w, body: &bytes.Buffer{}}
			next.ServeHTTP(rec, r)

			status := rec.status()
			if status < http.StatusInternalServerError {
				payload, _ := json.Marshal(storedResponse{
					Status:      status,
					ContentType: rec.Header().Get("Content-Type"),
					Body:        rec.body.String(),
				})
				if err := rdb.Set(ctx, cacheKey, string(payload), ttl).Err(); err != nil {
					logger.Warn("failed to store idempotent response", "error", err, "key", cacheKey)
				}
			}
			if err := rdb.Del(ctx, lockKey).Err(); err != nil {
				logger.Warn("failed to release idempotency lock", "error", err, "key", lockKey)
			}
		})
	}
}

func idempotencyCacheKey(r *http.Request, key string) string {
	return fmt.Sprintf("idemp:%s:%d:%s", r.URL.Path, internal.ActorIDFromContext(r.Context()), key)
}

func replay(w http.ResponseWriter, stored storedResponse) {
	if stored.ContentType != "" {
		w.Header().Set("Content-Type", stored.ContentType)
	}
	w.Header().Set(IdempotentReplayHeader, "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write([]byte(stored.Body))
}

type captureWriter struct {
	http.ResponseWriter
	code int
	body *bytes.Buffer
}

func (c *captureWriter) WriteHeader(code int) {
	if c.code == 0 {
		c.code = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	if c.code == 0 {
		c.code = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *captureWriter) status() int {
	if c.code == 0 {
		return http.StatusOK
	}
	return c.code
}
