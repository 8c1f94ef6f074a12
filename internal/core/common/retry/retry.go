// Package retry runs single-item store operations with a bounded, fixed backoff.
package retry

import (
	"context"
	"database/sql/driver"
	"errors"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/frahmantamala/approval-portal/internal"
	"github.com/jackc/pgx/v5/pgconn"
	goretry "github.com/sethvargo/go-retry"
)

// ErrTransient marks an error as safe to retry.
var ErrTransient = errors.New("transient infrastructure failure")

type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, Delay: 200 * time.Millisecond}
}

func FromConfig(cfg internal.ApprovalConfig) Policy {
	p := Policy{MaxAttempts: cfg.MaxAttempts, Delay: cfg.RetryDelay}
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	return p
}

// Do runs fn until it succeeds, fails terminally, or the attempt bound is reached.
// Exhausted transient failures come back as an UNAVAILABLE AppError.
func Do(ctx context.Context, p Policy, logger *slog.Logger, op string, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.Delay
	if delay <= 0 {
		delay = time.Millisecond
	}
	backoff := goretry.WithMaxRetries(uint64(attempts-1), goretry.NewConstant(delay))

	attempt := 0
	err := goretry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if IsTransient(err) {
			logger.Warn("transient failure, retrying", "operation", op, "attempt", attempt, "max_attempts", attempts, "error", err)
			return goretry.RetryableError(err)
		}
		return err
	})
	if err != nil && IsTransient(err) {
		logger.Error("retries exhausted", "operation", op, "attempts", attempt, "error", err)
		return internal.NewTransientError("the service is temporarily unavailable, please try again", err)
	}
	return err
}

// IsTransient reports whether err is an infrastructure failure that a retry may fix.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	if appErr, ok := internal.IsAppError(err); ok {
		return appErr.Type == internal.ErrorTypeUnavailable
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03", "57P01":
			return true
		}
		return strings.HasPrefix(pgErr.Code, "08")
	}
	if pgconn.SafeToRetry(err) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
