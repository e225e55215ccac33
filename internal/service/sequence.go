package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"distribuidora/internal/config"
	"distribuidora/internal/lock"
)

const (
	documentDateLayout = "20060102"
	maxNumberAttempts  = 3
)

// numberSource returns the most recently inserted document number starting with a prefix, or "".
type numberSource interface {
	LatestNumberWithPrefix(ctx context.Context, prefix string) (string, error)
}

// dayPrefix renders "{prefix}-{YYYYMMDD}-" using the date's own location.
func dayPrefix(prefix string, date time.Time) string {
	return prefix + "-" + date.Format(documentDateLayout) + "-"
}

// NextDocumentNumber returns the next "{prefix}-{YYYYMMDD}-{NNN}" for date. The suffix continues
// from the latest inserted number of that day and widens past 999.
func NextDocumentNumber(ctx context.Context, src numberSource, prefix string, date time.Time) (string, error) {
	day := dayPrefix(prefix, date)

	latest, err := src.LatestNumberWithPrefix(ctx, day)
	if err != nil {
		return "", fmt.Errorf("failed to read latest %s number: %w", prefix, err)
	}

	next := 1
	if latest != "" {
		suffix := latest[strings.LastIndex(latest, "-")+1:]
		n, err := strconv.Atoi(suffix)
		if err != nil || n < 0 {
			return "", newError(ErrIntegrityConflict, "stored document number %q has a malformed suffix", latest)
		}
		next = n + 1
	}

	return fmt.Sprintf("%s%03d", day, next), nil
}

// numberAllocator serializes number allocation per prefix and day and retries when a
// concurrent writer committed the same number first.
type numberAllocator struct {
	locker lock.Locker
	clock  Clock
}

func newNumberAllocator(locker lock.Locker, clock Clock) *numberAllocator {
	if locker == nil {
		locker = lock.Noop()
	}
	return &numberAllocator{locker: locker, clock: clock}
}

// run calls fn with the allocation timestamp while holding the day lock for prefix.
// fn is expected to open and commit its own transaction.
func (a *numberAllocator) run(ctx context.Context, prefix string, fn func(now time.Time) error) error {
	for attempt := 1; ; attempt++ {
		now := a.clock.Now()
		key := "docseq:" + dayPrefix(prefix, now)

		release, err := a.locker.Obtain(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to reserve %s number: %w", prefix, err)
		}
		err = fn(now)
		release()

		var taken *numberTakenError
		if errors.As(err, &taken) && attempt < maxNumberAttempts {
			config.GetLogger().WithField("number", taken.number).WithField("attempt", attempt).
				Warn("document number collision, retrying")
			continue
		}
		return err
	}
}

// createErr maps a duplicate key on insert of a numbered document to a retryable error.
func createErr(err error, number string) error {
	if err == nil {
		return nil
	}
	if mapped := saveErr(err, "save "+number); errors.Is(mapped, ErrIntegrityConflict) {
		return &numberTakenError{number: number}
	}
	return fmt.Errorf("failed to save %s: %w", number, err)
}
