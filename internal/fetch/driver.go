// Package fetch turns content pointers into raw bytes.
//
// The manager sees a single Driver contract; behind it a strategy list is
// tried in order until one succeeds. Reliability (retry, backoff, circuit
// breaking) lives entirely in the manager; strategies report failure and
// nothing more.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chatvault/mediadl/internal/logging"
	"github.com/chatvault/mediadl/internal/model"
)

// ErrUnavailable marks the fetch mechanism itself as unreachable, as
// opposed to a single pointer failing to resolve.
var ErrUnavailable = errors.New("fetch mechanism unavailable")

// ErrEmptyResult is returned when a strategy succeeds but delivers no bytes.
var ErrEmptyResult = errors.New("fetch returned no bytes")

// Result is the outcome of a successful fetch.
type Result struct {
	Data     []byte
	Mimetype string
	Filename string
}

// Driver resolves a content pointer into bytes. Implementations are treated
// as opaque, possibly slow, possibly flaky RPC.
type Driver interface {
	Fetch(ctx context.Context, p model.MediaPointer) (*Result, error)
}

// Strategy is one concrete way of resolving a pointer. A strategy returns
// an error both for "this pointer is not mine" and for a genuine failure;
// the driver only cares that it moves on to the next one.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, p model.MediaPointer) (*Result, error)
}

// StrategyDriver tries strategies in order under a shared per-call timeout.
type StrategyDriver struct {
	strategies []Strategy
	timeout    time.Duration
	log        logging.Logger
}

// NewStrategyDriver builds a driver over the given strategies. A
// non-positive timeout disables the per-call deadline.
func NewStrategyDriver(timeout time.Duration, log logging.Logger, strategies ...Strategy) *StrategyDriver {
	return &StrategyDriver{
		strategies: strategies,
		timeout:    timeout,
		log:        log,
	}
}

// Fetch tries each strategy in order and returns the first success. When
// all fail the errors are joined so the caller can still see each cause.
func (d *StrategyDriver) Fetch(ctx context.Context, p model.MediaPointer) (*Result, error) {
	if len(d.strategies) == 0 {
		return nil, ErrUnavailable
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	var errs []error
	for _, strategy := range d.strategies {
		result, err := strategy.Fetch(ctx, p)
		if err != nil {
			d.log.Debug(ctx, "fetch strategy failed", "strategy", strategy.Name(), "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", strategy.Name(), err))
			continue
		}
		if result == nil || len(result.Data) == 0 {
			errs = append(errs, fmt.Errorf("%s: %w", strategy.Name(), ErrEmptyResult))
			continue
		}
		return result, nil
	}
	return nil, errors.Join(errs...)
}
