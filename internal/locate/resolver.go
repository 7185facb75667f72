// File: internal/locate/resolver.go
package locate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrNotFound indicates that no locator in a chain resolved to a visible,
// interactable element before its attempt timed out.
var ErrNotFound = errors.New("no locator in chain resolved")

// Prober checks individual locators against a live page. The browser package
// provides the CDP-backed implementation; tests substitute fakes.
type Prober interface {
	// WaitInteractable blocks until the element identified by loc is visible
	// and interactable, or ctx is done.
	WaitInteractable(ctx context.Context, loc Locator) error

	// ScanVisibleText searches every element on the page for visible text
	// containing text, and returns a locator for the first displayed match.
	ScanVisibleText(ctx context.Context, text string) (Locator, error)
}

// Resolver tries each locator of a chain in order against a live page.
//
// Resolution failure is not fatal to the resolver; callers decide whether an
// unresolved target aborts their workflow.
type Resolver struct {
	prober Prober
	logger *zap.Logger
}

// NewResolver creates a resolver over the given prober.
func NewResolver(prober Prober, logger *zap.Logger) *Resolver {
	return &Resolver{
		prober: prober,
		logger: logger.Named("resolver"),
	}
}

// Resolve tries each locator in the chain, blocking up to perAttempt for each
// to become interactable. The first successful locator short-circuits the
// chain. Total blocking time is bounded by len(chain)*perAttempt plus one
// brute-force scan when the chain enables it.
//
// On exhaustion it returns a zero Locator and an error wrapping ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, chain Chain, perAttempt time.Duration) (Locator, error) {
	log := r.logger.With(zap.String("target", chain.Target))

	for i, loc := range chain.Locators {
		if err := ctx.Err(); err != nil {
			return Locator{}, err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, perAttempt)
		err := r.prober.WaitInteractable(attemptCtx, loc)
		cancel()

		if err == nil {
			log.Debug("Locator resolved.",
				zap.Int("attempt", i+1),
				zap.Stringer("locator", loc))
			return loc, nil
		}
		if ctx.Err() != nil {
			return Locator{}, ctx.Err()
		}
		log.Debug("Locator did not resolve, trying next.",
			zap.Int("attempt", i+1),
			zap.Stringer("locator", loc),
			zap.Error(err))
	}

	if chain.ScanText != "" {
		loc, err := r.scan(ctx, chain, log)
		if err == nil {
			return loc, nil
		}
		if ctx.Err() != nil {
			return Locator{}, ctx.Err()
		}
	}

	return Locator{}, fmt.Errorf("target %q after %d locators: %w",
		chain.Target, len(chain.Locators), ErrNotFound)
}

// scan runs the brute-force visible-text fallback.
func (r *Resolver) scan(ctx context.Context, chain Chain, log *zap.Logger) (Locator, error) {
	log.Debug("Chain exhausted, scanning visible text.", zap.String("scan_text", chain.ScanText))

	loc, err := r.prober.ScanVisibleText(ctx, chain.ScanText)
	if err != nil {
		log.Debug("Visible-text scan found nothing.", zap.Error(err))
		return Locator{}, err
	}
	log.Debug("Visible-text scan resolved target.", zap.Stringer("locator", loc))
	return loc, nil
}
