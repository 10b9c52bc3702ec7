package keeper

import (
	"context"
	"errors"
	"fmt"

	"github.com/celer-network/go-reserves/statemachine"
	"golang.org/x/time/rate"
)

// submission sends one prepared transition to the ledger.
type submission func() (statemachine.LedgerState, error)

// prepareFunc builds a transition against the freshly reloaded replica. A nil
// submission means the ledger already holds the requested state.
type prepareFunc func() (submission, error)

func retryable(err error) bool {
	return statemachine.IsTransient(err) || errors.Is(err, ErrSubmissionTimeout)
}

// transition reloads the replica, prepares and submits, and starts over while
// the ledger rejects the transition as stale.
func (k *Keeper) transition(ctx context.Context, op string, prepare prepareFunc) (statemachine.LedgerState, error) {
	k.lock.Lock()
	defer k.lock.Unlock()

	var err error
	for attempt := 1; attempt <= k.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			k.metrics.retries.WithLabelValues(op).Inc()
			logger.Warn().Err(err).Str("op", op).Int("attempt", attempt).Msg("Rebasing transition")
		}
		if err = k.reload(); err != nil {
			return statemachine.LedgerState{}, err
		}
		var send submission
		send, err = prepare()
		if err != nil {
			k.metrics.transitions.WithLabelValues(op, resultRejected).Inc()
			return statemachine.LedgerState{}, err
		}
		if send == nil {
			return k.state, nil
		}
		var state statemachine.LedgerState
		state, err = k.submit(ctx, k.state, send)
		if err == nil {
			k.metrics.transitions.WithLabelValues(op, resultApplied).Inc()
			return state, k.reload()
		}
		if !retryable(err) {
			k.metrics.transitions.WithLabelValues(op, resultRejected).Inc()
			return statemachine.LedgerState{}, err
		}
		if ctx.Err() != nil {
			break
		}
	}
	k.metrics.transitions.WithLabelValues(op, resultExhaust).Inc()
	return statemachine.LedgerState{}, err
}

// submit sends the transition and polls the ledger until its state moves
// away from before, for at most SubmitTimeout.
func (k *Keeper) submit(ctx context.Context, before statemachine.LedgerState, send submission) (statemachine.LedgerState, error) {
	if _, err := send(); err != nil {
		return statemachine.LedgerState{}, err
	}

	pollCtx, cancel := context.WithTimeout(ctx, k.config.SubmitTimeout)
	defer cancel()
	limiter := rate.NewLimiter(rate.Every(k.config.PollInterval), 1)
	for {
		if err := limiter.Wait(pollCtx); err != nil {
			if ctx.Err() != nil {
				return statemachine.LedgerState{}, ctx.Err()
			}
			return statemachine.LedgerState{}, fmt.Errorf("%w: %v", ErrSubmissionTimeout, err)
		}
		state, _ := k.ledger.State()
		if state != before {
			return state, nil
		}
	}
}
