package keeper

import (
	"errors"
	"time"

	"github.com/celer-network/go-reserves/smt"
	"github.com/celer-network/go-reserves/types"
)

type Config struct {
	// Depth of the account tree, must match the ledger's witness depth.
	Depth  int
	Tokens *types.TokenSet
	// MaxAttempts bounds how often a transition is rebased and resubmitted after a stale rejection.
	MaxAttempts   int
	SubmitTimeout time.Duration
	PollInterval  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Depth:         smt.MaxDepth,
		Tokens:        types.DefaultTokenSet(),
		MaxAttempts:   3,
		SubmitTimeout: 15 * time.Minute,
		PollInterval:  5 * time.Second,
	}
}

func (c Config) validate() error {
	if c.Tokens == nil || c.Tokens.Len() == 0 {
		return errors.New("keeper: no tokens configured")
	}
	if c.MaxAttempts < 1 {
		return errors.New("keeper: MaxAttempts must be positive")
	}
	if c.SubmitTimeout <= 0 || c.PollInterval <= 0 {
		return errors.New("keeper: SubmitTimeout and PollInterval must be positive")
	}
	return nil
}
