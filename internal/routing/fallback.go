package routing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/af-corp/compass-router/internal/routing/adapters"
	"github.com/af-corp/compass-router/internal/types"
)

// ErrChainExhausted is returned when a chain ends without a single attempt
// being issued (every entry skipped by an open circuit breaker). When the
// last attempt actually failed, its error is propagated verbatim instead.
var ErrChainExhausted = errors.New("fallback chain exhausted")

// InvokeFunc issues one model call. protocol is the wire shape the response
// must come back in; implementations translate when it differs from the
// target's native protocol.
type InvokeFunc func(ctx context.Context, ref types.ModelRef, protocol types.Protocol, req *types.ChatRequest) (*types.ChatResponse, error)

// ChainResult reports how a chain execution went. On failure Response is nil
// and the fields still describe the attempts made, for diagnosability.
type ChainResult struct {
	Response    *types.ChatResponse
	Index       int  // chain index of the final attempt (-1 if none issued)
	Attempts    int  // attempts actually issued
	RetriesUsed int  // trigger transitions consumed from the retry budget
	Exhausted   bool // chain ran out of entries or retry budget on triggers
}

// ChainRunner walks a fallback chain: Trying(0) → Success | Trying(i+1) |
// Exhausted. The retry budget is chain-wide; a failure matching no trigger
// propagates immediately without advancing the chain.
type ChainRunner struct {
	health *HealthTracker
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewChainRunner(health *HealthTracker, logger *slog.Logger) *ChainRunner {
	return &ChainRunner{
		health: health,
		logger: logger,
		sleep:  sleepCtx,
	}
}

// Execute runs req through the chain. The engine assumes the chain is active;
// inactive chains are filtered out upstream.
func (cr *ChainRunner) Execute(ctx context.Context, chain *types.FallbackChain, req *types.ChatRequest, invoke InvokeFunc) (*ChainResult, error) {
	result := &ChainResult{Index: -1}
	var lastErr error

	for i, ref := range chain.Models {
		if cr.health != nil && !cr.health.IsAvailable(ref.Vendor) {
			// Breaker-open entries are skipped without touching the retry
			// budget; only issued attempts count against it.
			cr.logger.Warn("skipping chain entry, circuit open",
				"chain_id", chain.ChainID, "index", i, "vendor", ref.Vendor)
			continue
		}

		protocol := attemptProtocol(chain, req, ref)

		attemptCtx := ctx
		var cancel context.CancelFunc
		if chain.TriggerTimeoutMs > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, time.Duration(chain.TriggerTimeoutMs)*time.Millisecond)
		}

		resp, err := invoke(attemptCtx, ref, protocol, req)
		if cancel != nil {
			cancel()
		}
		result.Attempts++
		result.Index = i

		if err == nil {
			if cr.health != nil {
				cr.health.RecordSuccess(ref.Vendor)
			}
			result.Response = resp
			return result, nil
		}

		if cr.health != nil {
			cr.health.RecordFailure(ref.Vendor)
		}

		if !MatchesTrigger(chain, err, ctx) {
			// Non-triggering failures are hard failures of the request;
			// they propagate verbatim without consuming chain state.
			return result, err
		}
		lastErr = err

		cr.logger.Warn("chain attempt failed on trigger",
			"chain_id", chain.ChainID, "index", i,
			"vendor", ref.Vendor, "model", ref.Model, "error", err)

		if i == len(chain.Models)-1 {
			break // last entry failed — exhausted
		}
		if result.RetriesUsed >= chain.MaxRetries {
			cr.logger.Warn("chain retry budget spent",
				"chain_id", chain.ChainID, "max_retries", chain.MaxRetries)
			break
		}
		result.RetriesUsed++

		if chain.RetryDelayMs > 0 {
			if err := cr.sleep(ctx, time.Duration(chain.RetryDelayMs)*time.Millisecond); err != nil {
				return result, err
			}
		}
	}

	result.Exhausted = true
	if lastErr == nil {
		return result, ErrChainExhausted
	}
	// The last attempt's error goes out verbatim.
	return result, lastErr
}

// attemptProtocol picks the wire shape for one attempt. With
// preserveProtocol the caller's original shape is kept across swaps;
// otherwise each target answers in its native shape and callers must
// tolerate a mid-chain change.
func attemptProtocol(chain *types.FallbackChain, req *types.ChatRequest, ref types.ModelRef) types.Protocol {
	if chain.PreserveProtocol {
		if req.Protocol != "" {
			return req.Protocol
		}
		return types.ProtocolOpenAI
	}
	if ref.Protocol != "" {
		return ref.Protocol
	}
	return types.ProtocolOpenAI
}

// MatchesTrigger reports whether err should advance the chain: a provider
// status in the trigger set, a classified error type in the trigger set, or
// an attempt timeout (the parent context still being live distinguishes an
// attempt deadline from caller cancellation).
func MatchesTrigger(chain *types.FallbackChain, err error, parent context.Context) bool {
	var pe *adapters.ProviderError
	if errors.As(err, &pe) {
		for _, code := range chain.TriggerStatusCodes {
			if pe.StatusCode == code {
				return true
			}
		}
		for _, typ := range chain.TriggerErrorTypes {
			if pe.Type == typ {
				return true
			}
		}
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
		return chain.TriggerTimeoutMs > 0
	}

	for _, typ := range chain.TriggerErrorTypes {
		if typ == "network_error" {
			// Transport-level failures with no HTTP status
			return true
		}
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
