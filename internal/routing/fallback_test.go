package routing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/af-corp/compass-router/internal/routing/adapters"
	"github.com/af-corp/compass-router/internal/types"
)

func testChain(models ...string) *types.FallbackChain {
	refs := make([]types.ModelRef, len(models))
	for i, m := range models {
		refs[i] = types.ModelRef{Vendor: "vendor-" + m, Model: m, Protocol: types.ProtocolOpenAI}
	}
	return &types.FallbackChain{
		ChainID:            "test-chain",
		Models:             refs,
		TriggerStatusCodes: []int{429, 500},
		MaxRetries:         3,
		IsActive:           true,
	}
}

func newTestRunner() *ChainRunner {
	cr := NewChainRunner(NewHealthTracker(5, time.Minute), slog.New(slog.NewTextHandler(io.Discard, nil)))
	cr.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return cr
}

// scriptedInvoke returns one outcome per attempt, in order, recording each
// model it was asked for.
func scriptedInvoke(calls *[]string, outcomes ...error) InvokeFunc {
	n := 0
	return func(ctx context.Context, ref types.ModelRef, protocol types.Protocol, req *types.ChatRequest) (*types.ChatResponse, error) {
		*calls = append(*calls, ref.Model)
		if n >= len(outcomes) {
			return nil, errors.New("unexpected extra attempt")
		}
		err := outcomes[n]
		n++
		if err != nil {
			return nil, err
		}
		return &types.ChatResponse{Model: ref.Model, Vendor: ref.Vendor}, nil
	}
}

func providerErr(status int) *adapters.ProviderError {
	return &adapters.ProviderError{Vendor: "v", StatusCode: status, Type: "server_error"}
}

func TestChainRunner_AdvancesOnTriggerStatus(t *testing.T) {
	// A→429, B→500, C→200 ends in success at index 2 with 2 retries used.
	cr := newTestRunner()
	var calls []string
	invoke := scriptedInvoke(&calls, providerErr(429), providerErr(500), nil)

	result, err := cr.Execute(context.Background(), testChain("a", "b", "c"), &types.ChatRequest{}, invoke)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Response == nil || result.Response.Model != "c" {
		t.Errorf("expected response from model c, got %+v", result.Response)
	}
	if result.Index != 2 {
		t.Errorf("expected index 2, got %d", result.Index)
	}
	if result.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", result.Attempts)
	}
	if result.RetriesUsed != 2 {
		t.Errorf("expected 2 retries used, got %d", result.RetriesUsed)
	}
	if len(calls) != 3 {
		t.Errorf("expected calls [a b c], got %v", calls)
	}
}

func TestChainRunner_NonTriggerFailsImmediately(t *testing.T) {
	// 404 is not in the trigger set: the error propagates verbatim and
	// entries B and C are never attempted.
	cr := newTestRunner()
	var calls []string
	notFound := providerErr(404)
	invoke := scriptedInvoke(&calls, notFound)

	result, err := cr.Execute(context.Background(), testChain("a", "b", "c"), &types.ChatRequest{}, invoke)
	if !errors.Is(err, notFound) {
		t.Fatalf("expected the 404 error verbatim, got %v", err)
	}
	if len(calls) != 1 || calls[0] != "a" {
		t.Errorf("expected only model a attempted, got %v", calls)
	}
	if result.RetriesUsed != 0 {
		t.Errorf("expected 0 retries used, got %d", result.RetriesUsed)
	}
	if result.Exhausted {
		t.Error("a non-trigger failure is not an exhaustion")
	}
}

func TestChainRunner_TriggerErrorType(t *testing.T) {
	cr := newTestRunner()
	chain := testChain("a", "b")
	chain.TriggerStatusCodes = nil
	chain.TriggerErrorTypes = []string{"overloaded_error"}

	var calls []string
	overloaded := &adapters.ProviderError{Vendor: "v", StatusCode: 529, Type: "overloaded_error"}
	invoke := scriptedInvoke(&calls, overloaded, nil)

	result, err := cr.Execute(context.Background(), chain, &types.ChatRequest{}, invoke)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Index != 1 {
		t.Errorf("expected index 1, got %d", result.Index)
	}
}

func TestChainRunner_RetryBudgetSpent(t *testing.T) {
	// maxRetries=1 across the whole chain: after A fails and B fails, the
	// budget is gone and C is never attempted. B's error goes out verbatim.
	cr := newTestRunner()
	chain := testChain("a", "b", "c")
	chain.MaxRetries = 1

	var calls []string
	errB := providerErr(500)
	invoke := scriptedInvoke(&calls, providerErr(429), errB)

	result, err := cr.Execute(context.Background(), chain, &types.ChatRequest{}, invoke)
	if !errors.Is(err, errB) {
		t.Fatalf("expected model b's error verbatim, got %v", err)
	}
	if len(calls) != 2 {
		t.Errorf("expected 2 attempts, got %v", calls)
	}
	if !result.Exhausted {
		t.Error("a spent retry budget is an exhaustion")
	}
}

func TestChainRunner_ExhaustedPropagatesLastError(t *testing.T) {
	cr := newTestRunner()
	var calls []string
	errC := providerErr(500)
	invoke := scriptedInvoke(&calls, providerErr(429), providerErr(429), errC)

	result, err := cr.Execute(context.Background(), testChain("a", "b", "c"), &types.ChatRequest{}, invoke)
	if !errors.Is(err, errC) {
		t.Fatalf("expected last attempt's error verbatim, got %v", err)
	}
	if errors.Is(err, ErrChainExhausted) {
		t.Error("ErrChainExhausted must not mask the last attempt's error")
	}
	if result.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", result.Attempts)
	}
	if !result.Exhausted {
		t.Error("a chain that failed its last entry on a trigger is exhausted")
	}
}

func TestChainRunner_AllBreakersOpen(t *testing.T) {
	// Every entry skipped: zero attempts, ErrChainExhausted, index -1.
	cr := newTestRunner()
	chain := testChain("a", "b")
	for _, ref := range chain.Models {
		cb := cr.health.Breaker(ref.Vendor)
		for i := 0; i < 5; i++ {
			cb.RecordFailure()
		}
	}

	var calls []string
	result, err := cr.Execute(context.Background(), chain, &types.ChatRequest{}, scriptedInvoke(&calls))
	if !errors.Is(err, ErrChainExhausted) {
		t.Fatalf("expected ErrChainExhausted, got %v", err)
	}
	if len(calls) != 0 {
		t.Errorf("expected no attempts, got %v", calls)
	}
	if result.Index != -1 || result.Attempts != 0 {
		t.Errorf("expected index -1 and 0 attempts, got %+v", result)
	}
	if !result.Exhausted {
		t.Error("an all-skipped chain is exhausted")
	}
}

func TestChainRunner_BreakerSkipConsumesNoBudget(t *testing.T) {
	// A's breaker is open; B fails on a trigger; C succeeds. The skip of A
	// must not count against the retry budget.
	cr := newTestRunner()
	chain := testChain("a", "b", "c")
	chain.MaxRetries = 1

	cb := cr.health.Breaker("vendor-a")
	for i := 0; i < 5; i++ {
		cb.RecordFailure()
	}

	var calls []string
	invoke := scriptedInvoke(&calls, providerErr(429), nil)

	result, err := cr.Execute(context.Background(), chain, &types.ChatRequest{}, invoke)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(calls) != 2 || calls[0] != "b" || calls[1] != "c" {
		t.Errorf("expected calls [b c], got %v", calls)
	}
	if result.RetriesUsed != 1 {
		t.Errorf("expected 1 retry used, got %d", result.RetriesUsed)
	}
	if result.Index != 2 {
		t.Errorf("expected index 2 (chain position, not attempt count), got %d", result.Index)
	}
}

func TestChainRunner_SuccessClosesBreaker(t *testing.T) {
	cr := newTestRunner()
	cr.health.RecordFailure("vendor-a")
	cr.health.RecordFailure("vendor-a")

	var calls []string
	_, err := cr.Execute(context.Background(), testChain("a"), &types.ChatRequest{}, scriptedInvoke(&calls, nil))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if cr.health.Breaker("vendor-a").State() != StateClosed {
		t.Error("expected breaker closed after success")
	}
}

func TestChainRunner_AttemptTimeoutTriggers(t *testing.T) {
	cr := newTestRunner()
	chain := testChain("a", "b")
	chain.TriggerTimeoutMs = 20

	var calls []string
	n := 0
	invoke := func(ctx context.Context, ref types.ModelRef, protocol types.Protocol, req *types.ChatRequest) (*types.ChatResponse, error) {
		calls = append(calls, ref.Model)
		n++
		if n == 1 {
			<-ctx.Done() // first target hangs until the attempt deadline
			return nil, ctx.Err()
		}
		return &types.ChatResponse{Model: ref.Model}, nil
	}

	result, err := cr.Execute(context.Background(), chain, &types.ChatRequest{}, invoke)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Index != 1 {
		t.Errorf("expected index 1 after timeout fallback, got %d", result.Index)
	}
	if len(calls) != 2 {
		t.Errorf("expected 2 attempts, got %v", calls)
	}
}

func TestChainRunner_CallerCancellationIsNotATrigger(t *testing.T) {
	cr := newTestRunner()
	chain := testChain("a", "b")
	chain.TriggerTimeoutMs = 5000

	ctx, cancel := context.WithCancel(context.Background())
	var calls []string
	invoke := func(attemptCtx context.Context, ref types.ModelRef, protocol types.Protocol, req *types.ChatRequest) (*types.ChatResponse, error) {
		calls = append(calls, ref.Model)
		cancel()
		<-attemptCtx.Done()
		return nil, attemptCtx.Err()
	}

	_, err := cr.Execute(ctx, chain, &types.ChatRequest{}, invoke)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(calls) != 1 {
		t.Errorf("caller cancellation must not advance the chain, got %v", calls)
	}
}

func TestChainRunner_NetworkErrorTrigger(t *testing.T) {
	cr := newTestRunner()
	chain := testChain("a", "b")
	chain.TriggerStatusCodes = nil
	chain.TriggerErrorTypes = []string{"network_error"}

	var calls []string
	invoke := scriptedInvoke(&calls, errors.New("dial tcp: connection refused"), nil)

	result, err := cr.Execute(context.Background(), chain, &types.ChatRequest{}, invoke)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Index != 1 {
		t.Errorf("expected transport failure to advance the chain, got index %d", result.Index)
	}
}

func TestChainRunner_RetryDelayHonored(t *testing.T) {
	cr := newTestRunner()
	chain := testChain("a", "b")
	chain.RetryDelayMs = 250

	var slept []time.Duration
	cr.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	var calls []string
	if _, err := cr.Execute(context.Background(), chain, &types.ChatRequest{}, scriptedInvoke(&calls, providerErr(429), nil)); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(slept) != 1 || slept[0] != 250*time.Millisecond {
		t.Errorf("expected one 250ms delay, got %v", slept)
	}
}

func TestAttemptProtocol(t *testing.T) {
	anthropicRef := types.ModelRef{Vendor: "anthropic", Model: "claude", Protocol: types.ProtocolAnthropic}

	tests := []struct {
		name     string
		preserve bool
		reqProto types.Protocol
		want     types.Protocol
	}{
		{"preserve keeps caller shape", true, types.ProtocolOpenAI, types.ProtocolOpenAI},
		{"preserve keeps anthropic caller", true, types.ProtocolAnthropic, types.ProtocolAnthropic},
		{"preserve defaults openai", true, "", types.ProtocolOpenAI},
		{"native shape without preserve", false, types.ProtocolOpenAI, types.ProtocolAnthropic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := &types.FallbackChain{PreserveProtocol: tt.preserve}
			req := &types.ChatRequest{Protocol: tt.reqProto}
			if got := attemptProtocol(chain, req, anthropicRef); got != tt.want {
				t.Errorf("attemptProtocol() = %s, want %s", got, tt.want)
			}
		})
	}
}
