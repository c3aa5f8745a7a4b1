package gateway

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/af-corp/compass-router/internal/httputil"
	"github.com/af-corp/compass-router/internal/routing"
	"github.com/af-corp/compass-router/internal/routing/adapters"
	"github.com/af-corp/compass-router/internal/types"
)

// handleStream walks the chain until a target accepts the stream. Fallback
// applies only before the first successful response: once chunks start
// flowing the stream is committed to that target, and a mid-stream failure
// ends the response.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request, reqID string, chain *types.FallbackChain, req *types.ChatRequest, cls types.ClassifyResult) {
	retries := 0
	var lastErr error

	for i, ref := range chain.Models {
		adapter, ok := h.registry.Resolve(ref, h.vendors())
		if !ok {
			slog.Warn("skipping chain entry, no adapter",
				"request_id", reqID, "chain_id", chain.ChainID, "vendor", ref.Vendor)
			continue
		}

		attempt := *req
		attempt.Model = ref.Model
		attempt.Stream = true

		httpReq, err := adapter.TransformRequest(r.Context(), &attempt)
		if err != nil {
			slog.Error("failed to prepare stream request",
				"request_id", reqID, "vendor", ref.Vendor, "error", err)
			httputil.WriteInternalError(w, reqID, "Failed to prepare vendor request")
			return
		}

		vendorResp, err := adapter.SendRequest(httpReq)
		if err == nil && vendorResp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(vendorResp.Body)
			vendorResp.Body.Close()
			err = adapters.NewProviderError(ref.Vendor, vendorResp.StatusCode, body)
		}

		if err == nil {
			slog.Info("streaming started",
				"request_id", reqID,
				"bot_id", req.BotID,
				"complexity", string(cls.Level),
				"model_served", ref.Model,
				"vendor", ref.Vendor,
				"chain_id", chain.ChainID,
				"chain_index", i,
			)
			serr := streamSSE(w, reqID, vendorResp, adapter, h.cfg().Routing.StreamFirstChunkTimeout)
			if serr == nil {
				return
			}
			// The target accepted the stream but never produced a chunk;
			// nothing was written, so the next entry can still serve.
			err = serr
		} else if !routing.MatchesTrigger(chain, err, r.Context()) {
			h.writeChainError(w, reqID, chain, &routing.ChainResult{Index: i, Attempts: i + 1}, err)
			return
		}
		lastErr = err

		slog.Warn("stream attempt failed on trigger",
			"request_id", reqID, "chain_id", chain.ChainID,
			"index", i, "vendor", ref.Vendor, "error", err)

		if i == len(chain.Models)-1 || retries >= chain.MaxRetries {
			break
		}
		retries++
		if chain.RetryDelayMs > 0 {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(time.Duration(chain.RetryDelayMs) * time.Millisecond):
			}
		}
	}

	if lastErr == nil {
		lastErr = routing.ErrChainExhausted
	}
	h.writeChainError(w, reqID, chain, &routing.ChainResult{Index: -1}, lastErr)
}

// errFirstChunkTimeout reports a stream whose target accepted the request
// but produced no output before the first-chunk deadline.
var errFirstChunkTimeout = errors.New("no stream chunk before deadline")

// streamSSE reads SSE events from the vendor response and forwards them to
// the client, transforming each chunk through the adapter's
// TransformStreamChunk. Headers go out only once the first line arrives, so
// a target that stalls before producing anything can still be failed over.
func streamSSE(w http.ResponseWriter, reqID string, vendorResp *http.Response, adapter adapters.ProviderAdapter, firstChunkTimeout time.Duration) error {
	defer vendorResp.Body.Close()

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteInternalError(w, reqID, "Streaming not supported")
		return nil
	}

	// The watchdog unblocks the scanner by closing the body if the target
	// never sends a first line.
	var expired atomic.Bool
	var watchdog *time.Timer
	if firstChunkTimeout > 0 {
		watchdog = time.AfterFunc(firstChunkTimeout, func() {
			expired.Store(true)
			vendorResp.Body.Close()
		})
		defer watchdog.Stop()
	}

	scanner := bufio.NewScanner(vendorResp.Body)
	// Increase scanner buffer for large chunks
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	started := false
	for scanner.Scan() {
		if !started {
			if watchdog != nil {
				watchdog.Stop()
			}
			if expired.Load() {
				break
			}
			started = true
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Connection", "keep-alive")
			w.Header().Set("X-Request-ID", reqID)
			w.WriteHeader(http.StatusOK)
			flusher.Flush()
		}

		line := scanner.Text()

		// SSE format: lines starting with "data: "
		if !strings.HasPrefix(line, "data: ") {
			// Forward event: lines or empty lines as-is for keep-alive
			if strings.HasPrefix(line, "event: ") || line == "" {
				fmt.Fprintf(w, "%s\n", line)
				flusher.Flush()
			}
			continue
		}

		data := strings.TrimPrefix(line, "data: ")

		// End of stream
		if data == "[DONE]" {
			fmt.Fprintf(w, "data: [DONE]\n\n")
			flusher.Flush()
			return nil
		}

		// Transform chunk through the adapter
		transformed, err := adapter.TransformStreamChunk([]byte(data))
		if err != nil {
			slog.Error("failed to transform stream chunk", "error", err, "vendor", adapter.Vendor())
			continue
		}

		// nil means skip this chunk (e.g., Anthropic non-content events)
		if transformed == nil {
			continue
		}

		// Check if the adapter signaled end of stream (Anthropic message_stop → [DONE])
		if string(transformed) == "[DONE]" {
			fmt.Fprintf(w, "data: [DONE]\n\n")
			flusher.Flush()
			return nil
		}

		fmt.Fprintf(w, "data: %s\n\n", transformed)
		flusher.Flush()
	}

	if !started && expired.Load() {
		return errFirstChunkTimeout
	}
	if err := scanner.Err(); err != nil {
		slog.Error("error reading stream", "error", err, "vendor", adapter.Vendor())
	}
	return nil
}
