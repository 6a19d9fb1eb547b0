package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/usecase"
)

const (
	// IdempotencyKeyHeader is the header name for idempotency keys.
	IdempotencyKeyHeader = "Idempotency-Key"
	// ReplayHeader marks a response served from the idempotency cache.
	ReplayHeader = "X-Idempotency-Replay"

	pendingMarker = "processing"
)

// cachedResponse is what gets stored under an idempotency key.
type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// IdempotencyMiddleware replays the stored response of a request that was
// already applied, so a resubmitted movement is not recorded twice.
type IdempotencyMiddleware struct {
	store  usecase.IdempotencyStore
	ttl    time.Duration
	logger zerolog.Logger
}

// NewIdempotencyMiddleware creates a new IdempotencyMiddleware.
func NewIdempotencyMiddleware(store usecase.IdempotencyStore, ttl time.Duration, logger zerolog.Logger) *IdempotencyMiddleware {
	if ttl <= 0 {
		ttl = usecase.IdempotencyKeyTTL
	}
	return &IdempotencyMiddleware{store: store, ttl: ttl, logger: logger}
}

// Wrap wraps an http.Handler with idempotency checking.
func (m *IdempotencyMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only apply to mutating requests
		if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodDelete {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(IdempotencyKeyHeader)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}
		key = scopedKey(r, key)

		exists, cached, err := m.store.CheckAndSet(r.Context(), key, nil, m.ttl)
		if err != nil {
			m.logger.Error().Err(err).Msg("idempotency check failed")
			http.Error(w, "idempotency check failed", http.StatusInternalServerError)
			return
		}

		if exists {
			m.replay(w, cached)
			return
		}

		recorder := &responseRecorder{
			ResponseWriter: w,
			body:           &bytes.Buffer{},
			statusCode:     http.StatusOK,
		}
		next.ServeHTTP(recorder, r)

		// The request may have been abandoned by the client, but its outcome must still be recorded.
		ctx := context.WithoutCancel(r.Context())
		if !cacheable(recorder) {
			if err := m.store.Release(ctx, key); err != nil {
				m.logger.Warn().Err(err).Msg("failed to release idempotency key")
			}
			return
		}

		payload, err := json.Marshal(cachedResponse{
			Status:      recorder.statusCode,
			ContentType: recorder.Header().Get("Content-Type"),
			Body:        recorder.body.Bytes(),
		})
		if err == nil {
			err = m.store.Update(ctx, key, payload, m.ttl)
		}
		if err != nil {
			m.logger.Warn().Err(err).Msg("failed to store idempotent response")
		}
	})
}

// scopedKey keeps keys from colliding across endpoints and sessions.
// Session routes share one path for every account, so the session ID is
// part of the key.
func scopedKey(r *http.Request, key string) string {
	scoped := r.Method + " " + r.URL.Path
	if session := r.Header.Get(dto.SessionHeader); session != "" {
		scoped += " session=" + session
	}
	return scoped + " " + key
}

func (m *IdempotencyMiddleware) replay(w http.ResponseWriter, cached []byte) {
	if cached == nil || string(cached) == pendingMarker {
		http.Error(w, "a request with this idempotency key is still in progress", http.StatusConflict)
		return
	}

	var resp cachedResponse
	if err := json.Unmarshal(cached, &resp); err != nil || resp.Status == 0 {
		m.logger.Warn().Err(err).Msg("discarding unreadable idempotent response")
		http.Error(w, "idempotency check failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set(ReplayHeader, "true")
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.WriteHeader(resp.Status)
	w.Write(resp.Body)
}

// cacheable reports whether the response reflects a persisted mutation.
// A reconciliation failure means the movement was written, so replaying it
// is what keeps a resubmission from applying the movement twice.
func cacheable(r *responseRecorder) bool {
	if r.statusCode >= 200 && r.statusCode < 300 {
		return true
	}
	return r.Header().Get(dto.OutcomeHeader) == string(usecase.OutcomeReconciliationFailure)
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}
