package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/k8ika0s/optimizer-api/internal/optimizer"
	"github.com/k8ika0s/optimizer-api/internal/store"
)

// Envelope status values.
const (
	StatusOK     = 0
	StatusFailed = -1
)

// ErrNotFound makes Wrap answer with the router's plain 404.
var ErrNotFound = errors.New("not found")

// notFound lists the sentinels that pass through as 404.
var notFound = []error{ErrNotFound, optimizer.ErrNotFound, store.ErrNotFound}

// Envelope is embedded in every response body.
type Envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
}

func (e Envelope) envelope() Envelope { return e }

func ok() Envelope { return Envelope{Status: StatusOK} }

// failure maps a non-success optimizer reply.
func failure(resp optimizer.Response) Envelope {
	return Envelope{Status: StatusFailed, Message: "Optimizer: " + resp.Detail()}
}

// httpError carries a non-500 status for request problems outside the
// optimizer contract (bad settings payloads, missing user).
type httpError struct {
	code int
	msg  string
}

func (e *httpError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &httpError{code: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

// Endpoint handles one request and returns the body to encode.
type Endpoint func(r *http.Request) (any, error)

// Wrap turns an Endpoint into an http.HandlerFunc. Not-found errors become a
// plain 404; any other error or panic is logged and answered with
// {status:-1, message} and HTTP 500.
func Wrap(logger *slog.Logger, op string, h Endpoint) http.HandlerFunc {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		outcome := outcomeError
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("handler panic", "op", op, "panic", rec)
				writeJSON(w, http.StatusInternalServerError, Envelope{Status: StatusFailed, Message: panicMessage(rec)})
				outcome = outcomeError
			}
			observe(op, outcome, time.Since(start))
		}()

		body, err := h(r)
		if err != nil {
			for _, target := range notFound {
				if errors.Is(err, target) {
					outcome = outcomeNotFound
					http.NotFound(w, r)
					return
				}
			}
			var he *httpError
			if errors.As(err, &he) {
				outcome = outcomeFailure
				writeJSON(w, he.code, Envelope{Status: StatusFailed, Message: he.msg})
				return
			}
			logger.Error("handler failed", "op", op, "err", err)
			writeJSON(w, http.StatusInternalServerError, Envelope{Status: StatusFailed, Message: errorMessage(err)})
			return
		}
		outcome = outcomeSuccess
		if env, isEnv := body.(interface{ envelope() Envelope }); isEnv && env.envelope().Status != StatusOK {
			outcome = outcomeFailure
		}
		writeJSON(w, http.StatusOK, body)
	}
}

func errorMessage(err error) string {
	return nonEmpty(err.Error())
}

func panicMessage(rec any) string {
	return nonEmpty(fmt.Sprint(rec))
}

func nonEmpty(msg string) string {
	if msg != "" {
		return msg
	}
	return http.StatusText(http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
