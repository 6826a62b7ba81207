package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const maxFormMemory = 8 << 20

// params reads form-encoded POST parameters. A key that is present but empty
// is returned as "", not as the default.
type params struct {
	values url.Values
}

func readParams(r *http.Request) (params, error) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return params{}, fmt.Errorf("parse form: %w", err)
	}
	return params{values: r.PostForm}, nil
}

func (p params) get(key, def string) string {
	if v, ok := p.values[key]; ok && len(v) > 0 {
		return v[0]
	}
	return def
}

// json decodes a JSON-encoded parameter into dst. An empty def makes the
// parameter required.
func (p params) json(key, def string, dst any) error {
	raw := p.get(key, def)
	if raw == "" {
		if def == "" {
			return fmt.Errorf("missing parameter %q", key)
		}
		raw = def
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("parameter %q: %w", key, err)
	}
	return nil
}

// optionalInt returns 0 when the parameter is absent or empty.
func (p params) optionalInt(key string) (int, error) {
	raw := strings.TrimSpace(p.get(key, ""))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("parameter %q: must be a non-negative integer", key)
	}
	return n, nil
}

// parseIntDefault clamps val to (0, max]; anything unparsable or non-positive yields def.
func parseIntDefault(val string, def int, max int) int {
	if val == "" {
		return def
	}
	i, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil || i <= 0 {
		return def
	}
	if max > 0 && i > max {
		return max
	}
	return i
}

type userKey struct{}

// WithUser stores the requesting user on ctx.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the requesting user, or "".
func UserFromContext(ctx context.Context) string {
	u, _ := ctx.Value(userKey{}).(string)
	return u
}

// UserMiddleware reads the requesting user from header. When required is
// set, requests without it are rejected with 401.
func UserMiddleware(header string, required bool) func(http.Handler) http.Handler {
	if header == "" {
		header = "X-Remote-User"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := strings.TrimSpace(r.Header.Get(header))
			if user == "" && required {
				writeJSON(w, http.StatusUnauthorized, Envelope{Status: StatusFailed, Message: "authentication required"})
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}
