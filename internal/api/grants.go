package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/k8ika0s/optimizer-api/internal/privilege"
	"github.com/k8ika0s/optimizer-api/internal/store"
)

// GrantsResponse answers GET /grants.
type GrantsResponse struct {
	Envelope
	Grants []store.Grant `json:"grants"`
}

var errNoGrantStore = errors.New("grant store not configured")

// requireAdmin lets the request through when the user holds ALL on the
// permission server.
func (h *Handler) requireAdmin(r *http.Request) error {
	if h.Privileges == nil {
		return &httpError{code: http.StatusForbidden, msg: "permission checker not configured"}
	}
	server := h.Config.PermissionServer
	if server == "" {
		server = defaultPermissionServer
	}
	verdicts, err := h.Privileges.Authorize(r.Context(), UserFromContext(r.Context()), privilege.ActionAll,
		[]privilege.Object{{Server: server}})
	if err != nil {
		return err
	}
	if len(verdicts) == 0 || !verdicts[0] {
		return &httpError{code: http.StatusForbidden, msg: "forbidden"}
	}
	return nil
}

func (h *Handler) grantsList(r *http.Request) (any, error) {
	if err := h.requireAdmin(r); err != nil {
		return nil, err
	}
	if h.Grants == nil {
		return nil, errNoGrantStore
	}
	user := strings.TrimSpace(r.URL.Query().Get("user"))
	if user == "" {
		return nil, badRequest("user required")
	}
	grants, err := h.Grants.GrantsForUser(r.Context(), user)
	if err != nil {
		return nil, err
	}
	if grants == nil {
		grants = []store.Grant{}
	}
	return GrantsResponse{Envelope: ok(), Grants: grants}, nil
}

func (h *Handler) grantsPut(r *http.Request) (any, error) {
	if err := h.requireAdmin(r); err != nil {
		return nil, err
	}
	if h.Grants == nil {
		return nil, errNoGrantStore
	}
	var g store.Grant
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		return nil, badRequest("invalid json: %v", err)
	}
	g = privilege.NormalizeGrant(g)
	if problems := privilege.ValidateGrant(g); len(problems) > 0 {
		return nil, badRequest("%s", strings.Join(problems, "; "))
	}
	if err := h.Grants.PutGrant(r.Context(), g); err != nil {
		return nil, err
	}
	h.logger().Info("grant saved", "id", g.ID, "user", g.User, "action", g.Action, "by", UserFromContext(r.Context()))
	return ok(), nil
}

func (h *Handler) grantsDelete(r *http.Request) (any, error) {
	if err := h.requireAdmin(r); err != nil {
		return nil, err
	}
	if h.Grants == nil {
		return nil, errNoGrantStore
	}
	id := chi.URLParam(r, "id")
	if err := h.Grants.DeleteGrant(r.Context(), id); err != nil {
		return nil, err
	}
	h.logger().Info("grant deleted", "id", id, "by", UserFromContext(r.Context()))
	return ok(), nil
}
