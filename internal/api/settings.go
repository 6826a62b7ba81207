package api

import (
	"encoding/json"
	"net/http"

	"github.com/k8ika0s/optimizer-api/internal/settings"
)

func (h *Handler) settingsGet(r *http.Request) (any, error) {
	return h.settings(), nil
}

func (h *Handler) settingsPost(r *http.Request) (any, error) {
	if err := h.requireAdmin(r); err != nil {
		return nil, err
	}
	if h.Settings == nil {
		return nil, &httpError{code: http.StatusServiceUnavailable, msg: "settings are not configured"}
	}
	var s settings.Settings
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		return nil, badRequest("invalid json: %v", err)
	}
	saved, err := h.Settings.Update(s)
	if err != nil {
		return nil, err
	}
	h.logger().Info("settings updated", "path", h.Settings.Path())
	return saved, nil
}
