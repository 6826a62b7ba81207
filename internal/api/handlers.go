package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/k8ika0s/optimizer-api/internal/archive"
	"github.com/k8ika0s/optimizer-api/internal/config"
	"github.com/k8ika0s/optimizer-api/internal/journal"
	"github.com/k8ika0s/optimizer-api/internal/optimizer"
	"github.com/k8ika0s/optimizer-api/internal/privilege"
	"github.com/k8ika0s/optimizer-api/internal/settings"
	"github.com/k8ika0s/optimizer-api/internal/stats"
	"github.com/k8ika0s/optimizer-api/internal/store"
)

// Handler wires HTTP routes to the optimizer client and the local stores.
type Handler struct {
	Optimizer  optimizer.API
	Documents  store.DocumentStore
	Stats      stats.Provider
	Privileges privilege.Checker
	Grants     store.GrantStore
	Journal    journal.Backend
	Archive    archive.Store
	Settings   *settings.Holder
	Config     config.Config
	Logger     *slog.Logger
}

func (h *Handler) Routes(r chi.Router) {
	h.post(r, "/get_tenant", h.getTenant)
	h.post(r, "/top_tables", h.topTables)
	h.post(r, "/table_details", h.tableDetails)
	h.post(r, "/query_compatibility", h.queryCompatibility)
	h.post(r, "/query_risk", h.queryRisk)
	h.post(r, "/similar_queries", h.similarQueries)
	h.post(r, "/top_filters", h.topValues(h.optimizer().TopFilters))
	h.post(r, "/top_joins", h.topValues(h.optimizer().TopJoins))
	h.post(r, "/top_aggs", h.topValues(h.optimizer().TopAggs))
	h.post(r, "/top_columns", h.topColumns)
	h.post(r, "/top_databases", h.topDatabases)
	h.post(r, "/upload_history", h.uploadHistory)
	h.post(r, "/upload_table_stats", h.uploadTableStats)
	h.post(r, "/upload_status", h.uploadStatus)
	h.post(r, "/upload_journal", h.uploadJournal)
	r.Get("/settings", Wrap(h.logger(), "settings_get", h.settingsGet))
	h.post(r, "/settings", h.settingsPost)
	r.Get("/grants", Wrap(h.logger(), "grants_list", h.grantsList))
	h.post(r, "/grants", h.grantsPut)
	r.Delete("/grants/{id}", Wrap(h.logger(), "grants_delete", h.grantsDelete))
}

func (h *Handler) post(r chi.Router, pattern string, e Endpoint) {
	r.Post(pattern, Wrap(h.logger(), pattern[1:], e))
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return h.Logger
}

func (h *Handler) optimizer() optimizer.API {
	if h.Optimizer == nil {
		return &optimizer.Client{}
	}
	return h.Optimizer
}

func (h *Handler) settings() settings.Settings {
	if h.Settings == nil {
		return settings.ApplyDefaults(settings.Settings{})
	}
	return h.Settings.Current()
}

// TenantResponse answers /get_tenant.
type TenantResponse struct {
	Envelope
	Data any `json:"data,omitempty"`
}

// DetailsResponse answers /table_details.
type DetailsResponse struct {
	Envelope
	Details optimizer.Response `json:"details,omitempty"`
}

// CompatibilityResponse answers /query_compatibility.
type CompatibilityResponse struct {
	Envelope
	QueryCompatibility optimizer.Response `json:"query_compatibility,omitempty"`
}

// RiskResponse answers /query_risk.
type RiskResponse struct {
	Envelope
	QueryRisk optimizer.Response `json:"query_risk,omitempty"`
}

// SimilarResponse answers /similar_queries.
type SimilarResponse struct {
	Envelope
	SimilarQueries optimizer.Response `json:"similar_queries,omitempty"`
}

// ValuesResponse answers the top_filters, top_joins, top_aggs, top_columns
// and top_databases routes.
type ValuesResponse struct {
	Envelope
	Values any `json:"values,omitempty"`
}

func (h *Handler) getTenant(r *http.Request) (any, error) {
	p, err := readParams(r)
	if err != nil {
		return nil, err
	}
	resp, err := h.optimizer().GetTenant(r.Context(), p.get("email", ""))
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return TenantResponse{Envelope: failure(resp)}, nil
	}
	return TenantResponse{Envelope: ok(), Data: resp.Get("tenant")}, nil
}

func (h *Handler) tableDetails(r *http.Request) (any, error) {
	p, err := readParams(r)
	if err != nil {
		return nil, err
	}
	resp, err := h.optimizer().TableDetails(r.Context(), p.get("databaseName", ""), p.get("tableName", ""))
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return DetailsResponse{Envelope: failure(resp)}, nil
	}
	return DetailsResponse{Envelope: ok(), Details: resp}, nil
}

func (h *Handler) queryCompatibility(r *http.Request) (any, error) {
	p, err := readParams(r)
	if err != nil {
		return nil, err
	}
	resp, err := h.optimizer().QueryCompatibility(r.Context(),
		p.get("sourcePlatform", ""), p.get("targetPlatform", ""), p.get("query", ""))
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return CompatibilityResponse{Envelope: failure(resp)}, nil
	}
	return CompatibilityResponse{Envelope: ok(), QueryCompatibility: resp}, nil
}

func (h *Handler) queryRisk(r *http.Request) (any, error) {
	p, err := readParams(r)
	if err != nil {
		return nil, err
	}
	var query any
	if err := p.json("query", "", &query); err != nil {
		return nil, err
	}
	resp, err := h.optimizer().QueryRisk(r.Context(), query)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return RiskResponse{Envelope: failure(resp)}, nil
	}
	return RiskResponse{Envelope: ok(), QueryRisk: resp}, nil
}

func (h *Handler) similarQueries(r *http.Request) (any, error) {
	p, err := readParams(r)
	if err != nil {
		return nil, err
	}
	var query any
	if err := p.json("query", "", &query); err != nil {
		return nil, err
	}
	resp, err := h.optimizer().SimilarQueries(r.Context(), p.get("sourcePlatform", ""), query)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return SimilarResponse{Envelope: failure(resp)}, nil
	}
	return SimilarResponse{Envelope: ok(), SimilarQueries: resp}, nil
}

type tablesCall func(ctx context.Context, dbTables []string) (optimizer.Response, error)

// topValues serves the routes that answer with the remote "results" list.
func (h *Handler) topValues(call tablesCall) Endpoint {
	return func(r *http.Request) (any, error) {
		dbTables, err := dbTablesParam(r)
		if err != nil {
			return nil, err
		}
		resp, err := call(r.Context(), dbTables)
		if err != nil {
			return nil, err
		}
		if !resp.OK() {
			return ValuesResponse{Envelope: failure(resp)}, nil
		}
		return ValuesResponse{Envelope: ok(), Values: resp.Get("results")}, nil
	}
}

// topColumns returns the whole reply, not just its results.
func (h *Handler) topColumns(r *http.Request) (any, error) {
	dbTables, err := dbTablesParam(r)
	if err != nil {
		return nil, err
	}
	resp, err := h.optimizer().TopColumns(r.Context(), dbTables)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return ValuesResponse{Envelope: failure(resp)}, nil
	}
	return ValuesResponse{Envelope: ok(), Values: resp}, nil
}

func (h *Handler) topDatabases(r *http.Request) (any, error) {
	resp, err := h.optimizer().TopDatabases(r.Context())
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return ValuesResponse{Envelope: failure(resp)}, nil
	}
	return ValuesResponse{Envelope: ok(), Values: resp.Get("results")}, nil
}

func dbTablesParam(r *http.Request) ([]string, error) {
	p, err := readParams(r)
	if err != nil {
		return nil, err
	}
	dbTables := []string{}
	if err := p.json("dbTables", "[]", &dbTables); err != nil {
		return nil, err
	}
	if dbTables == nil {
		dbTables = []string{}
	}
	return dbTables, nil
}
