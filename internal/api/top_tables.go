package api

import (
	"errors"
	"net/http"

	"github.com/k8ika0s/optimizer-api/internal/optimizer"
	"github.com/k8ika0s/optimizer-api/internal/privilege"
)

const defaultPermissionServer = "server1"

// TableEntry is one row of /top_tables.
type TableEntry struct {
	EID          any    `json:"eid"`
	Database     string `json:"database"`
	Name         string `json:"name"`
	Popularity   any    `json:"popularity"`
	ColumnCount  any    `json:"column_count"`
	PatternCount any    `json:"patternCount"`
	Total        any    `json:"total"`
	IsFact       bool   `json:"is_fact"`
	*Securable
}

// Securable is the object a row is checked against when permissions apply.
// Column is always null: top tables are checked at table level.
type Securable struct {
	DB     string  `json:"db"`
	Table  string  `json:"table"`
	Column *string `json:"column"`
	Server string  `json:"server"`
}

// TopTablesResponse answers /top_tables.
type TopTablesResponse struct {
	Envelope
	TopTables []TableEntry `json:"top_tables"`
}

func (h *Handler) topTables(r *http.Request) (any, error) {
	p, err := readParams(r)
	if err != nil {
		return nil, err
	}
	cur := h.settings()
	database := p.get("database", cur.DefaultDatabase)
	limit := parseIntDefault(p.get("len", ""), cur.TopTablesLimit, 0)

	resp, err := h.optimizer().TopTables(r.Context(), database)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return TopTablesResponse{Envelope: failure(resp)}, nil
	}
	var records []optimizer.TableRecord
	if err := resp.Decode("results", &records); err != nil {
		return nil, err
	}

	tables := make([]TableEntry, 0, len(records))
	for _, rec := range records {
		tables = append(tables, tableEntry(rec))
	}

	if h.Config.ApplyPermissions {
		tables, err = h.permittedTables(r, tables)
		if err != nil {
			return nil, err
		}
	}
	if limit > 0 && len(tables) > limit {
		tables = tables[:limit]
	}
	return TopTablesResponse{Envelope: ok(), TopTables: tables}, nil
}

func tableEntry(rec optimizer.TableRecord) TableEntry {
	path := optimizer.SplitTableName(rec.Name)
	return TableEntry{
		EID:          rec.EID,
		Database:     path.Database,
		Name:         path.Table,
		Popularity:   rec.WorkloadPercent,
		ColumnCount:  rec.ColumnCount,
		PatternCount: rec.PatternCount,
		Total:        rec.Total,
		IsFact:       rec.Type != "Dimension",
	}
}

// permittedTables attaches the securable object to every row and keeps the
// rows the requesting user may SELECT from.
func (h *Handler) permittedTables(r *http.Request, tables []TableEntry) ([]TableEntry, error) {
	if h.Privileges == nil {
		return nil, errors.New("permission enforcement enabled but no privilege checker configured")
	}
	server := h.Config.PermissionServer
	if server == "" {
		server = defaultPermissionServer
	}
	for i := range tables {
		tables[i].Securable = &Securable{DB: tables[i].Database, Table: tables[i].Name, Server: server}
	}
	kept, err := privilege.Filter(r.Context(), h.Privileges, UserFromContext(r.Context()), privilege.ActionSelect, tables,
		func(t TableEntry) privilege.Object {
			return privilege.Object{Server: t.Server, DB: t.DB, Table: t.Table}
		})
	if err != nil {
		return nil, err
	}
	return kept, nil
}
