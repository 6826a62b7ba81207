package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// Document is a saved editor document. History documents hold one executed query each.
type Document struct {
	ID           int64
	Owner        string
	Type         string
	Name         string
	LastModified time.Time
	Data         json.RawMessage
}

// Grant is a single privilege row.
type Grant struct {
	ID     string `json:"id" yaml:"id"`
	User   string `json:"user" yaml:"user"`
	Server string `json:"server,omitempty" yaml:"server,omitempty"`
	DB     string `json:"db,omitempty" yaml:"db,omitempty"`
	Table  string `json:"table,omitempty" yaml:"table,omitempty"`
	Column string `json:"column,omitempty" yaml:"column,omitempty"`
	Action string `json:"action" yaml:"action"`
}

// DocumentStore reads query history.
type DocumentStore interface {
	// History returns the newest history documents of docType owned by user.
	// A limit <= 0 means no limit.
	History(ctx context.Context, user, docType string, limit int) ([]Document, error)
}

// GrantStore persists privilege grants.
type GrantStore interface {
	GrantsForUser(ctx context.Context, user string) ([]Grant, error)
	PutGrant(ctx context.Context, g Grant) error
	DeleteGrant(ctx context.Context, id string) error
}

