package privilege

import (
	"context"
	"strings"

	"github.com/k8ika0s/optimizer-api/internal/store"
)

// Action is a privilege verb.
type Action string

const (
	ActionSelect Action = "SELECT"
	ActionInsert Action = "INSERT"
	ActionAll    Action = "ALL"
)

// Object is the securable an action is checked against. Empty parts are
// broader scopes: an object with only DB set is the database itself.
type Object struct {
	Server string
	DB     string
	Table  string
	Column string
}

// Checker decides which objects a user may act on.
type Checker interface {
	// Authorize returns one verdict per object, in order.
	Authorize(ctx context.Context, user string, action Action, objects []Object) ([]bool, error)
}

// GrantSource lists the grants held by a user.
type GrantSource interface {
	GrantsForUser(ctx context.Context, user string) ([]store.Grant, error)
}

// PolicyChecker evaluates objects against stored grants.
type PolicyChecker struct {
	Grants GrantSource
}

func (p PolicyChecker) Authorize(ctx context.Context, user string, action Action, objects []Object) ([]bool, error) {
	out := make([]bool, len(objects))
	if user == "" || len(objects) == 0 {
		return out, nil
	}
	grants, err := p.Grants.GrantsForUser(ctx, user)
	if err != nil {
		return nil, err
	}
	for i, obj := range objects {
		for _, g := range grants {
			if Permits(g, action, obj) {
				out[i] = true
				break
			}
		}
	}
	return out, nil
}

// Permits reports whether g allows action on obj. A grant on a database
// covers its tables, a grant on a table covers its columns.
func Permits(g store.Grant, action Action, obj Object) bool {
	ga := Action(strings.ToUpper(g.Action))
	if ga != ActionAll && ga != action {
		return false
	}
	return scopeMatches(g.Server, obj.Server) &&
		scopeMatches(g.DB, obj.DB) &&
		scopeMatches(g.Table, obj.Table) &&
		scopeMatches(g.Column, obj.Column)
}

func scopeMatches(granted, requested string) bool {
	if granted == "" || granted == "*" {
		return true
	}
	return strings.EqualFold(granted, requested)
}

// AllowAll permits everything. The server installs it when permission
// enforcement is turned off.
type AllowAll struct{}

func (AllowAll) Authorize(_ context.Context, _ string, _ Action, objects []Object) ([]bool, error) {
	out := make([]bool, len(objects))
	for i := range out {
		out[i] = true
	}
	return out, nil
}

// Filter keeps the items of in whose object passes the checker.
func Filter[T any](ctx context.Context, c Checker, user string, action Action, in []T, key func(T) Object) ([]T, error) {
	objects := make([]Object, len(in))
	for i, item := range in {
		objects[i] = key(item)
	}
	verdicts, err := c.Authorize(ctx, user, action, objects)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(in))
	for i, item := range in {
		if i < len(verdicts) && verdicts[i] {
			out = append(out, item)
		}
	}
	return out, nil
}
