package privilege

import (
	"strings"

	"github.com/k8ika0s/optimizer-api/internal/store"
)

// NormalizeGrant trims grant fields and upper-cases the action.
func NormalizeGrant(g store.Grant) store.Grant {
	g.ID = strings.TrimSpace(g.ID)
	g.User = strings.TrimSpace(g.User)
	g.Server = strings.TrimSpace(g.Server)
	g.DB = strings.TrimSpace(g.DB)
	g.Table = strings.TrimSpace(g.Table)
	g.Column = strings.TrimSpace(g.Column)
	g.Action = strings.ToUpper(strings.TrimSpace(g.Action))
	return g
}

// ValidateGrant returns validation errors for a grant.
func ValidateGrant(g store.Grant) []string {
	var errs []string
	if g.ID == "" {
		errs = append(errs, "id required")
	}
	if g.User == "" {
		errs = append(errs, "user required")
	}
	switch Action(g.Action) {
	case ActionSelect, ActionInsert, ActionAll:
	case "":
		errs = append(errs, "action required")
	default:
		errs = append(errs, "action must be SELECT|INSERT|ALL")
	}
	if isWild(g.DB) && !isWild(g.Table) {
		errs = append(errs, "table requires db")
	}
	if isWild(g.Table) && !isWild(g.Column) {
		errs = append(errs, "column requires table")
	}
	return errs
}

func isWild(s string) bool {
	return s == "" || s == "*"
}
