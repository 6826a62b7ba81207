package privilege

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k8ika0s/optimizer-api/internal/store"
)

type fakeGrants struct {
	grants map[string][]store.Grant
	err    error
	put    []store.Grant
}

func (f *fakeGrants) GrantsForUser(ctx context.Context, user string) ([]store.Grant, error) {
	return f.grants[user], f.err
}

func (f *fakeGrants) PutGrant(ctx context.Context, g store.Grant) error {
	f.put = append(f.put, g)
	return nil
}

func TestPermitsScopes(t *testing.T) {
	dbGrant := store.Grant{Server: "server1", DB: "sales", Action: "SELECT"}
	assert.True(t, Permits(dbGrant, ActionSelect, Object{Server: "server1", DB: "sales", Table: "orders"}))
	assert.True(t, Permits(dbGrant, ActionSelect, Object{Server: "server1", DB: "SALES", Table: "orders"}))
	assert.False(t, Permits(dbGrant, ActionSelect, Object{Server: "server1", DB: "hr", Table: "people"}))
	assert.False(t, Permits(dbGrant, ActionInsert, Object{Server: "server1", DB: "sales"}))

	tableGrant := store.Grant{DB: "sales", Table: "orders", Action: "all"}
	assert.True(t, Permits(tableGrant, ActionSelect, Object{Server: "server1", DB: "sales", Table: "orders"}))
	assert.False(t, Permits(tableGrant, ActionSelect, Object{Server: "server1", DB: "sales", Table: "customers"}))

	assert.True(t, Permits(store.Grant{Server: "*", Action: "SELECT"}, ActionSelect, Object{DB: "anything", Table: "t"}))
}

func TestPolicyCheckerAuthorize(t *testing.T) {
	src := &fakeGrants{grants: map[string][]store.Grant{
		"alice": {{ID: "1", User: "alice", DB: "sales", Action: "SELECT"}},
	}}
	c := PolicyChecker{Grants: src}
	objs := []Object{{DB: "sales", Table: "orders"}, {DB: "hr", Table: "people"}}

	got, err := c.Authorize(context.Background(), "alice", ActionSelect, objs)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, got)

	got, err = c.Authorize(context.Background(), "", ActionSelect, objs)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false}, got)
}

func TestPolicyCheckerPropagatesErrors(t *testing.T) {
	c := PolicyChecker{Grants: &fakeGrants{err: errors.New("db down")}}
	_, err := c.Authorize(context.Background(), "alice", ActionSelect, []Object{{DB: "x"}})
	assert.EqualError(t, err, "db down")
}

func TestFilterKeepsOrder(t *testing.T) {
	type row struct{ db, table string }
	rows := []row{{"sales", "a"}, {"hr", "b"}, {"sales", "c"}}
	src := &fakeGrants{grants: map[string][]store.Grant{"alice": {{DB: "sales", Action: "SELECT"}}}}

	out, err := Filter(context.Background(), PolicyChecker{Grants: src}, "alice", ActionSelect, rows, func(r row) Object {
		return Object{DB: r.db, Table: r.table}
	})
	require.NoError(t, err)
	assert.Equal(t, []row{{"sales", "a"}, {"sales", "c"}}, out)

	out, err = Filter(context.Background(), AllowAll{}, "", ActionSelect, rows, func(r row) Object { return Object{} })
	require.NoError(t, err)
	assert.Len(t, out, 3)
}

func TestValidateGrant(t *testing.T) {
	assert.Empty(t, ValidateGrant(NormalizeGrant(store.Grant{ID: " g1 ", User: "alice", DB: "sales", Action: " select "})))

	errs := ValidateGrant(store.Grant{Table: "orders", Action: "DROP"})
	assert.Contains(t, errs, "id required")
	assert.Contains(t, errs, "user required")
	assert.Contains(t, errs, "action must be SELECT|INSERT|ALL")
	assert.Contains(t, errs, "table requires db")
}

func TestSeedGrantsFromDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/grants/analysts.yaml", []byte(`
- id: a1
  user: alice
  db: sales
  action: select
- id: bad
  user: ""
  action: SELECT
`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/grants/notes.txt", []byte("ignored"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/grants/broken.yml", []byte("{not: [valid"), 0o644))

	w := &fakeGrants{}
	res, err := SeedGrantsFromDir(context.Background(), fs, w, "/grants")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Files)
	assert.Equal(t, 1, res.Loaded)
	assert.Equal(t, 1, res.Skipped)
	assert.Len(t, res.Errors, 2)
	require.Len(t, w.put, 1)
	assert.Equal(t, "SELECT", w.put[0].Action)
}

func TestSeedGrantsMissingDir(t *testing.T) {
	res, err := SeedGrantsFromDir(context.Background(), afero.NewMemMapFs(), &fakeGrants{}, "/nope")
	require.NoError(t, err)
	assert.Zero(t, res.Files)
}
