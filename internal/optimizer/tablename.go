package optimizer

import "strings"

// TableName is a parsed "database.table" reference.
type TableName struct {
	Database string `json:"database"`
	Table    string `json:"table"`
}

// SplitTableName splits path on its first period. A bare name has an empty database.
func SplitTableName(path string) TableName {
	database, table, ok := strings.Cut(path, ".")
	if !ok {
		return TableName{Table: path}
	}
	return TableName{Database: database, Table: table}
}

// String renders the reference back into dotted form.
func (t TableName) String() string {
	if t.Database == "" {
		return t.Table
	}
	return t.Database + "." + t.Table
}
