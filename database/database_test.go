package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdminURLAndDBName(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		expectedAdmin string
		expectedDB    string
	}{
		{
			"standard URL",
			"postgres://bot:pw@db.internal:5432/verify?sslmode=require",
			"postgres://bot:pw@db.internal:5432/postgres?sslmode=require",
			"verify",
		},
		{
			"postgres database itself",
			"postgres://bot:pw@db.internal:5432/postgres",
			"postgres://bot:pw@db.internal:5432/postgres",
			"postgres",
		},
		{
			"no database in path",
			"postgres://bot:pw@db.internal:5432",
			"postgres://bot:pw@db.internal:5432/postgres",
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adminURL, dbName := adminURLAndDBName(tt.input)
			assert.Equal(t, tt.expectedAdmin, adminURL)
			assert.Equal(t, tt.expectedDB, dbName)
		})
	}
}

func TestSafePgIdent(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
	}{
		{"verify", true},
		{"verify_bot", true},
		{"Verify123", true},
		{"drop;table", false},
		{"name-with-dash", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			safe, ok := safePgIdent(tt.input)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.input, safe)
			} else {
				assert.Empty(t, safe)
			}
		})
	}
}

func TestDatabaseSchemaShape(t *testing.T) {
	// The schema must create every table the service queries.
	for _, table := range []string{"verified_users", "bot_admins", "audit_log"} {
		assert.Contains(t, DatabaseSchema, "CREATE TABLE IF NOT EXISTS "+table)
	}
	// Statements must be idempotent so migrations can re-run safely.
	assert.NotContains(t, strings.ReplaceAll(DatabaseSchema, "IF NOT EXISTS", ""), "CREATE TABLE verified_users")
}
