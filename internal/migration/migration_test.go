package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedSchemaStatements(t *testing.T) {
	stmts := Statements(schemaSQL)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "CREATE TABLE IF NOT EXISTS topup_orders")
	assert.Contains(t, stmts[1], "CREATE TABLE IF NOT EXISTS payment_gateways")
}

func TestStatementsSkipsBlankParts(t *testing.T) {
	stmts := Statements("SELECT 1;\n\n  ;SELECT 2;  ")
	assert.Equal(t, []string{"SELECT 1", "SELECT 2"}, stmts)
}
