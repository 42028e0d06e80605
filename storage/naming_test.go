package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableName(t *testing.T) {
	assert.Equal(t, "workspaces", TableName("workspace"))
	assert.Equal(t, "connections", TableName("connection"))
	assert.Equal(t, "dashboards", TableName("dashboard"))
	assert.Equal(t, "index_patterns", TableName("index-pattern"))

	// Cached second lookup.
	assert.Equal(t, "workspaces", TableName("workspace"))
}

func TestValidateDocument(t *testing.T) {
	assert.ErrorIs(t, ValidateDocument(nil), ErrInvalidDocument)
	assert.ErrorIs(t, ValidateDocument(&Document{Type: "dashboard"}), ErrInvalidDocument)
	assert.ErrorIs(t, ValidateDocument(&Document{ID: "d1"}), ErrInvalidDocument)
	assert.NoError(t, ValidateDocument(&Document{ID: "d1", Type: "dashboard"}))
}
