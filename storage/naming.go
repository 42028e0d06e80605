package storage

import (
	"sync"

	pluralize "github.com/gertd/go-pluralize"
	"github.com/iancoleman/strcase"
)

var (
	pluralizer = pluralize.NewClient()

	tableNamesMu sync.RWMutex
	tableNames   = map[string]string{}
)

// TableName derives the table or bucket name for a document type: snake_cased
// and pluralized, so "workspace" becomes "workspaces" and "connection"
// becomes "connections". Both bundled stores partition documents this way.
func TableName(typ string) string {
	tableNamesMu.RLock()
	n, ok := tableNames[typ]
	tableNamesMu.RUnlock()
	if ok {
		return n
	}

	n = pluralizer.Plural(strcase.ToSnake(typ))
	tableNamesMu.Lock()
	tableNames[typ] = n
	tableNamesMu.Unlock()
	return n
}

// ValidateDocument returns an error if a document is missing the fields every
// store requires.
func ValidateDocument(doc *Document) error {
	if doc == nil || doc.ID == "" || doc.Type == "" {
		return ErrInvalidDocument
	}
	return nil
}
