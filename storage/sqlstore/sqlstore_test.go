package sqlstore_test

import (
	"testing"

	"github.com/docguardhq/docguard/storage"
	"github.com/docguardhq/docguard/storage/sqlstore"
	"github.com/docguardhq/docguard/storage/storagetests"
)

func TestSQLiteStore(t *testing.T) {
	storagetests.Run(t, func() storage.Client {
		return sqlstore.New("sqlite3", ":memory:")
	})
}
