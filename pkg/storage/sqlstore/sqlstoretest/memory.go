// Package sqlstoretest opens throwaway SQLite stores for tests in other packages.
package sqlstoretest

import (
	"context"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/laot-fitness/laot/pkg/storage"
	"github.com/laot-fitness/laot/pkg/storage/sqlstore"
)

// New opens a migrated in-memory SQLite store named after the test and
// closes it when the test ends
func New(t testing.TB) *sqlstore.Store {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)",
		url.PathEscape(t.Name()),
	)
	store, err := sqlstore.Open(context.Background(), storage.Config{
		Driver:         "sqlite",
		DSN:            dsn,
		Timeout:        5 * time.Second,
		MigrateOnStart: true,
	})
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}
