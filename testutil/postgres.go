package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// SetupTestDB opens TEST_PG_DSN and resets the clips table.
// It skips the test if TEST_PG_DSN environment variable is not set.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}
	database, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	ctx := context.Background()
	for _, stmt := range []string{`DROP TABLE IF EXISTS clips`, `DROP TABLE IF EXISTS schema_migrations`} {
		if _, err := database.ExecContext(ctx, stmt); err != nil {
			database.Close()
			t.Fatalf("failed to reset schema: %v", err)
		}
	}
	t.Cleanup(func() {
		database.Close()
	})
	return database
}
