package telemetry

import (
	"database/sql"
	"fmt"

	"github.com/XSAM/otelsql"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// OpenDB opens an instrumented database handle for the blob store,
// tagging spans with the right db.system for the driver in use.
func OpenDB(driverName, dsn string) (*sql.DB, error) {
	var system attribute.KeyValue
	switch driverName {
	case "postgres":
		system = semconv.DBSystemPostgreSQL
	case "sqlite":
		system = semconv.DBSystemSqlite
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driverName)
	}

	return otelsql.Open(driverName, dsn, otelsql.WithAttributes(system))
}
