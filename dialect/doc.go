// Package dialect defines the database driver abstraction used by the SQL
// store.
//
// A Driver executes statements and opens transactions. Statement arguments are
// passed as []any; Exec accepts a nil or *sql.Result destination and Query a
// *sql.Rows destination from the dialect/sql package:
//
//	drv, err := sql.Open(dialect.SQLite, "file:links.db")
//	if err != nil {
//	    return err
//	}
//	defer drv.Close()
//
// The following dialects are recognized:
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//
// Sub-packages:
//
//   - dialect/sql: the database/sql backed Driver and statement builders
//   - dialect/sql/sqlgraph: classification of driver constraint errors
package dialect
