// Command cql2pgjson compiles CQL queries into PostgreSQL WHERE and ORDER BY
// clauses over jsonb columns.
//
// Usage:
//
//	cql2pgjson translate --table users --field jsonb 'lastName = smith'
//	cql2pgjson serve --addr :8080
//	cql2pgjson doctor --db postgres://localhost/mydb
//
// Settings can also come from cql2pgjson.yaml, discovered upward from the
// working directory, and from CQL2PGJSON_* environment variables.
package main

func main() {
	Execute()
}
