// Package sqlite persists answered questions in ~/.lumen/data/lumen.db using
// modernc.org/sqlite, so no cgo toolchain is needed.
//
// Only the query history lives here. The embedding index is rebuilt in memory
// on every start.
//
// Schema changes are numbered scripts under schema/ (NNN_name.up.sql with a
// matching .down.sql kept for manual rollback). Pending scripts are applied in
// one transaction when the store opens. The database runs in WAL mode with a
// busy timeout so the CLI and a running MCP server can share the file.
package sqlite
