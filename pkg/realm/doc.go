// Package realm stores realms and resolves the realm a request belongs to.
//
// Three repositories are available, chosen with NewRepository:
//
//	"memory"            in-process maps, for tests and demos
//	"file"              realms.json under a data directory
//	"postgres"          the realm table (see Schema)
//
// The Resolver extracts the realm name from a request path
// (".../realms/<name>/...") and falls back to the administrative realm when
// the path names no realm or an unknown one.
package realm
