// Package sqlgen lowers a validated query graph into SQL text.
//
// Each analysis operator maps to a Strategy that assembles a fixed sequence
// of clauses (SELECT, FROM, JOIN, WHERE, GROUP BY) from shared builders and
// post-processes the rows the engine returns. Builders assume the graph has
// passed validation; on an invalid graph they emit best-effort text.
package sqlgen
