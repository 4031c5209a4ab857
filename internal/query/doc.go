// Package query models metadata graph queries independently of the backend.
//
// A Pattern is a conjunction of triple patterns plus optional groups. It is
// compiled to SPARQL for the GraphDB and SPARQL endpoint backends and to SQL
// over the triples table for the embedded store, so the same resolution
// logic runs against every backend. Query results come back as domain.Row
// either way: SPARQL JSON results through ParseSPARQLJSON, SQL rows through
// FoldColumns.
package query
