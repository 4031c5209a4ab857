// Package graphdb implements the metadata store on a GraphDB repository
// through the RDF4J REST API.
//
// Statements are added to and removed from one context (named graph) of
// the repository; SPARQL queries run against the repository and are
// answered in the SPARQL JSON results format. Missing repositories are
// created on open.
package graphdb
