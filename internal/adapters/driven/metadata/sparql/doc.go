// Package sparql implements the metadata store on a generic SPARQL 1.1
// endpoint and the protocol client shared with the graphdb backend.
//
// Documents are parsed locally and uploaded as N-Triples through the graph
// store protocol into one named graph. Queries are sent with that graph as
// default-graph-uri; results are decoded from the SPARQL JSON format.
package sparql
