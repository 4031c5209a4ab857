// Package rdfio decodes metadata documents into triples.
//
// Turtle, N-Triples, N-Quads and RDF/XML are decoded with knakk/rdf.
// JSON-LD is first converted to N-Quads with json-gold. Named graph
// labels of quads are dropped: every statement lands in one graph.
//
// Syntax errors are returned as *domain.ParseError carrying the line when
// the decoder reports one and the number of bytes consumed.
package rdfio
