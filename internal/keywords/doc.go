// Package keywords encodes and decodes the compact keyword-list string that
// the preprocessing pipeline stores next to each article:
//
//	(inflación,0.42),(dólar,0.31)
//
// Decoding never fails. A malformed or empty string yields an empty list, so
// partial annotation loss never blocks loading or retrieval.
package keywords
