// Package textutil provides word counting, tokenization and filename
// sanitization for passage text.
//
// Word counts split on whitespace so punctuation stays attached to its word,
// matching what the speech and alignment stages see. Tokens are lowercased
// alphanumeric runs of at least three characters and are used for keyword
// matching.
package textutil
