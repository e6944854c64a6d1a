// Package irtext is chakravyuha's textual front end: a small assembly-like
// notation for ir.Module, used by cmd/chakravyuha-opt to read a module
// from disk and to print the transformed result back out. It is not a
// source language — it is a serialization of the already-built IR the
// host would otherwise hand the core in process.
package irtext

import "github.com/alecthomas/participle/v2/lexer"

// Lexer is a stateful participle lexer for the textual IR notation,
// built the way the teacher's own grammar lexer is: one "Root" state,
// ordered rules, comments and whitespace elided at the parser level.
var Lexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Comment", `;[^\n]*`, nil},
		{"String", `"(\\.|[^"\\])*"`, nil},
		{"Global", `@[A-Za-z_][A-Za-z0-9_.]*`, nil},
		{"Value", `%[A-Za-z_][A-Za-z0-9_.]*`, nil},
		{"Integer", `-?[0-9]+`, nil},
		{"Ident", `[A-Za-z_][A-Za-z0-9_]*`, nil},
		{"Punctuation", `[{}()=,:*\[\]]`, nil},
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
