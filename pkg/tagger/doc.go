// Package tagger provides implementations of core.Tagger, the collaborator
// that assigns one CAT tag to every token of normalized code.
//
// Lexical works offline from the lexical class of each token. HTTP, Command
// and Gemini delegate to an external tagging service, program or model.
// Cached memoizes any of them.
package tagger
