// Package catset is the Composition Root for the catset application.
//
// catset grows a shared dataset of (code, CAT, comment) triples. Raw Java
// source is comment-stripped, tokenized and normalized into a token string
// with literals hidden behind placeholders; a tagger produces one tag per
// token (the CAT, code-aligned type sequence); the triple is appended to a
// dataset document held in a document store.
//
// Features:
//
//   - **Normalizer**: hand-written Java lexer, or tree-sitter as an alternative backend.
//   - **Pluggable Taggers**: built-in lexical tagger, remote HTTP service, external command, Gemini, with an LRU cache.
//   - **Safe Appends**: optimistic version checks with retry; the legacy read-modify-write mode is kept for comparison.
//   - **Stores**: filesystem (JSON/YAML, versioned with Git), in-memory, SQLite, PostgreSQL and S3.
//
// Usage:
//
//	cfg := catset.DefaultConfig()
//	cfg.Store.Path = "./corpus"
//
//	rt, err := catset.Open(ctx, &cfg, catset.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer rt.Close()
//
//	entry, err := rt.Submit(ctx, "int x = 42; // set x", "declare x")
//	// entry.Code == "int x = NUM_ ;"
package catset
