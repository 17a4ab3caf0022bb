// Package sqfls coordinates analysis of SQF projects for a language server.
// It finds the addon or mission a script belongs to, analyzes every function
// the project declares, merges what those files export into one project-wide
// namespace, and keeps per-file results fresh as files are opened and edited.
//
// # Pipeline
//
// Analysis runs in two modes:
//
//  1. Project load: [AnalyzeProject] resolves every declared function path,
//     analyzes the resolved files in parallel against a placeholder namespace
//     (every declared name bound with an unknown location), then merges the
//     results serially in path order into a [Namespace].
//
//  2. Incremental: [Session.Replace] rebuilds the namespace from every other
//     cached entry, re-analyzes the one file, and swaps in its new [Entry].
//     The first replace of a file that belongs to a project runs the project
//     load once.
//
// # Usage
//
//	s := sqfls.NewSession(sqfls.WithConfig(cfg), sqfls.WithDiagnostics(push))
//	entry, err := s.Open(ctx, "/work/addons/main/functions/fn_init.sqf", text)
//	if err != nil { ... }
//
//	q := s.Query()
//	hover, span, ok := q.Hover(entry.Path, offset)
//
// # Query API
//
// The [QueryBuilder] returned by [Session.Query] serves editor requests from
// cached entries and never waits for an analysis in flight:
//
//   - [QueryBuilder.Hover]: explanation under the cursor.
//   - [QueryBuilder.Definition]: where the symbol under the cursor is defined.
//   - [QueryBuilder.SemanticTokens]: delta-encoded highlighting.
//   - [QueryBuilder.InlayHints]: inferred types and parameter names.
//   - [QueryBuilder.Completion]: visible variables, project names and builtins.
//
// # Diagnostics
//
// Every diagnostic is attributed to the file it was produced in unless it
// names another file; a declared function whose file is missing is reported
// against the marker file. [Config] controls which optional diagnostics are
// kept.
package sqfls
