// Package source provides bundle sources for the decision engine.
//
// A bundle source loads and watches the APL bundle the engine
// evaluates. This package provides file-based and in-memory
// implementations; pkg/policy/git provides a git-backed one.
//
// # File Source
//
// The file source loads a bundle from a YAML file, or merges a
// directory of them in lexical order:
//
//	src := source.NewFileSource("bundles/", nil)
//	bundle, err := src.Load(ctx)
//
// File sources do not watch the filesystem themselves; hot reload with
// debouncing is pkg/policy/manager's job.
//
// # In-Memory Source
//
// The in-memory source is useful for tests and embedders that build
// bundles programmatically:
//
//	src := source.NewMemorySource(bundle)
//	src.SetBundle(updated) // signals the engine's watch loop
package source
