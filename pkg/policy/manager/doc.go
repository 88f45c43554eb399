// Package manager binds bundle sources, the decision engine, and hot
// reload into one lifecycle.
//
// The manager constructs the bundle source selected by configuration
// (a file or directory on disk, or a git checkout), hands it to the
// engine for the initial load, and keeps the engine's snapshot fresh:
//
//   - File mode runs a filesystem watcher. Rapid save events are
//     debounced so one edit produces one reload.
//   - Git mode leans on the source's own remote polling; pulled
//     commits flow to the engine as bundle events.
//
// A reload that fails to parse or validate leaves the previous
// snapshot active, so a bad edit never takes down enforcement.
//
// # Usage
//
//	m, err := manager.NewManager(&cfg.Policy, engineConfig, collab, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer m.Close()
//
//	go m.Watch(ctx)
//
//	decision, err := m.Engine().Decide(ctx, requestContext)
//
// Status exposes the loaded bundle version, reload history, and the
// current commit in git mode. DryRun validates edits without touching
// the live snapshot.
package manager
