// Package audit defines the attempt audit log of the gateway.
//
// Every fallback orchestration produces one Record: which providers were
// tried, in which pool, in what order, why each one failed, and which one
// (if any) served the request. Records are written asynchronously by the
// recorder subpackage, persisted by a Storage implementation from the
// storage subpackage, and pruned on a cron schedule by the retention
// subpackage.
//
// # Components
//
//   - Record, AttemptRecord: one orchestration and its attempts
//   - Query: filters for listing records
//   - Storage: persistence interface (SQLite or in-memory)
//   - StorageError, RecorderError, RetentionError: typed failures
//
// # Usage
//
//	store, err := storage.New(cfg.Audit)
//	if err != nil {
//	    return err
//	}
//	rec := recorder.New(store, &recorder.Config{BufferSize: cfg.Audit.BufferSize})
//	defer rec.Close(context.Background())
//
//	orch, _ := routing.NewOrchestrator(rotator, manager, routing.WithObserver(rec))
//
//	recent, _ := store.Query(ctx, &audit.Query{Provider: "groq", Limit: 20})
package audit
