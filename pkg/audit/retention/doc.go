// Package retention prunes old audit records.
//
// Pruner deletes records older than the configured number of days; zero
// days keeps records forever. Scheduler runs the pruner on a cron
// expression in standard five-field syntax:
//
//	p := retention.NewPruner(store, &retention.Config{Days: 30, Schedule: "0 3 * * *"})
//	if err := p.Start(ctx); err != nil {
//	    return err
//	}
//	defer p.Stop()
package retention
