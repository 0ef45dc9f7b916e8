// Package shutdown coordinates process termination.
//
// A Handler waits for SIGINT / SIGTERM (or an explicit Trigger, or the
// parent context ending), then runs the registered hooks in reverse
// registration order under a shared timeout. SIGHUP runs the reload hooks
// without stopping the process.
//
// Usage:
//
//	h := shutdown.NewHandler(15*time.Second, shutdown.WithLogger(log))
//	h.OnShutdown("http", srv.Shutdown)
//	h.OnReload(reloadConfig)
//	err := h.Wait(ctx)
package shutdown
