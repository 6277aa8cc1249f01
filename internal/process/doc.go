// Package process supervises a long-running helper command.
//
// lampfx uses it to keep an external screen capture tool alive while the
// aurora_sync feed reads the images it writes. The supervisor restarts the
// helper with exponential backoff, kills it when its health check keeps
// failing, and tears down the whole process group on shutdown.
//
// Example usage:
//
//	sup := process.NewSupervisor(process.Config{
//	    Name:        "screen-capture",
//	    Command:     []string{"/usr/local/bin/grab-screen", "/run/lampfx/screen.png"},
//	    HealthCheck: screen.FreshnessCheck("/run/lampfx/screen.png", 5*time.Second),
//	})
//	sup.SetLogger(log)
//	g.Go(func() error { return sup.Run(ctx) })
package process
