package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/devicelab-dev/uiharness/pkg/config"
	"github.com/devicelab-dev/uiharness/pkg/engine"
	"github.com/devicelab-dev/uiharness/pkg/logger"
	"github.com/devicelab-dev/uiharness/pkg/server"
)

const shutdownTimeout = 10 * time.Second

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "Serve the UI state engine over HTTP",
	Description: `Start the HTTP server exposing /tap, /texts and /scroll-into for the
configured layout. Stops on SIGINT or SIGTERM.

Examples:
  uiharness serve
  uiharness --port 9000 serve --settle async --settle-delay 100ms
  uiharness serve --rate-limit 50`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "settle",
			Usage:   "Settle mode: sync applies taps before responding, async applies them after a delay",
			EnvVars: []string{"UIHARNESS_SETTLE"},
		},
		&cli.DurationFlag{
			Name:  "settle-delay",
			Usage: "Delay before an async tap effect is applied",
		},
		&cli.Float64Flag{
			Name:  "rate-limit",
			Usage: "Max requests per second (0 = unlimited)",
		},
	},
	Action: runServe,
}

func runServe(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	applyServeFlags(c, cfg)

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return err
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, func(addr string) {
		fmt.Fprintf(c.App.Writer, "  %s✓%s uiharness %s listening on %shttp://%s%s (settle: %s)\n",
			color(colorGreen), color(colorReset), Version,
			color(colorCyan), addr, color(colorReset), cfg.Settle.Mode)
	})
}

func applyServeFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("settle") {
		cfg.Settle.Mode = c.String("settle")
	}
	if c.IsSet("settle-delay") {
		cfg.Settle.Delay = c.Duration("settle-delay")
	}
	if c.IsSet("rate-limit") {
		cfg.Server.RateLimit = c.Float64("rate-limit")
	}
}

// serve runs the server until ctx is done, then shuts it down gracefully.
// ready is called with the bound address once the listener is open.
func serve(ctx context.Context, cfg *config.Config, ready func(addr string)) error {
	eng, err := engine.FromConfig(cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	ln, err := net.Listen("tcp", cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Server.Addr(), err)
	}
	srv := server.New(cfg.Server, eng, Version)
	if ready != nil {
		ready(ln.Addr().String())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(ln)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
