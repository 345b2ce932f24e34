package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/uiharness/pkg/command"
	"github.com/devicelab-dev/uiharness/pkg/engine"
	"github.com/devicelab-dev/uiharness/pkg/logger"
	"github.com/devicelab-dev/uiharness/pkg/runner"
)

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "Run command files against a server or an in-process engine",
	ArgsUsage: "<file>...",
	Description: `Run YAML command files. Each file is a list of commands:

  - tap: Reset
  - tap: "+"
  - tap: {key: increment_key1}
  - texts: txtCount
  - assertTexts: {key: txtCount, want: ["2"]}
  - scrollInto: {scrollable: number_list, key: list_item_30, dy: -200}

With --local the files run against a fresh engine built from the
configuration instead of the server at --url.

Examples:
  uiharness run episode.yaml
  uiharness run --local episodes/*.yaml`,
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "local", Usage: "Run against an in-process engine"},
		&cli.BoolFlag{Name: "continue-on-fail", Usage: "Keep running steps after a failure"},
		&cli.BoolFlag{Name: "reset", Usage: "Reset before each file"},
		&cli.StringFlag{Name: "report", Usage: "Write a JSON report to this file"},
		&cli.DurationFlag{Name: "wait", Usage: "Wait up to this long for the server to be ready", Value: 5 * time.Second},
	},
	Action: runRun,
}

func runRun(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("at least one command file is required")
	}

	files := c.Args().Slice()
	parsed := make([][]command.Command, len(files))
	for i, f := range files {
		cmds, err := command.ParseFile(f)
		if err != nil {
			return err
		}
		parsed[i] = cmds
	}

	target, cleanup, err := newTarget(c)
	if err != nil {
		return err
	}
	defer cleanup()

	start := time.Now()
	w := c.App.Writer
	r := runner.New(target, runner.RunnerConfig{
		ContinueOnFail: c.Bool("continue-on-fail"),
		OnStepComplete: stepPrinter(w),
	})

	results := make([]*runner.RunResult, 0, len(files))
	for i, cmds := range parsed {
		if c.Context.Err() != nil {
			break
		}
		if c.Bool("reset") {
			cmds = append([]command.Command{command.Reset{}}, cmds...)
		}
		printFileStart(w, i, len(files), files[i])
		results = append(results, r.Run(c.Context, cmds))
	}
	printSummary(w, results)

	if path := c.String("report"); path != "" {
		targetName := "local"
		if !c.Bool("local") {
			targetName = c.String("url")
		}
		if err := runner.WriteReport(path, runner.NewReport(targetName, start, files[:len(results)], results)); err != nil {
			return err
		}
		fmt.Fprintf(w, "  report: %s\n", path)
	}

	failed := 0
	for _, res := range results {
		if res.FailedSteps > 0 {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d command files failed", failed, len(files))
	}
	return nil
}

// newTarget returns the engine (--local) or a client for --url.
func newTarget(c *cli.Context) (runner.Target, func(), error) {
	if !c.Bool("local") {
		cl, err := newClient(c)
		if err != nil {
			return nil, nil, err
		}
		ctx, cancel := context.WithTimeout(c.Context, c.Duration("wait"))
		defer cancel()
		if err := cl.WaitReady(ctx, 100*time.Millisecond); err != nil {
			return nil, nil, err
		}
		return cl, func() {}, nil
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	level := cfg.Logging.Level
	if !c.IsSet("log-level") {
		level = "warn"
	}
	if err := logger.Init(level, cfg.Logging.File); err != nil {
		return nil, nil, err
	}
	eng, err := engine.FromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	return eng, func() {
		if err := eng.WaitIdle(context.Background()); err != nil {
			logger.Warn("engine did not settle: %v", err)
		}
		eng.Close()
	}, nil
}
