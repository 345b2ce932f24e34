package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

var layoutCommand = &cli.Command{
	Name:  "layout",
	Usage: "Validate the configuration and print the resolved layout",
	Description: `Load the configuration (--config, uiharness.yaml or the built-in app),
check every layout reference and print the elements the server would expose.

Examples:
  uiharness layout
  uiharness --config app.yaml layout --yaml`,
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "yaml", Usage: "Print the resolved layout as YAML"},
	},
	Action: runLayout,
}

func runLayout(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	layout, err := cfg.Layout.Resolve()
	if err != nil {
		return err
	}

	w := c.App.Writer
	if c.Bool("yaml") {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(layout); err != nil {
			return fmt.Errorf("encode layout: %w", err)
		}
		return enc.Close()
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tKIND\tTEXT\tBINDING")
	for _, el := range layout.Elements {
		fmt.Fprintf(tw, "%s\t%s\t%q\t%s\n", el.Key, el.Kind, el.Text, binding(el))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	for _, cs := range layout.Counters {
		fmt.Fprintf(w, "  counter %s → %s\n", cs.Key, cs.Display)
	}
	for _, rc := range layout.Containers {
		virtual := ""
		if rc.Virtualized {
			virtual = ", virtualized"
		}
		fmt.Fprintf(w, "  container %s: %d items, viewport %d rows of %d%s\n",
			rc.Key, len(rc.Items), rc.ViewportSize, rc.RowHeight, virtual)
	}
	fmt.Fprintf(w, "\n  %s✓%s layout valid: %d elements\n", color(colorGreen), color(colorReset), len(layout.Elements))
	return nil
}
