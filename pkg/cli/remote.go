package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/uiharness/pkg/client"
	"github.com/devicelab-dev/uiharness/pkg/registry"
)

var tapCommand = &cli.Command{
	Name:      "tap",
	Usage:     "Tap an element on a running server",
	ArgsUsage: "[text]",
	Description: `Tap the element matched by --key, or by text (--text or the first argument).
Tapping the text "Reset" restores the initial state.

Examples:
  uiharness tap +
  uiharness tap --key increment_key1
  uiharness tap --text Reset`,
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "text", Aliases: []string{"t"}, Usage: "Match by visible text"},
		&cli.StringFlag{Name: "key", Aliases: []string{"k"}, Usage: "Match by element key"},
		&cli.BoolFlag{Name: "wait", Usage: "Wait for the UI to settle after tapping"},
	},
	Action: runTap,
}

var resetCommand = &cli.Command{
	Name:   "reset",
	Usage:  "Restore the initial state on a running server",
	Action: runReset,
}

var textsCommand = &cli.Command{
	Name:      "texts",
	Usage:     "Print the texts of every element with a key",
	ArgsUsage: "<key>",
	Action:    runTexts,
}

var scrollCommand = &cli.Command{
	Name:  "scroll",
	Usage: "Scroll a container and check that an item is visible",
	Description: `Scroll the container by (dx, dy) and check that the item is in view.
Negative dy scrolls toward later items.

Examples:
  uiharness scroll --container number_list --key list_item_30 --dy -200`,
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "container", Aliases: []string{"scrollable-key"}, Usage: "Scrollable container key", Required: true},
		&cli.StringFlag{Name: "key", Aliases: []string{"k"}, Usage: "Item key", Required: true},
		&cli.IntFlag{Name: "dx", Usage: "Horizontal drag distance"},
		&cli.IntFlag{Name: "dy", Usage: "Vertical drag distance"},
	},
	Action: runScroll,
}

var statusCommand = &cli.Command{
	Name:  "status",
	Usage: "Check that a server is up",
	Flags: []cli.Flag{
		&cli.DurationFlag{Name: "wait", Usage: "Poll until ready for up to this long"},
	},
	Action: runStatus,
}

var hierarchyCommand = &cli.Command{
	Name:  "hierarchy",
	Usage: "Print every element of a running server",
	Description: `Print every element with its kind, text and visibility.

Examples:
  uiharness hierarchy
  uiharness hierarchy --json`,
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "json", Usage: "Output JSON"},
	},
	Action: runHierarchy,
}

func newClient(c *cli.Context) (*client.Client, error) {
	if err := initClientLogging(c); err != nil {
		return nil, err
	}
	return client.New(c.String("url")), nil
}

func runTap(c *cli.Context) error {
	text, key := c.String("text"), c.String("key")
	if text == "" && c.NArg() > 0 {
		text = c.Args().First()
	}

	var id registry.Identifier
	switch {
	case text != "" && key != "":
		return fmt.Errorf("--text and --key are mutually exclusive")
	case key != "":
		id = registry.ByKey(key)
	case text != "":
		id = registry.ByText(text)
	default:
		return fmt.Errorf("--text or --key is required")
	}

	cl, err := newClient(c)
	if err != nil {
		return err
	}
	resp, err := cl.Tap(c.Context, id)
	if err != nil {
		return err
	}
	if c.Bool("wait") {
		if err := cl.Idle(c.Context, 0); err != nil {
			return err
		}
	}
	printOK(c, resp.Message)
	return nil
}

func runReset(c *cli.Context) error {
	cl, err := newClient(c)
	if err != nil {
		return err
	}
	if err := cl.Reset(c.Context); err != nil {
		return err
	}
	printOK(c, "reset")
	return nil
}

func runTexts(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one key is required")
	}
	cl, err := newClient(c)
	if err != nil {
		return err
	}
	entries, err := cl.Texts(c.Context, c.Args().First())
	if err != nil {
		return err
	}
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

func runScroll(c *cli.Context) error {
	cl, err := newClient(c)
	if err != nil {
		return err
	}
	resp, err := cl.ScrollInto(c.Context, c.String("container"), c.String("key"), c.Int("dx"), c.Int("dy"))
	if err != nil {
		return err
	}
	printOK(c, resp.Message)
	return nil
}

func runStatus(c *cli.Context) error {
	cl, err := newClient(c)
	if err != nil {
		return err
	}
	if wait := c.Duration("wait"); wait > 0 {
		ctx, cancel := context.WithTimeout(c.Context, wait)
		defer cancel()
		if err := cl.WaitReady(ctx, 100*time.Millisecond); err != nil {
			return err
		}
	}
	st, err := cl.Status(c.Context)
	if err != nil {
		return err
	}
	printOK(c, fmt.Sprintf("%s ready (version %s, settle %s)", cl.BaseURL(), st.Version, st.Settle))
	return nil
}

func runHierarchy(c *cli.Context) error {
	cl, err := newClient(c)
	if err != nil {
		return err
	}
	elements, err := cl.Elements(c.Context)
	if err != nil {
		return err
	}

	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(elements)
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tKIND\tTEXT\tVISIBLE\tBINDING")
	for _, el := range elements {
		fmt.Fprintf(tw, "%s\t%s\t%q\t%v\t%s\n", el.Key, el.Kind, el.Text, el.Visible, binding(el.Element))
	}
	return tw.Flush()
}

func binding(el registry.Element) string {
	var parts []string
	if el.Counter != "" {
		parts = append(parts, "counter="+el.Counter)
	}
	if el.Container != "" {
		parts = append(parts, "container="+el.Container)
	}
	if el.Action != "" {
		parts = append(parts, "action="+string(el.Action))
	}
	return strings.Join(parts, " ")
}

func printOK(c *cli.Context, msg string) {
	fmt.Fprintf(c.App.Writer, "  %s✓%s %s\n", color(colorGreen), color(colorReset), msg)
}
