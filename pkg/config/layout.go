package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/devicelab-dev/uiharness/pkg/core"
	"github.com/devicelab-dev/uiharness/pkg/registry"
)

var validate = validator.New()

// ResolvedContainer is a container with its generated items expanded.
type ResolvedContainer struct {
	Key          string   `yaml:"key"`
	Items        []string `yaml:"items,flow"`
	ViewportSize int      `yaml:"viewportSize"`
	RowHeight    int      `yaml:"rowHeight"`
	Offset       int      `yaml:"offset"`
	Virtualized  bool     `yaml:"virtualized"`
}

// ResolvedLayout is the expanded, cross-checked layout the engine is built from.
type ResolvedLayout struct {
	Elements   []registry.Element  `yaml:"elements"`
	Counters   []CounterSpec       `yaml:"counters"`
	Containers []ResolvedContainer `yaml:"containers"`
}

// Validate checks field constraints and layout cross references.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return core.ErrInvalidConfig.WithCause(describeValidation(err))
	}
	if _, err := c.Layout.Resolve(); err != nil {
		return err
	}
	return nil
}

// Resolve expands generated container items into list-item elements,
// attaches items to their container and checks every reference. Element
// keys must be unique in configuration.
func (l Layout) Resolve() (*ResolvedLayout, error) {
	out := &ResolvedLayout{
		Elements: append([]registry.Element(nil), l.Elements...),
		Counters: append([]CounterSpec(nil), l.Counters...),
	}
	var problems []error

	index := make(map[string]int, len(out.Elements))
	for i, e := range out.Elements {
		if _, dup := index[e.Key]; dup {
			problems = append(problems, fmt.Errorf("duplicate element key %q", e.Key))
			continue
		}
		index[e.Key] = i
	}

	owner := make(map[string]string)
	for _, spec := range l.Containers {
		rc := ResolvedContainer{
			Key:          spec.Key,
			Items:        append([]string(nil), spec.Items...),
			ViewportSize: spec.ViewportSize,
			RowHeight:    spec.RowHeight,
			Offset:       spec.Offset,
			Virtualized:  spec.Virtualized,
		}

		if i, ok := index[spec.Key]; ok {
			if out.Elements[i].Kind != registry.KindScrollableContainer {
				problems = append(problems, fmt.Errorf("container %q: element kind is %s, want %s",
					spec.Key, out.Elements[i].Kind, registry.KindScrollableContainer))
			}
		} else {
			index[spec.Key] = len(out.Elements)
			out.Elements = append(out.Elements, registry.Element{Key: spec.Key, Kind: registry.KindScrollableContainer})
		}

		if g := spec.Generate; g != nil {
			for n := g.Start; n < g.Start+g.Count; n++ {
				key := fmt.Sprintf("%s%d", g.Prefix, n)
				if _, dup := index[key]; dup {
					problems = append(problems, fmt.Errorf("container %q: generated key %q collides with an existing element", spec.Key, key))
					continue
				}
				text := ""
				if g.Text != "" {
					text = formatItemText(g.Text, n)
				}
				index[key] = len(out.Elements)
				out.Elements = append(out.Elements, registry.Element{Key: key, Text: text, Kind: registry.KindListItem})
				rc.Items = append(rc.Items, key)
			}
		}

		for _, item := range rc.Items {
			i, ok := index[item]
			if !ok {
				problems = append(problems, fmt.Errorf("container %q: item %q is not a declared element", spec.Key, item))
				continue
			}
			if out.Elements[i].Kind != registry.KindListItem {
				problems = append(problems, fmt.Errorf("container %q: item %q has kind %s, want %s",
					spec.Key, item, out.Elements[i].Kind, registry.KindListItem))
				continue
			}
			if prev, taken := owner[item]; taken {
				problems = append(problems, fmt.Errorf("item %q belongs to both %q and %q", item, prev, spec.Key))
				continue
			}
			owner[item] = spec.Key
			out.Elements[i].Container = spec.Key
		}

		out.Containers = append(out.Containers, rc)
	}

	counters := make(map[string]string, len(out.Counters))
	for _, cs := range out.Counters {
		if _, dup := counters[cs.Key]; dup {
			problems = append(problems, fmt.Errorf("duplicate counter key %q", cs.Key))
			continue
		}
		counters[cs.Key] = cs.Display
		i, ok := index[cs.Display]
		if !ok {
			problems = append(problems, fmt.Errorf("counter %q: display element %q not found", cs.Key, cs.Display))
			continue
		}
		if out.Elements[i].Kind != registry.KindCounterDisplay {
			problems = append(problems, fmt.Errorf("counter %q: display element %q has kind %s, want %s",
				cs.Key, cs.Display, out.Elements[i].Kind, registry.KindCounterDisplay))
		}
	}

	for _, e := range out.Elements {
		switch {
		case e.Kind == registry.KindListItem && e.Container == "":
			problems = append(problems, fmt.Errorf("list item %q is not part of any container", e.Key))
		case e.Action != registry.ActionNone && e.Kind != registry.KindTapTrigger:
			problems = append(problems, fmt.Errorf("element %q: action %q needs kind %s", e.Key, e.Action, registry.KindTapTrigger))
		}
		if e.Counter == "" {
			continue
		}
		display, ok := counters[e.Counter]
		switch {
		case !ok:
			problems = append(problems, fmt.Errorf("element %q: unknown counter %q", e.Key, e.Counter))
		case e.Kind == registry.KindCounterDisplay && display != e.Key:
			problems = append(problems, fmt.Errorf("element %q: counter %q is displayed by %q", e.Key, e.Counter, display))
		case e.Kind != registry.KindCounterDisplay && e.Kind != registry.KindTapTrigger:
			problems = append(problems, fmt.Errorf("element %q: kind %s cannot bind a counter", e.Key, e.Kind))
		}
	}

	if len(problems) > 0 {
		return nil, core.ErrInvalidConfig.WithCause(errors.Join(problems...))
	}
	return out, nil
}

// formatItemText renders a generated item's text. A %d verb receives the
// item number; text without a verb is used as is.
func formatItemText(tmpl string, n int) string {
	if strings.Contains(tmpl, "%d") {
		return fmt.Sprintf(tmpl, n)
	}
	return tmpl
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
