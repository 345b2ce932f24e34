package registry

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Kind is the role an element plays in the UI.
type Kind string

// Element kinds.
const (
	KindStaticText          Kind = "static-text"
	KindTapTrigger          Kind = "tap-trigger"
	KindCounterDisplay      Kind = "counter-display"
	KindListItem            Kind = "list-item"
	KindScrollableContainer Kind = "scrollable-container"
)

// Valid returns true for a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindStaticText, KindTapTrigger, KindCounterDisplay, KindListItem, KindScrollableContainer:
		return true
	}
	return false
}

// UnmarshalYAML rejects unknown kinds at parse time.
func (k *Kind) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	kind := Kind(s)
	if !kind.Valid() {
		return fmt.Errorf("line %d: unknown element kind %q", node.Line, s)
	}
	*k = kind
	return nil
}

// Action is a side effect a tap-trigger performs besides counting.
type Action string

// Trigger actions.
const (
	ActionNone  Action = ""
	ActionReset Action = "reset"
)

// Element is a named unit of UI state.
type Element struct {
	Key  string `yaml:"key" json:"key" validate:"required"`
	Text string `yaml:"text" json:"text"`
	Kind Kind   `yaml:"kind" json:"kind" validate:"required"`

	// Counter is the key of the counter a tap-trigger increments or a
	// counter-display mirrors. Non-owning.
	Counter string `yaml:"counter,omitempty" json:"counter,omitempty"`
	// Container is the key of the scrollable container owning a list item.
	Container string `yaml:"container,omitempty" json:"container,omitempty"`
	Action    Action `yaml:"action,omitempty" json:"action,omitempty" validate:"omitempty,oneof=reset"`
}

// IsTrigger returns true if tapping the element has an effect.
func (e Element) IsTrigger() bool {
	return e.Kind == KindTapTrigger && (e.Counter != "" || e.Action != ActionNone)
}
