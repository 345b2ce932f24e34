// Package command defines the typed commands applied by the interaction engine.
package command

import (
	"fmt"

	"github.com/devicelab-dev/uiharness/pkg/registry"
)

// Type represents the type of command.
type Type string

// Command type constants.
const (
	TypeTap        Type = "tap"
	TypeReset      Type = "reset"
	TypeQueryTexts Type = "texts"
	TypeScrollInto Type = "scrollInto"

	// TypeAssertTexts only appears in command files; it is checked by the
	// runner on top of a texts query.
	TypeAssertTexts Type = "assertTexts"
)

// Command is the interface for all commands.
type Command interface {
	Type() Type
	Describe() string
	// Mutates reports whether applying the command can change state.
	Mutates() bool
}

// Tap simulates a user activation of an element.
type Tap struct {
	Target registry.Identifier
}

// Type returns the command type.
func (Tap) Type() Type { return TypeTap }

// Describe returns a human-readable description.
func (c Tap) Describe() string { return "tap " + c.Target.String() }

// Mutates returns true.
func (Tap) Mutates() bool { return true }

// Reset restores the initial application state.
type Reset struct{}

// Type returns the command type.
func (Reset) Type() Type { return TypeReset }

// Describe returns a human-readable description.
func (Reset) Describe() string { return "reset" }

// Mutates returns true.
func (Reset) Mutates() bool { return true }

// QueryTexts reads the text of every element with Key.
type QueryTexts struct {
	Key string
}

// Type returns the command type.
func (QueryTexts) Type() Type { return TypeQueryTexts }

// Describe returns a human-readable description.
func (c QueryTexts) Describe() string { return fmt.Sprintf("texts key=%q", c.Key) }

// Mutates returns false.
func (QueryTexts) Mutates() bool { return false }

// ScrollInto scrolls a container by (DX, DY) aiming to show ItemKey.
type ScrollInto struct {
	ContainerKey string
	ItemKey      string
	DX           int
	DY           int
}

// Type returns the command type.
func (ScrollInto) Type() Type { return TypeScrollInto }

// Describe returns a human-readable description.
func (c ScrollInto) Describe() string {
	return fmt.Sprintf("scrollInto %q in %q dx=%d dy=%d", c.ItemKey, c.ContainerKey, c.DX, c.DY)
}

// Mutates returns true.
func (ScrollInto) Mutates() bool { return true }

// AssertTexts expects the texts under Key to equal Want, in order.
type AssertTexts struct {
	Key  string
	Want []string
}

// Type returns the command type.
func (AssertTexts) Type() Type { return TypeAssertTexts }

// Describe returns a human-readable description.
func (c AssertTexts) Describe() string {
	return fmt.Sprintf("assertTexts key=%q want=%q", c.Key, c.Want)
}

// Mutates returns false.
func (AssertTexts) Mutates() bool { return false }

// NewTap builds the command for a tap identifier. A tap on the reserved
// Reset text becomes a Reset command.
func NewTap(id registry.Identifier) Command {
	if id.IsReset() {
		return Reset{}
	}
	return Tap{Target: id}
}
