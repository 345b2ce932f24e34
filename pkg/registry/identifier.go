package registry

import "fmt"

// MatchMode says how an Identifier is matched.
type MatchMode int

const (
	// MatchKey matches an element's stable key exactly.
	MatchKey MatchMode = iota
	// MatchText matches an element's current displayed text exactly.
	MatchText
)

// ReservedText is never matched by text resolution; the dispatcher turns a
// tap on it into a Reset command.
const ReservedText = "Reset"

// Identifier selects an element either by key or by displayed text.
type Identifier struct {
	Mode  MatchMode
	Value string
}

// ByKey returns an identifier matching the element key.
func ByKey(key string) Identifier {
	return Identifier{Mode: MatchKey, Value: key}
}

// ByText returns an identifier matching the displayed text.
func ByText(text string) Identifier {
	return Identifier{Mode: MatchText, Value: text}
}

// IsReset reports whether the identifier is the reserved Reset text.
func (id Identifier) IsReset() bool {
	return id.Mode == MatchText && id.Value == ReservedText
}

// String returns a quoted description like text="value" or key="value".
func (id Identifier) String() string {
	if id.Mode == MatchText {
		return fmt.Sprintf("text=%q", id.Value)
	}
	return fmt.Sprintf("key=%q", id.Value)
}

func (id Identifier) matches(e *Element) bool {
	switch id.Mode {
	case MatchKey:
		return e.Key == id.Value
	case MatchText:
		return id.Value != ReservedText && e.Text == id.Value
	default:
		return false
	}
}
