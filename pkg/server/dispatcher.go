package server

import (
	"net/url"
	"strconv"
	"time"

	"github.com/devicelab-dev/uiharness/pkg/command"
	"github.com/devicelab-dev/uiharness/pkg/core"
	"github.com/devicelab-dev/uiharness/pkg/registry"
)

// Query parameter names.
const (
	paramText          = "text"
	paramKey           = "key"
	paramScrollableKey = "scrollable-key"
	paramDX            = "dx"
	paramDY            = "dy"
	paramTimeout       = "timeout"
)

// parseTap builds a tap from exactly one of text= or key=. Tapping the text
// "Reset" yields a Reset command.
func parseTap(q url.Values) (command.Command, error) {
	text, hasText, err := param(q, paramText)
	if err != nil {
		return nil, err
	}
	key, hasKey, err := param(q, paramKey)
	if err != nil {
		return nil, err
	}

	switch {
	case hasText && hasKey:
		return nil, malformed("tap takes either text or key, not both")
	case hasText:
		return command.NewTap(registry.ByText(text)), nil
	case hasKey:
		return command.NewTap(registry.ByKey(key)), nil
	default:
		return nil, malformed("tap requires a text or key parameter")
	}
}

func parseTexts(q url.Values) (command.Command, error) {
	key, ok, err := param(q, paramKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, malformed("texts requires a key parameter")
	}
	return command.QueryTexts{Key: key}, nil
}

func parseScrollInto(q url.Values) (command.Command, error) {
	container, ok, err := param(q, paramScrollableKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, malformed("scroll-into requires a scrollable-key parameter")
	}
	item, ok, err := param(q, paramKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, malformed("scroll-into requires a key parameter")
	}
	dx, err := intParam(q, paramDX)
	if err != nil {
		return nil, err
	}
	dy, err := intParam(q, paramDY)
	if err != nil {
		return nil, err
	}
	return command.ScrollInto{ContainerKey: container, ItemKey: item, DX: dx, DY: dy}, nil
}

// parseTimeout reads timeout= as a Go duration ("500ms", "2s") or a bare
// number of milliseconds, capped at max.
func parseTimeout(q url.Values, def, max time.Duration) (time.Duration, error) {
	if !q.Has(paramTimeout) {
		return def, nil
	}
	raw := q.Get(paramTimeout)

	d, err := time.ParseDuration(raw)
	if err != nil {
		ms, convErr := strconv.Atoi(raw)
		if convErr != nil {
			return 0, malformed("invalid timeout %q", raw)
		}
		d = time.Duration(ms) * time.Millisecond
	}
	if d <= 0 {
		return 0, malformed("timeout must be positive, got %q", raw)
	}
	if d > max {
		d = max
	}
	return d, nil
}

// param reports whether name is present. A present but empty value is
// malformed.
func param(q url.Values, name string) (string, bool, error) {
	if !q.Has(name) {
		return "", false, nil
	}
	v := q.Get(name)
	if v == "" {
		return "", true, malformed("%s must not be empty", name)
	}
	return v, true, nil
}

// intParam returns 0 for an absent parameter.
func intParam(q url.Values, name string) (int, error) {
	if !q.Has(name) {
		return 0, nil
	}
	raw := q.Get(name)
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, malformed("%s must be an integer, got %q", name, raw).WithCause(err)
	}
	return v, nil
}

func malformed(format string, args ...interface{}) *core.ExecutionError {
	return core.ErrMalformedRequest.WithMessagef(format, args...)
}
