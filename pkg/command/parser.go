package command

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/uiharness/pkg/registry"
)

// ParseError represents a parsing error with location info.
type ParseError struct {
	Path    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ParseFile parses a YAML command sequence file.
func ParseFile(path string) ([]Command, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path is user-provided command file
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data, path)
}

// Parse parses a YAML sequence of commands:
//
//	- reset
//	- tap: "+"                 # by text
//	- tap: {key: increment_key1}
//	- texts: txtCount
//	- scrollInto: {scrollable: number_list, key: list_item_30, dy: -200}
//	- assertTexts: {key: txtCount, want: ["3"]}
func Parse(data []byte, sourcePath string) ([]Command, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &ParseError{Path: sourcePath, Message: fmt.Sprintf("invalid YAML: %v", err)}
	}
	if len(root.Content) == 0 {
		return nil, &ParseError{Path: sourcePath, Line: 1, Message: "empty command file"}
	}

	seq := root.Content[0]
	if seq.Kind != yaml.SequenceNode {
		return nil, &ParseError{Path: sourcePath, Line: seq.Line, Message: "expected a list of commands"}
	}

	cmds := make([]Command, 0, len(seq.Content))
	for _, node := range seq.Content {
		cmd, err := parseCommand(node)
		if err != nil {
			return nil, &ParseError{Path: sourcePath, Line: node.Line, Message: err.Error()}
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

type tapRaw struct {
	Text string `yaml:"text"`
	Key  string `yaml:"key"`
}

type assertRaw struct {
	Key  string   `yaml:"key"`
	Want []string `yaml:"want"`
}

type scrollRaw struct {
	Scrollable string `yaml:"scrollable"`
	Key        string `yaml:"key"`
	DX         int    `yaml:"dx"`
	DY         int    `yaml:"dy"`
}

func parseCommand(node *yaml.Node) (Command, error) {
	// Scalar form: just the command name
	if node.Kind == yaml.ScalarNode {
		if Type(node.Value) == TypeReset {
			return Reset{}, nil
		}
		return nil, fmt.Errorf("command %q needs arguments", node.Value)
	}

	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return nil, fmt.Errorf("each command must be a single-key mapping")
	}

	name := node.Content[0].Value
	value := node.Content[1]

	switch Type(name) {
	case TypeReset:
		return Reset{}, nil
	case TypeTap:
		return parseTap(value)
	case TypeQueryTexts:
		var key string
		if err := value.Decode(&key); err != nil {
			return nil, fmt.Errorf("texts: %w", err)
		}
		if key == "" {
			return nil, fmt.Errorf("texts: key is required")
		}
		return QueryTexts{Key: key}, nil
	case TypeScrollInto:
		var raw scrollRaw
		if err := value.Decode(&raw); err != nil {
			return nil, fmt.Errorf("scrollInto: %w", err)
		}
		if raw.Scrollable == "" || raw.Key == "" {
			return nil, fmt.Errorf("scrollInto: scrollable and key are required")
		}
		return ScrollInto{ContainerKey: raw.Scrollable, ItemKey: raw.Key, DX: raw.DX, DY: raw.DY}, nil
	case TypeAssertTexts:
		var raw assertRaw
		if err := value.Decode(&raw); err != nil {
			return nil, fmt.Errorf("assertTexts: %w", err)
		}
		if raw.Key == "" {
			return nil, fmt.Errorf("assertTexts: key is required")
		}
		if raw.Want == nil {
			raw.Want = []string{}
		}
		return AssertTexts{Key: raw.Key, Want: raw.Want}, nil
	default:
		return nil, fmt.Errorf("unknown command %q", name)
	}
}

func parseTap(value *yaml.Node) (Command, error) {
	// Scalar is shorthand for text
	if value.Kind == yaml.ScalarNode {
		if value.Value == "" {
			return nil, fmt.Errorf("tap: text is empty")
		}
		return NewTap(registry.ByText(value.Value)), nil
	}

	var raw tapRaw
	if err := value.Decode(&raw); err != nil {
		return nil, fmt.Errorf("tap: %w", err)
	}
	switch {
	case raw.Text != "" && raw.Key != "":
		return nil, fmt.Errorf("tap: text and key are mutually exclusive")
	case raw.Text != "":
		return NewTap(registry.ByText(raw.Text)), nil
	case raw.Key != "":
		return NewTap(registry.ByKey(raw.Key)), nil
	default:
		return nil, fmt.Errorf("tap: text or key is required")
	}
}
