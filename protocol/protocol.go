// Package protocol implements the line-based query protocol a receiver's
// server package speaks: LOOKUP resolves a block to its FileSegments,
// READ serves the raw bytes of a FileSegment. Both exist so a downstream
// consumer can do segment-level random-access reads without scanning the
// write-ahead log (spec §1).
package protocol

import (
	"errors"
	"strings"
)

var (
	ErrEmptyCommand   = errors.New("empty command")
	ErrInvalidCommand = errors.New("invalid command")
)

// Command names are centralized here to remove hard-coded dependencies.
const (
	CommandLookup = "LOOKUP"
	CommandRead   = "READ"
)

// CommandSpec defines a command name and its expected argument types.
type CommandSpec struct {
	Name     string
	ArgTypes []ArgType
}

var commandSpec = map[string]CommandSpec{
	CommandLookup: {
		Name:     CommandLookup,
		ArgTypes: []ArgType{argTypeString{}, argTypeInt64{}},
	},
	CommandRead: {
		Name:     CommandRead,
		ArgTypes: []ArgType{argTypeString{}, argTypeInt64{}, argTypeInt32{}},
	},
}

// Command is a parsed client request.
type Command struct {
	Name string
	Args []string
}

// ParseLine parses a single protocol line into a Command. line is
// expected without its trailing newline.
func ParseLine(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, ErrEmptyCommand
	}

	parts := strings.Fields(line)
	if len(parts) == 0 {
		return Command{}, ErrEmptyCommand
	}

	cmd := strings.ToUpper(parts[0])
	args := parts[1:]

	spec, ok := commandSpec[cmd]
	if !ok {
		return Command{}, ErrInvalidCommand
	}

	if len(args) != len(spec.ArgTypes) {
		return Command{}, ErrInvalidCommand
	}

	for i, argType := range spec.ArgTypes {
		if err := argType.Validate(args[i]); err != nil {
			return Command{}, ErrInvalidArg
		}
	}

	return Command{Name: cmd, Args: args}, nil
}
