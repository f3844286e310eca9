package catalog

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/wagiedev/quietcool-bridge-go/internal/errors"
)

// Command describes one worker command.
type Command struct {
	Name        string
	Description string
	// Schema describes the command's args object.
	Schema *jsonschema.Schema
	// OneShot marks commands that run against a throwaway worker rather
	// than the shared, connected one.
	OneShot bool

	resolved *jsonschema.Resolved
}

// Catalog is an immutable set of commands.
type Catalog struct {
	commands map[string]*Command
}

// New builds a catalog, resolving every schema.
func New(commands ...*Command) (*Catalog, error) {
	c := &Catalog{commands: make(map[string]*Command, len(commands))}

	for _, cmd := range commands {
		if cmd.Schema == nil {
			cmd.Schema = object(nil)
		}

		resolved, err := cmd.Schema.Resolve(nil)
		if err != nil {
			return nil, fmt.Errorf("resolve schema for %s: %w", cmd.Name, err)
		}

		cmd.resolved = resolved
		c.commands[cmd.Name] = cmd
	}

	return c, nil
}

var defaultCatalog = sync.OnceValue(func() *Catalog {
	c, err := New(fanCommands()...)
	if err != nil {
		panic(err)
	}

	return c
})

// Default returns the catalog of QuietCool worker commands.
func Default() *Catalog {
	return defaultCatalog()
}

// Lookup returns the named command.
func (c *Catalog) Lookup(name string) (*Command, bool) {
	cmd, ok := c.commands[name]

	return cmd, ok
}

// Names returns every command name in sorted order.
func (c *Catalog) Names() []string {
	return slices.Sorted(maps.Keys(c.commands))
}

// Commands returns every command ordered by name.
func (c *Catalog) Commands() []*Command {
	names := c.Names()
	commands := make([]*Command, 0, len(names))

	for _, name := range names {
		commands = append(commands, c.commands[name])
	}

	return commands
}

// Validate checks args against the command's schema. It returns an error
// wrapping ErrUnknownCommand for commands outside the catalog and a
// *errors.ValidationError for schema violations.
func (c *Catalog) Validate(name string, args map[string]any) error {
	cmd, ok := c.commands[name]
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrUnknownCommand, name)
	}

	instance, err := normalize(args)
	if err != nil {
		return &errors.ValidationError{Command: name, Err: err}
	}

	if err := cmd.resolved.Validate(instance); err != nil {
		return &errors.ValidationError{Command: name, Err: err}
	}

	return nil
}

// Validate checks args against the default catalog.
func Validate(name string, args map[string]any) error {
	return Default().Validate(name, args)
}

// normalize converts args to the plain JSON value shapes the validator
// expects, so ints and typed slices validate like decoded JSON.
func normalize(args map[string]any) (map[string]any, error) {
	if args == nil {
		return map[string]any{}, nil
	}

	data, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}

	return out, nil
}
