package schema

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// CommandSchema describes a command and its subcommands. Path omits the root
// command name, matching the command recorded in envelope metadata.
type CommandSchema struct {
	Path        string          `json:"path"`
	Use         string          `json:"use"`
	Short       string          `json:"short"`
	Long        string          `json:"long,omitempty"`
	Flags       []FlagSchema    `json:"flags,omitempty"`
	Subcommands []CommandSchema `json:"subcommands,omitempty"`
}

// FlagSchema carries both the CLI flag and the tool property it maps to.
type FlagSchema struct {
	Name      string   `json:"name"`
	Property  string   `json:"property"`
	Type      string   `json:"type"`
	Usage     string   `json:"usage"`
	Default   string   `json:"default,omitempty"`
	Enum      []string `json:"enum,omitempty"`
	Inherited bool     `json:"inherited,omitempty"`
}

// Build describes the command at commandPath below root, or root itself when
// the path is empty.
func Build(root *cobra.Command, commandPath string) (CommandSchema, error) {
	cmd := root
	for _, name := range strings.Fields(commandPath) {
		next := child(cmd, name)
		if next == nil {
			return CommandSchema{}, fmt.Errorf("command not found: %s", strings.TrimSpace(commandPath))
		}
		cmd = next
	}
	return describe(root, cmd), nil
}

func child(cmd *cobra.Command, name string) *cobra.Command {
	for _, c := range cmd.Commands() {
		if c.Name() == name || c.HasAlias(name) {
			return c
		}
	}
	return nil
}

func describe(root, cmd *cobra.Command) CommandSchema {
	s := CommandSchema{
		Path:  strings.TrimSpace(strings.TrimPrefix(cmd.CommandPath(), root.Name())),
		Use:   cmd.Use,
		Short: cmd.Short,
		Long:  cmd.Long,
		Flags: describeFlags(cmd),
	}
	for _, sub := range cmd.Commands() {
		if !sub.IsAvailableCommand() {
			continue
		}
		s.Subcommands = append(s.Subcommands, describe(root, sub))
	}
	return s
}

func describeFlags(cmd *cobra.Command) []FlagSchema {
	var items []FlagSchema
	add := func(inherited bool) func(*pflag.Flag) {
		return func(f *pflag.Flag) {
			if f.Hidden {
				return
			}
			items = append(items, FlagSchema{
				Name:      f.Name,
				Property:  camel(f.Name),
				Type:      jsonType(f),
				Usage:     f.Usage,
				Default:   f.DefValue,
				Enum:      f.Annotations[EnumAnnotation],
				Inherited: inherited,
			})
		}
	}
	cmd.LocalFlags().VisitAll(add(false))
	cmd.InheritedFlags().VisitAll(add(true))
	return items
}
