package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// CommandEntry describes one leaf command.
type CommandEntry struct {
	Path    string      `json:"path" yaml:"path"`
	Group   string      `json:"group" yaml:"group"`
	Short   string      `json:"short" yaml:"short"`
	Long    string      `json:"long,omitempty" yaml:"long,omitempty"`
	Example string      `json:"example,omitempty" yaml:"example,omitempty"`
	Args    string      `json:"args,omitempty" yaml:"args,omitempty"`
	Flags   []FlagEntry `json:"flags,omitempty" yaml:"flags,omitempty"`
}

// FlagEntry describes one command flag.
type FlagEntry struct {
	Name     string `json:"name" yaml:"name"`
	Short    string `json:"shorthand,omitempty" yaml:"shorthand,omitempty"`
	Type     string `json:"type" yaml:"type"`
	Default  string `json:"default,omitempty" yaml:"default,omitempty"`
	Usage    string `json:"usage,omitempty" yaml:"usage,omitempty"`
	Required bool   `json:"required,omitempty" yaml:"required,omitempty"`
}

func newCommandsCmd() *cobra.Command {
	var (
		filter string
		group  string
	)

	cmd := &cobra.Command{
		Use:   "commands",
		Short: "List qfront commands with their flags",
		Long: `Walks the command tree and lists every command with its path, description,
positional arguments and flags.`,
		Example: `  qfront commands
  qfront commands --filter relay
  qfront commands --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries := walkCommands(cmd.Root(), "")

			if group != "" {
				filtered := []CommandEntry{}
				for _, e := range entries {
					if e.Group == group {
						filtered = append(filtered, e)
					}
				}
				entries = filtered
			}
			if filter != "" {
				lowerFilter := strings.ToLower(filter)
				filtered := []CommandEntry{}
				for _, e := range entries {
					searchText := strings.ToLower(e.Path + " " + e.Short + " " + e.Long)
					if strings.Contains(searchText, lowerFilter) {
						filtered = append(filtered, e)
					}
				}
				entries = filtered
			}

			if ok, err := printStructured(cmd, os.Stdout, entries); ok {
				return err
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{e.Path, e.Args, e.Short})
			}
			printTable(os.Stdout, []string{"path", "args", "description"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "Substring search across command names and descriptions")
	cmd.Flags().StringVar(&group, "group", "", "Filter by top-level command name")

	return cmd
}

// walkCommands collects leaf commands below cmd, depth first.
func walkCommands(cmd *cobra.Command, parentPath string) []CommandEntry {
	entries := []CommandEntry{}

	for _, child := range cmd.Commands() {
		if child.Hidden || child.Name() == "help" || child.Name() == "completion" {
			continue
		}

		childPath := child.Name()
		if parentPath != "" {
			childPath = parentPath + " " + child.Name()
		}

		if child.HasSubCommands() {
			entries = append(entries, walkCommands(child, childPath)...)
			continue
		}

		group := ""
		parts := strings.SplitN(childPath, " ", 2)
		if len(parts) > 0 {
			group = parts[0]
		}

		args := ""
		useParts := strings.Fields(child.Use)
		if len(useParts) > 1 {
			args = strings.Join(useParts[1:], " ")
		}

		entry := CommandEntry{
			Path:    childPath,
			Group:   group,
			Short:   child.Short,
			Long:    child.Long,
			Example: child.Example,
			Args:    args,
			Flags:   collectFlags(child),
		}
		entries = append(entries, entry)
	}

	return entries
}

// collectFlags gathers flag metadata from a command.
func collectFlags(cmd *cobra.Command) []FlagEntry {
	var flags []FlagEntry
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Hidden || f.Name == "help" {
			return
		}
		entry := FlagEntry{
			Name:    f.Name,
			Short:   f.Shorthand,
			Type:    f.Value.Type(),
			Default: f.DefValue,
			Usage:   f.Usage,
		}
		if ann, ok := f.Annotations[cobra.BashCompOneRequiredFlag]; ok && len(ann) > 0 && ann[0] == "true" {
			entry.Required = true
		}
		flags = append(flags, entry)
	})
	return flags
}
