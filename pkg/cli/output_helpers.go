package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

// outputFormat is a pflag.Value restricting --output to the supported formats.
type outputFormat string

func (o *outputFormat) String() string { return string(*o) }

func (o *outputFormat) Set(v string) error {
	if err := validateOutputFormat(v); err != nil {
		return err
	}
	*o = outputFormat(v)
	return nil
}

func (o *outputFormat) Type() string { return "format" }

// getOutputFormat returns the effective output format from the root command's persistent flags.
func getOutputFormat(cmd *cobra.Command) string {
	f := cmd.Root().PersistentFlags().Lookup("output")
	if f == nil || f.Value.String() == "" {
		return outputText
	}
	return f.Value.String()
}

func validateOutputFormat(output string) error {
	switch output {
	case outputText, outputJSON, outputYAML:
		return nil
	default:
		return fmt.Errorf("unsupported output format %q: use 'text', 'json' or 'yaml'", output)
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// printStructured writes v as JSON or YAML and reports whether the format
// was structured. Text output is left to the caller.
func printStructured(cmd *cobra.Command, w io.Writer, v interface{}) (bool, error) {
	switch getOutputFormat(cmd) {
	case outputJSON:
		return true, printJSON(w, v)
	case outputYAML:
		return true, printYAML(w, v)
	default:
		return false, nil
	}
}

// printTable writes rows under upper-cased column headers.
func printTable(w io.Writer, columns []string, rows [][]string) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = strings.ToUpper(c)
	}
	_, _ = fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	_ = tw.Flush()
}
