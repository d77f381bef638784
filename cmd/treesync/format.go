package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// formatRefsText prints one ref per line.
func formatRefsText(w io.Writer, refs []string) {
	for _, ref := range refs {
		fmt.Fprintln(w, ref)
	}
}

// formatRecordText summarizes a record run.
func formatRecordText(w io.Writer, s CLIRecordSummary) {
	fmt.Fprintf(w, "Recorded: %d\n", s.Recorded)
	fmt.Fprintf(w, "Changed: %d\n", len(s.Changed))
	for _, ref := range s.Changed {
		fmt.Fprintf(w, "  %s\n", ref)
	}
	if len(s.Pruned) > 0 {
		fmt.Fprintf(w, "Pruned: %d\n", len(s.Pruned))
		for _, ref := range s.Pruned {
			fmt.Fprintf(w, "  %s\n", ref)
		}
	}
}

// formatInstanceText formats CLIInstance as readable text.
func formatInstanceText(w io.Writer, inst CLIInstance) {
	md := inst.Metadata
	fmt.Fprintf(w, "Ref: %s\n", inst.Ref)
	if src := md.InstigatingSource(); src != nil {
		fmt.Fprintf(w, "Source: %s\n", src)
	} else {
		fmt.Fprintln(w, "Source: none")
	}
	fmt.Fprintf(w, "Ignore unknown instances: %t\n", md.IgnoreUnknownInstances())

	if paths := md.RelevantPaths(); len(paths) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Relevant paths:")
		for _, p := range paths {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}

	if md.Context().Len() > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Ignore rules:")
		for _, rule := range md.Context().All() {
			fmt.Fprintf(w, "  %s\n", rule)
		}
	}
}

// formatIgnoreMatchesText formats CLIIgnoreMatch results as aligned columns.
func formatIgnoreMatchesText(w io.Writer, matches []CLIIgnoreMatch) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tIGNORED\tRULE")
	for _, m := range matches {
		rule := m.Rule
		if rule == "" {
			rule = "-"
		}
		fmt.Fprintf(tw, "%s\t%t\t%s\n", m.Path, m.Ignored, rule)
	}
	tw.Flush()
}

// formatWatchEventText prints the changed paths of a batch followed by the
// refs they invalidate.
func formatWatchEventText(w io.Writer, ev CLIWatchEvent) {
	for _, p := range ev.Changed {
		fmt.Fprintf(w, "changed  %s\n", p)
	}
	for _, ref := range ev.Affected {
		fmt.Fprintf(w, "affected %s\n", ref)
	}
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []string:
		formatRefsText(w, v)
	case CLIRecordSummary:
		formatRecordText(w, v)
	case CLIInstance:
		formatInstanceText(w, v)
	case []CLIIgnoreMatch:
		formatIgnoreMatchesText(w, v)
	case CLIWatchEvent:
		formatWatchEventText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(os.Stdout, result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
