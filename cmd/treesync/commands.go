package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/treesync"
	"github.com/jward/treesync/internal/project"
	"github.com/jward/treesync/internal/snapshot"
)

var recordCmd = &cobra.Command{
	Use:   "record [FILE]",
	Short: "Record instance metadata from a JSON file or a project",
	Long: `Reads a JSON array of {"ref", "metadata"} entries from FILE (or stdin when FILE is "-") and stores them, reporting which refs changed.
With --project, an entry is also derived for every node of the project tree.`,
	Args: cobra.MaximumNArgs(1),
	RunE:  runRecord,
}

func runRecord(cmd *cobra.Command, args []string) error {
	start := time.Now()

	projectFile := cfg.GetString("project")
	if len(args) == 0 && projectFile == "" {
		return outputError("record", fmt.Errorf("requires FILE or --project"))
	}

	var entries []treesync.Entry
	if projectFile != "" {
		p, err := loadProject(projectFile)
		if err != nil {
			return outputError("record", err)
		}
		derived, err := treesync.ProjectEntries(p, treesync.DefaultInstanceContext())
		if err != nil {
			return outputError("record", err)
		}
		entries = append(entries, derived...)
	}
	if len(args) > 0 {
		fromFile, err := readEntries(args[0])
		if err != nil {
			return outputError("record", err)
		}
		entries = append(entries, fromFile...)
	}

	t, dbPath, err := openTracker(true)
	if err != nil {
		return outputError("record", err)
	}
	defer t.Close()

	changed, err := t.RecordAll(cmd.Context(), entries)
	if err != nil {
		return outputError("record", err)
	}
	if changed == nil {
		changed = []string{}
	}

	var pruned []string
	if cfg.GetBool("prune") {
		live := make([]string, len(entries))
		for i, e := range entries {
			live[i] = e.Ref
		}
		if pruned, err = t.Prune(cmd.Context(), live); err != nil {
			return outputError("record", err)
		}
	}

	fmt.Fprintf(os.Stderr, "Recorded %d instance(s), %d changed in %s\n",
		len(entries), len(changed), time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)

	return outputResult(CLIResult{
		Command: "record",
		Results: CLIRecordSummary{Recorded: len(entries), Changed: changed, Pruned: pruned},
	})
}

// readEntries decodes the record input. "-" reads stdin.
func readEntries(file string) ([]treesync.Entry, error) {
	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}

	var entries []treesync.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", file, err)
	}
	for i, e := range entries {
		if e.Ref == "" {
			return nil, fmt.Errorf("decoding %s: entry %d has no ref", file, i)
		}
	}
	return entries, nil
}

var showCmd = &cobra.Command{
	Use:   "show REF",
	Short: "Show the stored metadata of an instance",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	t, _, err := openTracker(false)
	if err != nil {
		return outputError("show", err)
	}
	defer t.Close()

	md, ok, err := t.Metadata(args[0])
	if err != nil {
		return outputError("show", err)
	}
	if !ok {
		return outputError("show", fmt.Errorf("no instance recorded for ref %q", args[0]))
	}
	return outputResult(CLIResult{
		Command: "show",
		Results: CLIInstance{Ref: args[0], Metadata: md},
	})
}

var affectedCmd = &cobra.Command{
	Use:   "affected PATH...",
	Short: "List instances invalidated by changes to the given paths",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAffected,
}

func runAffected(cmd *cobra.Command, args []string) error {
	paths, err := resolveFilePaths(args)
	if err != nil {
		return outputError("affected", err)
	}

	t, _, err := openTracker(false)
	if err != nil {
		return outputError("affected", err)
	}
	defer t.Close()

	refs, err := t.Affected(paths...)
	if err != nil {
		return outputError("affected", err)
	}
	if refs == nil {
		refs = []string{}
	}
	count := len(refs)
	return outputResult(CLIResult{
		Command:    "affected",
		Results:    refs,
		TotalCount: &count,
	})
}

var derivedCmd = &cobra.Command{
	Use:   "derived PATH",
	Short: "List instances whose instigating source is PATH",
	Args:  cobra.ExactArgs(1),
	RunE:  runDerived,
}

func runDerived(cmd *cobra.Command, args []string) error {
	p, err := resolveFilePath(args[0])
	if err != nil {
		return outputError("derived", err)
	}

	t, _, err := openTracker(false)
	if err != nil {
		return outputError("derived", err)
	}
	defer t.Close()

	refs, err := t.DerivedFrom(p)
	if err != nil {
		return outputError("derived", err)
	}
	if refs == nil {
		refs = []string{}
	}
	count := len(refs)
	return outputResult(CLIResult{
		Command:    "derived",
		Results:    refs,
		TotalCount: &count,
	})
}

var ignoredCmd = &cobra.Command{
	Use:   "ignored --project FILE PATH...",
	Short: "Check paths against a project's ignore globs",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIgnored,
}

func init() {
	recordCmd.Flags().Bool("prune", false, "forget tracked refs that were not recorded by this run")
	recordCmd.Flags().String("project", "", "derive and record an entry for every node of this project file")
	ignoredCmd.Flags().String("project", "", "project file whose globIgnorePaths are applied")
	watchCmd.Flags().String("project", "", "also skip paths ignored by this project file")
	watchCmd.Flags().Duration("debounce", defaultDebounce, "quiet period before reporting a batch of changes")
}

func runIgnored(cmd *cobra.Command, args []string) error {
	projectFile := cfg.GetString("project")
	if projectFile == "" {
		return outputError("ignored", fmt.Errorf("--project is required"))
	}
	ictx, err := loadProjectContext(projectFile)
	if err != nil {
		return outputError("ignored", err)
	}

	paths, err := resolveFilePaths(args)
	if err != nil {
		return outputError("ignored", err)
	}

	matches := make([]CLIIgnoreMatch, len(paths))
	for i, p := range paths {
		matches[i] = CLIIgnoreMatch{Path: p}
		if rule, ok := ictx.Ignores(p); ok {
			matches[i].Ignored = true
			matches[i].Rule = rule.String()
		}
	}
	return outputResult(CLIResult{Command: "ignored", Results: matches})
}

// loadProject reads and parses the project file at path.
func loadProject(path string) (*project.Project, error) {
	abs, err := resolveFilePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("reading project: %w", err)
	}
	p, err := project.Parse(data, abs)
	if err != nil {
		return nil, err
	}
	logger.Sugar().Debugw("project loaded", "name", p.Name, "ignore_globs", len(p.GlobIgnorePaths))
	return p, nil
}

// loadProjectContext returns the context the ignore globs of the project
// file at path define.
func loadProjectContext(path string) (snapshot.InstanceContext, error) {
	p, err := loadProject(path)
	if err != nil {
		return snapshot.InstanceContext{}, err
	}
	return snapshot.ContextForProject(snapshot.DefaultInstanceContext(), p)
}

func resolveFilePaths(args []string) ([]string, error) {
	paths := make([]string, len(args))
	for i, a := range args {
		p, err := resolveFilePath(a)
		if err != nil {
			return nil, err
		}
		paths[i] = p
	}
	return paths, nil
}
