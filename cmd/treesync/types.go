package main

import "github.com/jward/treesync"

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLIRecordSummary reports the outcome of a record run.
type CLIRecordSummary struct {
	Recorded int      `json:"recorded"`
	Changed  []string `json:"changed"`
	Pruned   []string `json:"pruned,omitempty"`
}

// CLIInstance is a stored instance with its decoded metadata.
type CLIInstance struct {
	Ref      string                    `json:"ref"`
	Metadata treesync.InstanceMetadata `json:"metadata"`
}

// CLIIgnoreMatch reports whether a path is excluded by an ignore rule.
type CLIIgnoreMatch struct {
	Path    string `json:"path"`
	Ignored bool   `json:"ignored"`
	Rule    string `json:"rule,omitempty"`
}

// CLIWatchEvent is one debounced batch of filesystem changes.
type CLIWatchEvent struct {
	Changed  []string `json:"changed"`
	Affected []string `json:"affected"`
}
