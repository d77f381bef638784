package snapshot

import (
	"iter"
	"slices"
)

// InstanceContext is the bundle of ignore rules inherited down a subtree.
//
// Copies share the same backing rule list, which is never modified after
// creation, so a context can be read from any number of goroutines without
// locking. The zero value is the default, empty context.
type InstanceContext struct {
	rules *ruleList
}

type ruleList struct {
	ignorePaths []IgnoreGlob
}

// DefaultInstanceContext returns the empty context used at the tree root.
func DefaultInstanceContext() InstanceContext {
	return InstanceContext{}
}

// NewInstanceContext returns a context holding globs in declaration order.
func NewInstanceContext(globs ...IgnoreGlob) InstanceContext {
	if len(globs) == 0 {
		return InstanceContext{}
	}
	return InstanceContext{rules: &ruleList{ignorePaths: slices.Clone(globs)}}
}

// WithIgnorePaths derives a child context with the receiver's rules followed
// by globs. The receiver is left untouched.
func (c InstanceContext) WithIgnorePaths(globs ...IgnoreGlob) InstanceContext {
	if len(globs) == 0 {
		return c
	}
	merged := make([]IgnoreGlob, 0, c.Len()+len(globs))
	merged = append(merged, c.list()...)
	merged = append(merged, globs...)
	return InstanceContext{rules: &ruleList{ignorePaths: merged}}
}

func (c InstanceContext) list() []IgnoreGlob {
	if c.rules == nil {
		return nil
	}
	return c.rules.ignorePaths
}

// Len returns the number of ignore rules.
func (c InstanceContext) Len() int {
	return len(c.list())
}

// IgnorePaths returns a copy of the ignore rules in declaration order.
func (c InstanceContext) IgnorePaths() []IgnoreGlob {
	return slices.Clone(c.list())
}

// All iterates the ignore rules in declaration order without copying them.
func (c InstanceContext) All() iter.Seq2[int, IgnoreGlob] {
	return slices.All(c.list())
}

// Ignores reports whether path is excluded by any rule. The first matching
// rule is returned.
func (c InstanceContext) Ignores(path string) (IgnoreGlob, bool) {
	for _, g := range c.list() {
		if g.Matches(path) {
			return g, true
		}
	}
	return IgnoreGlob{}, false
}

// SharesStorage reports whether both contexts point at the same rule list.
// Two default contexts share storage.
func (c InstanceContext) SharesStorage(other InstanceContext) bool {
	return c.rules == other.rules
}

// Equal compares the rule sequences structurally.
func (c InstanceContext) Equal(other InstanceContext) bool {
	if c.SharesStorage(other) {
		return true
	}
	return slices.Equal(c.list(), other.list())
}
