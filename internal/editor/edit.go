package editor

import (
	"fmt"

	"github.com/solatis/rulebuilder/internal/types"
)

// EditKind names one user-originated change.
type EditKind string

const (
	EditAddCondition     EditKind = "add_condition"
	EditAddGroup         EditKind = "add_group"
	EditRemoveChild      EditKind = "remove_child"
	EditSetCombinator    EditKind = "set_combinator"
	EditSetProperty      EditKind = "set_property"
	EditSetOperator      EditKind = "set_operator"
	EditSetValue         EditKind = "set_value"
	EditCommitValue      EditKind = "commit_value"
	EditReplaceCondition EditKind = "replace_condition"
)

// EditKinds lists every kind Apply accepts.
var EditKinds = []EditKind{
	EditAddCondition,
	EditAddGroup,
	EditRemoveChild,
	EditSetCombinator,
	EditSetProperty,
	EditSetOperator,
	EditSetValue,
	EditCommitValue,
	EditReplaceCondition,
}

// ParseEditKind validates a kind received from a client.
func ParseEditKind(s string) (EditKind, error) {
	for _, k := range EditKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", types.ErrUnknownEdit, s)
}

// Edit is one change request. Path addresses the group for structural
// kinds and the condition for leaf kinds; only the fields the kind reads
// need to be set.
//
//	AddCondition, AddGroup   Path (group)
//	RemoveChild              Path (group), Index
//	SetCombinator            Path (group), Combinator
//	SetProperty              Path (condition), Property
//	SetOperator              Path (condition), Operator
//	SetValue                 Path (condition), Value (edit buffer)
//	CommitValue              Path (condition), optional Value (edit buffer)
//	ReplaceCondition         Path (condition), Condition
type Edit struct {
	Kind       EditKind
	Path       types.Path
	Index      int
	Combinator types.Combinator
	Property   string
	Operator   string
	Value      types.Value
	Condition  types.Condition
}

// Result reports the outcome of one controller write.
type Result struct {
	// Tree is the current tree after the write (unchanged when dropped).
	Tree *types.Group
	// Changed is true when the listener was notified.
	Changed bool
	// Dropped is true when the request arrived during another update.
	Dropped bool
}
