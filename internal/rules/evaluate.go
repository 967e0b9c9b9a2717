// internal/rules/evaluate.go
package rules

import (
	"github.com/solatis/rulebuilder/internal/codec"
	"github.com/solatis/rulebuilder/internal/types"
)

/*
 * Rule evaluation.
 *
 * AND groups stop at the first false child, OR groups at the first true
 * one; children run in compiled cost order.
 *
 * Per condition: resolve property -> coerce record value -> compare. A
 * wildcard property matches when any of its resolved values does.
 *
 * Missing data:
 *   - Any matches whether or not the property exists
 *   - Exists matches a present, non-null property
 *   - every other operator is false for a missing or null property,
 *     including != and not in
 *   - a record value that cannot be coerced makes the condition false
 */

// Match records one condition that evaluated true.
type Match struct {
	At       types.Path
	Property string
	// Resolved is the concrete record path, wildcards expanded.
	Resolved string
	Value    any
}

// Result is the outcome of evaluating a rule against one record.
type Result struct {
	Matched bool
	// Evaluated counts conditions actually run; short-circuited ones are skipped.
	Evaluated int
	Matches   []Match
	// Missing lists properties absent from the record, in evaluation order.
	Missing []string
}

// Evaluate checks whether record satisfies rule.
func Evaluate(rule *CompiledRule, record map[string]any) Result {
	e := &evaluator{record: record, seen: map[string]bool{}}
	matched := e.group(rule.Root)
	return Result{
		Matched:   matched,
		Evaluated: e.evaluated,
		Matches:   e.matches,
		Missing:   e.missing,
	}
}

type evaluator struct {
	record    map[string]any
	evaluated int
	matches   []Match
	missing   []string
	seen      map[string]bool
}

func (e *evaluator) group(g *CompiledGroup) bool {
	for _, child := range g.Children {
		var ok bool
		switch n := child.(type) {
		case *CompiledGroup:
			ok = e.group(n)
		case *CompiledCondition:
			ok = e.condition(n)
		}
		if g.Any && ok {
			return true
		}
		if !g.Any && !ok {
			return false
		}
	}
	return !g.Any
}

func (e *evaluator) condition(c *CompiledCondition) bool {
	e.evaluated++

	if c.Operator == codec.OpAny {
		e.matches = append(e.matches, Match{At: c.At, Property: c.Property})
		return true
	}

	found := false
	matched := e.candidates(c, func(r ResolveResult) bool {
		if r.Value == nil {
			return false
		}
		found = true
		if c.Operator != codec.OpExists {
			value, ok := coerceRecordValue(c, r.Value)
			if !ok || !Compare(c.Operator, value, c.Operand) {
				return false
			}
		}
		e.match(c, r)
		return true
	})
	if !found {
		e.noteMissing(c.Property)
	}
	return matched
}

// candidates visits the literal top-level key or every value the dotted
// path resolves to, stopping at the first one visit accepts.
func (e *evaluator) candidates(c *CompiledCondition, visit func(ResolveResult) bool) bool {
	if v, ok := e.record[c.Property]; ok {
		return visit(ResolveResult{Value: v, Resolved: c.Property, Found: true})
	}
	return walk(c.path, e.record, nil, visit)
}

// coerceRecordValue coerces a scalar, or each element of a list value for
// contains/not contains.
func coerceRecordValue(c *CompiledCondition, raw any) (any, bool) {
	if items, isList := raw.([]any); isList {
		if c.Operator != codec.OpContains && c.Operator != codec.OpNotContains {
			return nil, false
		}
		out := make([]any, 0, len(items))
		for _, item := range items {
			res, err := Coerce(item, c.DataType)
			if err != nil || res.IsNull {
				continue
			}
			out = append(out, res.Value)
		}
		return out, true
	}

	res, err := Coerce(raw, c.DataType)
	if err != nil || res.IsNull {
		return nil, false
	}
	return res.Value, true
}

func (e *evaluator) match(c *CompiledCondition, r ResolveResult) {
	e.matches = append(e.matches, Match{
		At:       c.At,
		Property: c.Property,
		Resolved: r.Resolved,
		Value:    r.Value,
	})
}

func (e *evaluator) noteMissing(property string) {
	if e.seen[property] {
		return
	}
	e.seen[property] = true
	e.missing = append(e.missing, property)
}
