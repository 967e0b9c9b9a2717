// internal/rules/fieldpath.go
package rules

import (
	"sort"
	"strconv"
	"strings"

	"github.com/solatis/rulebuilder/internal/types"
)

/*
 * Property resolution against sample records.
 *
 * A property is first looked up as a literal top-level key, so catalog
 * names containing dots still work. Otherwise it is split on "." and
 * walked through nested objects and arrays:
 *
 *   - "user.country"   object keys
 *   - "items.0.sku"    numeric segment indexes an array
 *   - "items.*.sku"    wildcard over array elements or object values
 *
 * A condition on a wildcard path matches when any resolved value matches.
 * Wildcards over objects visit keys in sorted order so the reported match
 * is stable across runs.
 */

const (
	// MaxPathDepth bounds the segments of a property path.
	MaxPathDepth = 16

	// MaxNestedWildcards bounds "*" segments in one property path.
	MaxNestedWildcards = 2

	wildcard = "*"
)

// segment is one step of a property path.
type segment struct {
	Key      string
	Index    int
	IsIndex  bool
	Wildcard bool
}

// ResolveResult contains the resolved value and the concrete path taken.
type ResolveResult struct {
	Value any
	// Resolved is the path with wildcards replaced by the key or index matched.
	Resolved string
	Found    bool
}

// parsePath splits a property into segments.
func parsePath(property string) ([]segment, error) {
	parts := strings.Split(property, ".")
	if len(parts) > MaxPathDepth {
		return nil, types.ErrPathTooDeep
	}

	segs := make([]segment, 0, len(parts))
	wildcards := 0
	for _, p := range parts {
		switch {
		case p == wildcard:
			wildcards++
			segs = append(segs, segment{Wildcard: true})
		default:
			seg := segment{Key: p}
			if n, err := strconv.Atoi(p); err == nil && n >= 0 {
				seg.Index, seg.IsIndex = n, true
			}
			segs = append(segs, seg)
		}
	}
	if wildcards > MaxNestedWildcards {
		return nil, types.ErrPathTooDeep
	}
	return segs, nil
}

// Resolve finds property in record. Wildcards yield the first element that
// resolves. Returns types.ErrFieldNotFound when neither the literal key nor
// the dotted path exists.
func Resolve(property string, record map[string]any) (ResolveResult, error) {
	if v, ok := record[property]; ok {
		return ResolveResult{Value: v, Resolved: property, Found: true}, nil
	}
	segs, err := parsePath(property)
	if err != nil {
		return ResolveResult{}, err
	}

	var first ResolveResult
	walk(segs, record, nil, func(r ResolveResult) bool {
		first = r
		return true
	})
	if !first.Found {
		return ResolveResult{}, types.ErrFieldNotFound
	}
	return first, nil
}

// walk visits every value path resolves to, in order, until visit returns
// true. Reports whether visit stopped the walk.
func walk(path []segment, current any, resolved []string, visit func(ResolveResult) bool) bool {
	if len(path) == 0 {
		return visit(ResolveResult{Value: current, Resolved: strings.Join(resolved, "."), Found: true})
	}

	seg := path[0]
	remaining := path[1:]

	switch v := current.(type) {
	case map[string]any:
		if seg.Wildcard {
			keys := make([]string, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, key := range keys {
				if walk(remaining, v[key], appendStep(resolved, key), visit) {
					return true
				}
			}
			return false
		}
		val, ok := v[seg.Key]
		if !ok {
			return false
		}
		return walk(remaining, val, appendStep(resolved, seg.Key), visit)

	case []any:
		if seg.Wildcard {
			for i, elem := range v {
				if walk(remaining, elem, appendStep(resolved, strconv.Itoa(i)), visit) {
					return true
				}
			}
			return false
		}
		if !seg.IsIndex || seg.Index >= len(v) {
			return false
		}
		return walk(remaining, v[seg.Index], appendStep(resolved, seg.Key), visit)

	default:
		// scalar or null with path left over
		return false
	}
}

// appendStep copies so sibling wildcard branches do not share a backing array.
func appendStep(resolved []string, step string) []string {
	out := make([]string, len(resolved), len(resolved)+1)
	copy(out, resolved)
	return append(out, step)
}
