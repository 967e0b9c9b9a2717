// Package editor owns the live condition tree of one editing session.
//
// The Controller applies edits through internal/tree and internal/codec,
// decides whether the host must be notified, repairs the tree after
// catalog refreshes and drops writes that arrive while another write is
// in progress.
package editor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/solatis/rulebuilder/internal/codec"
	"github.com/solatis/rulebuilder/internal/tree"
	"github.com/solatis/rulebuilder/internal/types"
)

// Attributes is the attribute catalog as seen by the controller.
type Attributes interface {
	Load(ctx context.Context, c types.CatalogContext) []types.Attribute
	Refresh(ctx context.Context, c types.CatalogContext) []types.Attribute
}

// Operators is the operator catalog as seen by the controller.
type Operators interface {
	LoadFor(ctx context.Context, dt types.DataType) []types.OperatorDescriptor
}

// Listener receives every significant new tree. It runs synchronously
// while the update guard is held; writes it issues are dropped.
type Listener func(root *types.Group)

// Options configures a Controller.
type Options struct {
	// Root is the initial tree; nil starts from an empty AND group.
	Root     *types.Group
	Listener Listener
	Logger   *slog.Logger
}

// Controller serializes writes to one condition tree.
type Controller struct {
	attrs    Attributes
	ops      Operators
	ctx      types.CatalogContext
	listener Listener
	logger   *slog.Logger

	updating atomic.Bool

	mu      sync.RWMutex
	current *types.Group
}

// NewController creates a controller for the rule identified by cc.
func NewController(attrs Attributes, ops Operators, cc types.CatalogContext, opts Options) (*Controller, error) {
	if attrs == nil {
		return nil, fmt.Errorf("attrs cannot be nil")
	}
	if ops == nil {
		return nil, fmt.Errorf("ops cannot be nil")
	}

	root := opts.Root
	if root == nil {
		root = types.NewRoot()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{
		attrs:    attrs,
		ops:      ops,
		ctx:      cc,
		listener: opts.Listener,
		logger:   logger.With("workspace", cc.Workspace, "rule", cc.Rule),
		current:  root,
	}, nil
}

// Context returns the catalog context the controller edits for.
func (c *Controller) Context() types.CatalogContext {
	return c.ctx
}

// Snapshot returns the latest committed tree. Callers must not mutate it.
func (c *Controller) Snapshot() *types.Group {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Updating reports whether a write is in progress.
func (c *Controller) Updating() bool {
	return c.updating.Load()
}

// Apply applies one edit.
func (c *Controller) Apply(ctx context.Context, e Edit) (Result, error) {
	return c.update(string(e.Kind), func(root *types.Group) (*types.Group, error) {
		return c.apply(ctx, root, e)
	})
}

func (c *Controller) apply(ctx context.Context, root *types.Group, e Edit) (*types.Group, error) {
	switch e.Kind {
	case EditAddCondition:
		return tree.AddCondition(root, e.Path)
	case EditAddGroup:
		return tree.AddGroup(root, e.Path)
	case EditRemoveChild:
		return tree.RemoveChild(root, e.Path, e.Index)
	case EditSetCombinator:
		return tree.SetCombinator(root, e.Path, e.Combinator)
	case EditReplaceCondition:
		return tree.ReplaceCondition(root, e.Path, e.Condition)
	case EditSetProperty, EditSetOperator, EditSetValue, EditCommitValue:
		cond, err := tree.GetCondition(root, e.Path)
		if err != nil {
			return root, err
		}
		cond, err = c.editCondition(ctx, cond, e)
		if err != nil {
			return root, err
		}
		return tree.ReplaceCondition(root, e.Path, cond)
	default:
		return root, fmt.Errorf("%w: %q", types.ErrUnknownEdit, e.Kind)
	}
}

func (c *Controller) editCondition(ctx context.Context, cond types.Condition, e Edit) (types.Condition, error) {
	switch e.Kind {
	case EditSetProperty:
		if e.Property == "" {
			return types.BlankCondition(), nil
		}
		attr, ok := c.lookup(ctx, e.Property)
		if !ok {
			return cond, fmt.Errorf("%w: %q", types.ErrUnknownProperty, e.Property)
		}
		return codec.OnPropertyChange(cond, attr, c.ops.LoadFor(ctx, attr.DataType)), nil

	case EditSetOperator:
		if e.Operator != "" && cond.Property != "" && !c.offered(ctx, cond.DataType, e.Operator) {
			return cond, fmt.Errorf("%w: %q for %s", types.ErrInvalidOperator, e.Operator, cond.DataType)
		}
		return codec.OnOperatorChange(cond, e.Operator), nil

	case EditSetValue:
		cond.Value = codec.Stage(cond.DataType, cond.Operator, e.Value)
		return cond, nil

	default: // EditCommitValue
		value := cond.Value
		if e.Value != nil {
			value = codec.Stage(cond.DataType, cond.Operator, e.Value)
		}
		cond.Value = codec.Commit(cond.DataType, cond.Operator, value)
		return cond, nil
	}
}

// lookup finds an attribute, refreshing once when the cached list misses
// it so attributes added elsewhere in the session become selectable.
func (c *Controller) lookup(ctx context.Context, name string) (types.Attribute, bool) {
	if attr, ok := findAttribute(c.attrs.Load(ctx, c.ctx), name); ok {
		return attr, true
	}
	return findAttribute(c.attrs.Refresh(ctx, c.ctx), name)
}

func (c *Controller) offered(ctx context.Context, dt types.DataType, op string) bool {
	for _, desc := range c.ops.LoadFor(ctx, dt) {
		if codec.SameOperator(desc.Token, op) {
			return true
		}
	}
	return false
}

// Hydrate replaces the tree with a decoded saved tree. Malformed structure
// is repaired; the repairs are returned for logging.
func (c *Controller) Hydrate(raw []byte) (Result, []string, error) {
	var repairs []string
	res, err := c.update("hydrate", func(*types.Group) (*types.Group, error) {
		root, notes, err := tree.Decode(raw)
		if err != nil {
			return nil, err
		}
		repairs = notes
		return root, nil
	})
	if len(repairs) > 0 {
		c.logger.Info("Repaired saved rule tree", "repairs", len(repairs))
	}
	return res, repairs, err
}

// update runs fn under the re-entrancy guard and commits its tree.
// A request arriving while another update runs is dropped, not queued.
func (c *Controller) update(kind string, fn func(*types.Group) (*types.Group, error)) (Result, error) {
	if !c.updating.CompareAndSwap(false, true) {
		updatesTotal.WithLabelValues(outcomeDropped).Inc()
		c.logger.Debug("Dropped update while another is applying", "edit", kind)
		return Result{Tree: c.Snapshot(), Dropped: true}, nil
	}
	defer c.updating.Store(false)

	prev := c.Snapshot()
	next, err := fn(prev)
	if err != nil {
		updatesTotal.WithLabelValues(outcomeFailed).Inc()
		return Result{Tree: prev}, fmt.Errorf("%s: %w", kind, err)
	}

	if !significant(prev, next) {
		updatesTotal.WithLabelValues(outcomeUnchanged).Inc()
		return Result{Tree: prev}, nil
	}

	c.mu.Lock()
	c.current = next
	c.mu.Unlock()
	updatesTotal.WithLabelValues(outcomeApplied).Inc()

	if c.listener != nil {
		c.listener(next)
	}
	return Result{Tree: next, Changed: true}, nil
}

// significant reports whether next must be announced. Child-count and
// leaf-operator changes always are; anything else needs structural inequality.
func significant(prev, next *types.Group) bool {
	if shapeChanged(prev, next) {
		return true
	}
	return !tree.Equal(prev, next)
}

// shapeChanged compares the pre-order sequence of group child counts and
// leaf operators of both trees.
func shapeChanged(prev, next *types.Group) bool {
	a, b := shape(prev), shape(next)
	if len(a) != len(b) {
		return true
	}
	for i := range a {
		if a[i] != b[i] {
			return true
		}
	}
	return false
}

type shapeMark struct {
	group    bool
	children int
	operator string
}

func shape(root *types.Group) []shapeMark {
	var out []shapeMark
	tree.Walk(root, func(_ types.Path, node types.Node) bool {
		switch n := node.(type) {
		case *types.Group:
			out = append(out, shapeMark{group: true, children: len(n.Children)})
		case types.Condition:
			out = append(out, shapeMark{operator: n.Operator})
		}
		return true
	})
	return out
}

func findAttribute(attrs []types.Attribute, name string) (types.Attribute, bool) {
	for _, attr := range attrs {
		if attr.Name == name {
			return attr, true
		}
	}
	return types.Attribute{}, false
}
