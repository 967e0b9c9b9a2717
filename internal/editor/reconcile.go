package editor

import (
	"context"

	"github.com/solatis/rulebuilder/internal/codec"
	"github.com/solatis/rulebuilder/internal/tree"
	"github.com/solatis/rulebuilder/internal/types"
)

// RefreshCatalog reloads the attribute catalog and reconciles the tree against it.
func (c *Controller) RefreshCatalog(ctx context.Context) (Result, error) {
	return c.Reconcile(ctx, c.attrs.Refresh(ctx, c.ctx))
}

// Reconcile repairs conditions that reference attributes missing from attrs
// by pointing them at the first attribute. Conditions whose attribute
// changed data type are reset on the same attribute. With an empty list
// nothing is touched.
func (c *Controller) Reconcile(ctx context.Context, attrs []types.Attribute) (Result, error) {
	return c.update("reconcile", func(root *types.Group) (*types.Group, error) {
		if len(attrs) == 0 {
			return root, nil
		}

		byName := make(map[string]types.Attribute, len(attrs))
		for _, attr := range attrs {
			byName[attr.Name] = attr
		}

		next := root
		repaired := 0
		for _, ref := range tree.Conditions(root) {
			cond := ref.Condition
			if cond.Property == "" {
				continue
			}

			attr, ok := byName[cond.Property]
			switch {
			case !ok:
				attr = attrs[0]
			case attr.DataType != cond.DataType:
			default:
				continue
			}

			fixed := codec.OnPropertyChange(cond, attr, c.ops.LoadFor(ctx, attr.DataType))
			var err error
			next, err = tree.ReplaceCondition(next, ref.Path, fixed)
			if err != nil {
				return root, err
			}
			repaired++
			c.logger.Debug("Repaired stale condition",
				"path", tree.Label(ref.Path), "from", cond.Property, "to", attr.Name)
		}

		if repaired > 0 {
			c.logger.Info("Reconciled rule tree with attribute catalog", "repaired", repaired)
		}
		return next, nil
	})
}
