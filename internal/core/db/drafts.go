package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/solatis/rulebuilder/internal/tree"
	"github.com/solatis/rulebuilder/internal/types"
)

// DefaultKeepDrafts is the number of revisions kept per rule.
const DefaultKeepDrafts = 20

// Draft is one stored revision of a rule tree.
type Draft struct {
	ID         types.DraftID `db:"draft_id"`
	Workspace  string        `db:"workspace"`
	RuleID     string        `db:"rule_id"`
	Tree       string        `db:"tree"`
	Conditions int           `db:"conditions"`
	CreatedAt  time.Time     `db:"created_at"`
}

// Root decodes the stored tree, repairing malformed structure.
func (d Draft) Root() (*types.Group, error) {
	return tree.Unmarshal([]byte(d.Tree))
}

// DraftStore persists rule trees per workspace + rule.
type DraftStore struct {
	q    *Queries
	keep int
}

// NewDraftStore creates a store keeping the newest keep drafts per rule
// (DefaultKeepDrafts when keep <= 0).
func NewDraftStore(q *Queries, keep int) *DraftStore {
	if keep <= 0 {
		keep = DefaultKeepDrafts
	}
	return &DraftStore{q: q, keep: keep}
}

// Save stores root as the newest draft of the rule and prunes old revisions.
func (s *DraftStore) Save(ctx context.Context, cc types.CatalogContext, root *types.Group) (Draft, error) {
	data, err := tree.Marshal(root)
	if err != nil {
		return Draft{}, fmt.Errorf("marshal draft: %w", err)
	}

	d := Draft{
		ID:         types.NewDraftID(),
		Workspace:  cc.Workspace,
		RuleID:     cc.Rule,
		Tree:       string(data),
		Conditions: tree.Measure(root).Conditions,
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
	}

	if _, err := s.q.Exec(ctx, "insert-draft",
		d.ID, d.Workspace, d.RuleID, d.Tree, d.Conditions, d.CreatedAt,
	); err != nil {
		return Draft{}, fmt.Errorf("insert draft: %w", err)
	}

	if _, err := s.q.Exec(ctx, "prune-drafts",
		cc.Workspace, cc.Rule, cc.Workspace, cc.Rule, s.keep,
	); err != nil {
		return Draft{}, fmt.Errorf("prune drafts: %w", err)
	}

	return d, nil
}

// Latest returns the newest draft of the rule or types.ErrDraftNotFound.
func (s *DraftStore) Latest(ctx context.Context, cc types.CatalogContext) (Draft, error) {
	var d Draft
	err := s.q.Get(ctx, "get-latest-draft", &d, cc.Workspace, cc.Rule)
	if errors.Is(err, sql.ErrNoRows) {
		return Draft{}, fmt.Errorf("%s: %w", cc.Key(), types.ErrDraftNotFound)
	}
	if err != nil {
		return Draft{}, fmt.Errorf("get latest draft: %w", err)
	}
	return d, nil
}

// List returns up to limit drafts of the rule, newest first.
func (s *DraftStore) List(ctx context.Context, cc types.CatalogContext, limit int) ([]Draft, error) {
	if limit <= 0 {
		limit = s.keep
	}
	var drafts []Draft
	if err := s.q.Select(ctx, "list-drafts", &drafts, cc.Workspace, cc.Rule, limit); err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	return drafts, nil
}

// Delete removes every draft of the rule and returns how many were removed.
func (s *DraftStore) Delete(ctx context.Context, cc types.CatalogContext) (int64, error) {
	res, err := s.q.Exec(ctx, "delete-drafts", cc.Workspace, cc.Rule)
	if err != nil {
		return 0, fmt.Errorf("delete drafts: %w", err)
	}
	return res.RowsAffected()
}
