// Package catalog caches the remote attribute and operator catalogs.
//
// Both caches degrade instead of failing: an unreachable attribute service
// yields an empty list, an unreachable operator service yields the default
// operator table. Errors are logged and counted, never returned, because
// "no attributes yet" is a normal, displayable editor state.
//
// Concurrent loads for the same key are not coalesced; whichever completes
// last overwrites the entry. Entries are keyed by content (context or data
// type), so a stale overwrite carries the same data.
package catalog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/solatis/rulebuilder/internal/types"
)

// AttributeSource fetches the attributes for one rule context.
type AttributeSource interface {
	FetchAttributes(ctx context.Context, c types.CatalogContext) ([]types.Attribute, error)
}

// OperatorSource fetches {token: label} operators for one data type.
type OperatorSource interface {
	FetchOperators(ctx context.Context, dt types.DataType) (map[string]string, error)
}

// Options configures catalog caches.
type Options struct {
	// TTL after which an entry is reloaded on the next Load. Zero never expires.
	TTL time.Duration
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

type attributeEntry struct {
	attrs     []types.Attribute
	fetchedAt time.Time
}

// AttributeCatalog caches attribute lists by workspace + rule.
type AttributeCatalog struct {
	source AttributeSource
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	entries map[string]attributeEntry
}

// NewAttributeCatalog creates an attribute cache over source.
func NewAttributeCatalog(source AttributeSource, opts Options) *AttributeCatalog {
	return &AttributeCatalog{
		source:  source,
		ttl:     opts.TTL,
		logger:  opts.logger().With("catalog", "attributes"),
		now:     time.Now,
		entries: make(map[string]attributeEntry),
	}
}

// Load returns the cached attributes for c, fetching on first use or after TTL.
func (a *AttributeCatalog) Load(ctx context.Context, c types.CatalogContext) []types.Attribute {
	a.mu.RLock()
	entry, ok := a.entries[c.Key()]
	a.mu.RUnlock()
	if ok && !a.stale(entry.fetchedAt) {
		fetchTotal.WithLabelValues("attributes", outcomeCacheHit).Inc()
		return cloneAttributes(entry.attrs)
	}
	return a.Refresh(ctx, c)
}

// Refresh forces a round trip, used when a property selector is about to open.
// On failure the previous entry is kept for later Loads and an empty list is returned.
func (a *AttributeCatalog) Refresh(ctx context.Context, c types.CatalogContext) []types.Attribute {
	attrs, err := a.source.FetchAttributes(ctx, c)
	if err != nil {
		fetchTotal.WithLabelValues("attributes", outcomeError).Inc()
		a.logger.Warn("Attribute catalog unavailable", "workspace", c.Workspace, "rule", c.Rule, "error", err)
		return []types.Attribute{}
	}

	attrs = dedupeAttributes(attrs)
	if len(attrs) == 0 {
		fetchTotal.WithLabelValues("attributes", outcomeEmpty).Inc()
	} else {
		fetchTotal.WithLabelValues("attributes", outcomeOK).Inc()
	}

	a.mu.Lock()
	a.entries[c.Key()] = attributeEntry{attrs: attrs, fetchedAt: a.now()}
	a.mu.Unlock()

	a.logger.Debug("Attribute catalog loaded", "workspace", c.Workspace, "rule", c.Rule, "count", len(attrs))
	return cloneAttributes(attrs)
}

// Lookup finds an attribute by name in the cached list, loading it if needed.
func (a *AttributeCatalog) Lookup(ctx context.Context, c types.CatalogContext, name string) (types.Attribute, bool) {
	for _, attr := range a.Load(ctx, c) {
		if attr.Name == name {
			return attr, true
		}
	}
	return types.Attribute{}, false
}

// Invalidate drops every cached entry.
func (a *AttributeCatalog) Invalidate() {
	a.mu.Lock()
	a.entries = make(map[string]attributeEntry)
	a.mu.Unlock()
}

func (a *AttributeCatalog) stale(fetchedAt time.Time) bool {
	return a.ttl > 0 && a.now().Sub(fetchedAt) >= a.ttl
}

// dedupeAttributes keeps the first attribute per name and drops nameless ones.
func dedupeAttributes(attrs []types.Attribute) []types.Attribute {
	seen := make(map[string]bool, len(attrs))
	out := make([]types.Attribute, 0, len(attrs))
	for _, attr := range attrs {
		if attr.Name == "" || seen[attr.Name] {
			continue
		}
		seen[attr.Name] = true
		out = append(out, attr)
	}
	return out
}

func cloneAttributes(attrs []types.Attribute) []types.Attribute {
	out := make([]types.Attribute, len(attrs))
	for i, attr := range attrs {
		attr.DefaultOperators = append([]string(nil), attr.DefaultOperators...)
		out[i] = attr
	}
	return out
}
