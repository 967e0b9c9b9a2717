package catalog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/solatis/rulebuilder/internal/codec"
	"github.com/solatis/rulebuilder/internal/types"
	"golang.org/x/sync/errgroup"
)

type operatorEntry struct {
	ops       []types.OperatorDescriptor
	fetchedAt time.Time
}

// OperatorCatalog caches operator lists per data type.
type OperatorCatalog struct {
	source OperatorSource
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	entries map[types.DataType]operatorEntry
}

// NewOperatorCatalog creates an operator cache over source. A nil source
// serves the default operator table only.
func NewOperatorCatalog(source OperatorSource, opts Options) *OperatorCatalog {
	return &OperatorCatalog{
		source:  source,
		ttl:     opts.TTL,
		logger:  opts.logger().With("catalog", "operators"),
		now:     time.Now,
		entries: make(map[types.DataType]operatorEntry),
	}
}

// LoadFor returns the operators for dt; never empty.
func (o *OperatorCatalog) LoadFor(ctx context.Context, dt types.DataType) []types.OperatorDescriptor {
	o.mu.RLock()
	entry, ok := o.entries[dt]
	o.mu.RUnlock()
	if ok && !(o.ttl > 0 && o.now().Sub(entry.fetchedAt) >= o.ttl) {
		fetchTotal.WithLabelValues("operators", outcomeCacheHit).Inc()
		return cloneOperators(entry.ops)
	}
	return o.Refresh(ctx, dt)
}

// Refresh forces a round trip for dt.
// Fallback answers are not cached so the next load retries the service.
func (o *OperatorCatalog) Refresh(ctx context.Context, dt types.DataType) []types.OperatorDescriptor {
	if o.source == nil {
		fallbackTotal.WithLabelValues(string(dt)).Inc()
		return DefaultOperators(dt)
	}

	remote, err := o.source.FetchOperators(ctx, dt)
	if err != nil {
		fetchTotal.WithLabelValues("operators", outcomeError).Inc()
		fallbackTotal.WithLabelValues(string(dt)).Inc()
		o.logger.Warn("Operator catalog unavailable, using default table", "data_type", dt, "error", err)
		return DefaultOperators(dt)
	}

	ops := orderOperators(dt, remote)
	if len(ops) == 0 {
		fetchTotal.WithLabelValues("operators", outcomeEmpty).Inc()
		fallbackTotal.WithLabelValues(string(dt)).Inc()
		o.logger.Warn("Operator catalog returned no operators, using default table", "data_type", dt)
		return DefaultOperators(dt)
	}
	fetchTotal.WithLabelValues("operators", outcomeOK).Inc()

	o.mu.Lock()
	o.entries[dt] = operatorEntry{ops: ops, fetchedAt: o.now()}
	o.mu.Unlock()

	return cloneOperators(ops)
}

// First returns the operator a condition gets when its property changes to dt.
func (o *OperatorCatalog) First(ctx context.Context, dt types.DataType) string {
	ops := o.LoadFor(ctx, dt)
	if len(ops) == 0 {
		return ""
	}
	return ops[0].Token
}

// Has reports whether token is offered for dt.
func (o *OperatorCatalog) Has(ctx context.Context, dt types.DataType, token string) bool {
	for _, op := range o.LoadFor(ctx, dt) {
		if codec.SameOperator(op.Token, token) {
			return true
		}
	}
	return false
}

// Warm loads every data type concurrently so the first selector opens without a round trip.
func (o *OperatorCatalog) Warm(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, dt := range types.DataTypes {
		g.Go(func() error {
			o.LoadFor(ctx, dt)
			return ctx.Err()
		})
	}
	return g.Wait()
}

// Invalidate drops every cached entry.
func (o *OperatorCatalog) Invalidate() {
	o.mu.Lock()
	o.entries = make(map[types.DataType]operatorEntry)
	o.mu.Unlock()
}

func cloneOperators(ops []types.OperatorDescriptor) []types.OperatorDescriptor {
	out := make([]types.OperatorDescriptor, len(ops))
	copy(out, ops)
	return out
}
