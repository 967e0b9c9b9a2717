package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/solatis/rulebuilder/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAttributes struct {
	mu    sync.Mutex
	calls int
	attrs []types.Attribute
	err   error
}

func (f *fakeAttributes) FetchAttributes(ctx context.Context, c types.CatalogContext) ([]types.Attribute, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]types.Attribute(nil), f.attrs...), nil
}

func (f *fakeAttributes) set(attrs []types.Attribute, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attrs, f.err = attrs, err
}

type fakeOperators struct {
	mu    sync.Mutex
	calls map[types.DataType]int
	ops   map[types.DataType]map[string]string
	err   error
}

func newFakeOperators() *fakeOperators {
	return &fakeOperators{
		calls: make(map[types.DataType]int),
		ops:   make(map[types.DataType]map[string]string),
	}
}

func (f *fakeOperators) FetchOperators(ctx context.Context, dt types.DataType) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[dt]++
	if f.err != nil {
		return nil, f.err
	}
	return f.ops[dt], nil
}

var (
	ageAttr   = types.Attribute{Name: "Age", DataType: types.DataTypeNumeric, Scope: types.ScopeGlobal}
	emailAttr = types.Attribute{Name: "Email", DataType: types.DataTypeString, Scope: types.ScopeInput}
	ruleCtx   = types.CatalogContext{Workspace: "acme", Rule: "r1"}
)

func TestAttributeCatalog_LoadCachesPerContext(t *testing.T) {
	src := &fakeAttributes{attrs: []types.Attribute{ageAttr, emailAttr}}
	cat := NewAttributeCatalog(src, Options{})
	ctx := context.Background()

	first := cat.Load(ctx, ruleCtx)
	second := cat.Load(ctx, ruleCtx)
	require.Len(t, first, 2)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, src.calls, "second load must be served from cache")

	cat.Load(ctx, types.CatalogContext{Workspace: "acme", Rule: "r2"})
	assert.Equal(t, 2, src.calls, "a different rule is a different key")
}

func TestAttributeCatalog_RefreshForcesRoundTrip(t *testing.T) {
	src := &fakeAttributes{attrs: []types.Attribute{ageAttr}}
	cat := NewAttributeCatalog(src, Options{})
	ctx := context.Background()

	cat.Load(ctx, ruleCtx)
	src.set([]types.Attribute{ageAttr, emailAttr}, nil)

	got := cat.Refresh(ctx, ruleCtx)
	assert.Len(t, got, 2)
	assert.Len(t, cat.Load(ctx, ruleCtx), 2)
	assert.Equal(t, 2, src.calls)
}

func TestAttributeCatalog_FailureReturnsEmptyAndKeepsCache(t *testing.T) {
	src := &fakeAttributes{attrs: []types.Attribute{ageAttr}}
	cat := NewAttributeCatalog(src, Options{})
	ctx := context.Background()

	cat.Load(ctx, ruleCtx)
	src.set(nil, errors.New("connection refused"))

	got := cat.Refresh(ctx, ruleCtx)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	// the previous good entry is still served
	assert.Equal(t, []types.Attribute{ageAttr}, cat.Load(ctx, ruleCtx))
}

func TestAttributeCatalog_FirstFailureIsNotCached(t *testing.T) {
	src := &fakeAttributes{err: errors.New("timeout")}
	cat := NewAttributeCatalog(src, Options{})
	ctx := context.Background()

	assert.Empty(t, cat.Load(ctx, ruleCtx))
	src.set([]types.Attribute{ageAttr}, nil)
	assert.Len(t, cat.Load(ctx, ruleCtx), 1)
	assert.Equal(t, 2, src.calls)
}

func TestAttributeCatalog_TTL(t *testing.T) {
	src := &fakeAttributes{attrs: []types.Attribute{ageAttr}}
	cat := NewAttributeCatalog(src, Options{TTL: time.Minute})
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cat.now = func() time.Time { return now }
	ctx := context.Background()

	cat.Load(ctx, ruleCtx)
	now = now.Add(30 * time.Second)
	cat.Load(ctx, ruleCtx)
	assert.Equal(t, 1, src.calls)

	now = now.Add(time.Minute)
	cat.Load(ctx, ruleCtx)
	assert.Equal(t, 2, src.calls)
}

func TestAttributeCatalog_InvalidateAndLookup(t *testing.T) {
	src := &fakeAttributes{attrs: []types.Attribute{ageAttr, emailAttr}}
	cat := NewAttributeCatalog(src, Options{})
	ctx := context.Background()

	attr, ok := cat.Lookup(ctx, ruleCtx, "Email")
	require.True(t, ok)
	assert.Equal(t, types.DataTypeString, attr.DataType)

	_, ok = cat.Lookup(ctx, ruleCtx, "Missing")
	assert.False(t, ok)
	assert.Equal(t, 1, src.calls)

	cat.Invalidate()
	cat.Load(ctx, ruleCtx)
	assert.Equal(t, 2, src.calls)
}

func TestAttributeCatalog_DedupesAndIsolatesCallers(t *testing.T) {
	dup := types.Attribute{Name: "Age", DataType: types.DataTypeString}
	withOps := types.Attribute{Name: "Score", DataType: types.DataTypeNumeric, DefaultOperators: []string{">"}}
	src := &fakeAttributes{attrs: []types.Attribute{ageAttr, dup, {Name: ""}, withOps}}
	cat := NewAttributeCatalog(src, Options{})
	ctx := context.Background()

	got := cat.Load(ctx, ruleCtx)
	require.Len(t, got, 2)
	assert.Equal(t, types.DataTypeNumeric, got[0].DataType, "first attribute per name wins")

	got[1].DefaultOperators[0] = "mutated"
	again := cat.Load(ctx, ruleCtx)
	assert.Equal(t, ">", again[1].DefaultOperators[0])
}

func TestOperatorCatalog_LoadFor(t *testing.T) {
	src := newFakeOperators()
	src.ops[types.DataTypeNumeric] = map[string]string{
		"between": "between",
		"<":       "less than",
		"=":       "equals",
		"approx":  "roughly",
	}
	cat := NewOperatorCatalog(src, Options{})
	ctx := context.Background()

	got := cat.LoadFor(ctx, types.DataTypeNumeric)
	tokens := make([]string, len(got))
	for i, op := range got {
		tokens[i] = op.Token
	}
	assert.Equal(t, []string{"=", "<", "between", "approx"}, tokens)

	cat.LoadFor(ctx, types.DataTypeNumeric)
	assert.Equal(t, 1, src.calls[types.DataTypeNumeric])
	assert.Equal(t, "=", cat.First(ctx, types.DataTypeNumeric))
	assert.True(t, cat.Has(ctx, types.DataTypeNumeric, "BETWEEN"))
	assert.False(t, cat.Has(ctx, types.DataTypeNumeric, "contains"))
}

func TestOperatorCatalog_Fallback(t *testing.T) {
	tests := []struct {
		name string
		src  *fakeOperators
	}{
		{
			name: "service error",
			src: func() *fakeOperators {
				f := newFakeOperators()
				f.err = errors.New("502 bad gateway")
				return f
			}(),
		},
		{
			name: "empty response",
			src:  newFakeOperators(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := NewOperatorCatalog(tt.src, Options{})
			ctx := context.Background()

			got := cat.LoadFor(ctx, types.DataTypeBoolean)
			assert.Equal(t, DefaultOperators(types.DataTypeBoolean), got)

			cat.LoadFor(ctx, types.DataTypeBoolean)
			assert.Equal(t, 2, tt.src.calls[types.DataTypeBoolean], "fallback answers are not cached")
		})
	}
}

func TestOperatorCatalog_NilSource(t *testing.T) {
	cat := NewOperatorCatalog(nil, Options{})
	for _, dt := range types.DataTypes {
		assert.NotEmpty(t, cat.LoadFor(context.Background(), dt), "data type %s", dt)
	}
}

func TestOperatorCatalog_Warm(t *testing.T) {
	src := newFakeOperators()
	for _, dt := range types.DataTypes {
		src.ops[dt] = map[string]string{"=": "equals"}
	}
	cat := NewOperatorCatalog(src, Options{})
	ctx := context.Background()

	require.NoError(t, cat.Warm(ctx))
	for _, dt := range types.DataTypes {
		cat.LoadFor(ctx, dt)
		assert.Equal(t, 1, src.calls[dt], "data type %s", dt)
	}

	cat.Invalidate()
	cat.LoadFor(ctx, types.DataTypeDate)
	assert.Equal(t, 2, src.calls[types.DataTypeDate])
}

func TestOperatorCatalog_WarmCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cat := NewOperatorCatalog(newFakeOperators(), Options{})
	assert.ErrorIs(t, cat.Warm(ctx), context.Canceled)
}

func TestDefaultOperators_EveryTypeNonEmpty(t *testing.T) {
	for _, dt := range types.DataTypes {
		ops := DefaultOperators(dt)
		require.NotEmpty(t, ops, "data type %s", dt)
		ops[0].Token = "mutated"
		assert.NotEqual(t, "mutated", DefaultOperators(dt)[0].Token)
	}
	assert.Equal(t, DefaultOperators(types.DataTypeString), DefaultOperators("Unknown"))
}

// gatedSource holds its first fetch until release is closed; later fetches
// answer immediately.
type gatedSource struct {
	mu      sync.Mutex
	calls   int
	entered chan struct{}
	release chan struct{}
}

func newGatedSource() *gatedSource {
	return &gatedSource{entered: make(chan struct{}), release: make(chan struct{})}
}

// wait reports whether this call is the held first one.
func (g *gatedSource) wait(ctx context.Context) bool {
	g.mu.Lock()
	g.calls++
	first := g.calls == 1
	g.mu.Unlock()
	if !first {
		return false
	}
	close(g.entered)
	select {
	case <-g.release:
	case <-ctx.Done():
	}
	return true
}

type gatedAttributes struct{ *gatedSource }

func (g gatedAttributes) FetchAttributes(ctx context.Context, c types.CatalogContext) ([]types.Attribute, error) {
	if g.wait(ctx) {
		return []types.Attribute{ageAttr}, nil
	}
	return []types.Attribute{emailAttr}, nil
}

type gatedOperators struct{ *gatedSource }

func (g gatedOperators) FetchOperators(ctx context.Context, dt types.DataType) (map[string]string, error) {
	if g.wait(ctx) {
		return map[string]string{"=": "equals"}, nil
	}
	return map[string]string{"!=": "differs"}, nil
}

func TestAttributeCatalog_LastCompletionWins(t *testing.T) {
	src := newGatedSource()
	cat := NewAttributeCatalog(gatedAttributes{src}, Options{})
	ctx := context.Background()

	done := make(chan []types.Attribute)
	go func() { done <- cat.Refresh(ctx, ruleCtx) }()
	<-src.entered

	assert.Equal(t, []types.Attribute{emailAttr}, cat.Refresh(ctx, ruleCtx))
	assert.Equal(t, []types.Attribute{emailAttr}, cat.Load(ctx, ruleCtx))

	close(src.release)
	assert.Equal(t, []types.Attribute{ageAttr}, <-done)
	assert.Equal(t, []types.Attribute{ageAttr}, cat.Load(ctx, ruleCtx), "later completion overwrites the entry")
	assert.Equal(t, 2, src.calls)
}

func TestOperatorCatalog_LastCompletionWins(t *testing.T) {
	src := newGatedSource()
	cat := NewOperatorCatalog(gatedOperators{src}, Options{})
	ctx := context.Background()

	done := make(chan []types.OperatorDescriptor)
	go func() { done <- cat.Refresh(ctx, types.DataTypeNumeric) }()
	<-src.entered

	second := cat.Refresh(ctx, types.DataTypeNumeric)
	require.Len(t, second, 1)
	assert.Equal(t, "!=", second[0].Token)
	assert.Equal(t, "!=", cat.First(ctx, types.DataTypeNumeric))

	close(src.release)
	first := <-done
	require.Len(t, first, 1)
	assert.Equal(t, "=", first[0].Token)
	assert.Equal(t, "=", cat.First(ctx, types.DataTypeNumeric), "later completion overwrites the entry")
	assert.Equal(t, 2, src.calls)
}
