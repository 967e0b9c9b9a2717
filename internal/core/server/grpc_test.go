package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/solatis/rulebuilder/internal/catalog"
	"github.com/solatis/rulebuilder/internal/core/api"
	"github.com/solatis/rulebuilder/internal/core/config"
	"github.com/solatis/rulebuilder/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type staticAttributes []types.Attribute

func (s staticAttributes) Load(ctx context.Context, c types.CatalogContext) []types.Attribute {
	return s
}

func (s staticAttributes) Refresh(ctx context.Context, c types.CatalogContext) []types.Attribute {
	return s
}

var testAttrs = staticAttributes{
	{Name: "Country", DataType: types.DataTypeString, Scope: types.ScopeGlobal},
	{Name: "Score", DataType: types.DataTypeNumeric, Scope: types.ScopeInput},
}

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{Host: "127.0.0.1", Port: 0, RequestTimeout: 5 * time.Second}
}

// startBufconn serves an EditorService over an in-memory listener.
func startBufconn(t *testing.T) (*grpc.ClientConn, *GRPCServer) {
	t.Helper()

	service, err := api.NewEditorService(testAttrs, catalog.NewOperatorCatalog(nil, catalog.Options{}),
		api.Options{MaxSessions: 4})
	require.NoError(t, err)

	srv, err := NewGRPCServer(testServerConfig(), service, nil)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return conn, srv
}

func call(t *testing.T, client *api.EditorClient, method string, fields map[string]any) (*structpb.Struct, error) {
	t.Helper()
	req, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return client.Call(ctx, method, req)
}

func TestNewGRPCServer_Validation(t *testing.T) {
	service, err := api.NewEditorService(testAttrs, catalog.NewOperatorCatalog(nil, catalog.Options{}),
		api.Options{MaxSessions: 1})
	require.NoError(t, err)

	_, err = NewGRPCServer(testServerConfig(), nil, nil)
	assert.Error(t, err)

	cfg := testServerConfig()
	cfg.RequestTimeout = 0
	_, err = NewGRPCServer(cfg, service, nil)
	assert.Error(t, err)
}

func TestGRPCServer_EditorRoundTrip(t *testing.T) {
	conn, _ := startBufconn(t)
	client := api.NewEditorClient(conn)

	resp, err := call(t, client, "Open", map[string]any{"workspace": "acme", "rule_id": "r1"})
	require.NoError(t, err)
	id := resp.GetFields()["session_id"].GetStringValue()
	require.NotEmpty(t, id)

	edits := []map[string]any{
		{"kind": "add_condition", "path": []any{}},
		{"kind": "add_group", "path": []any{}},
		{"kind": "set_property", "path": []any{0.0}, "property": "Country"},
		{"kind": "set_operator", "path": []any{0.0}, "operator": "in"},
		{"kind": "commit_value", "path": []any{0.0}, "value": []any{"NL", "BE"}},
		{"kind": "set_combinator", "path": []any{1.0}, "combinator": "any"},
		{"kind": "set_property", "path": []any{1.0, 0.0}, "property": "Score"},
		{"kind": "commit_value", "path": []any{1.0, 0.0}, "value": "7"},
	}
	for _, edit := range edits {
		_, err := call(t, client, "Apply", map[string]any{"session_id": id, "edit": edit})
		require.NoError(t, err, "edit %v", edit["kind"])
	}

	resp, err = call(t, client, "Validate", map[string]any{"session_id": id})
	require.NoError(t, err)
	assert.True(t, resp.GetFields()["valid"].GetBoolValue(), resp.GetFields()["messages"].String())

	resp, err = call(t, client, "Evaluate", map[string]any{
		"session_id": id,
		"record":     map[string]any{"Country": "NL", "Score": 7.0},
	})
	require.NoError(t, err)
	assert.True(t, resp.GetFields()["matched"].GetBoolValue())

	resp, err = call(t, client, "Save", map[string]any{"session_id": id})
	require.NoError(t, err)
	assert.Equal(t, "r1", resp.GetFields()["rule_id"].GetStringValue())

	_, err = call(t, client, "Test", map[string]any{"session_id": id})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = call(t, client, "Close", map[string]any{"session_id": id})
	require.NoError(t, err)

	_, err = call(t, client, "Validate", map[string]any{"session_id": id})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestGRPCServer_Health(t *testing.T) {
	conn, srv := startBufconn(t)
	health := grpc_health_v1.NewHealthClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := health.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: api.ServiceName})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.GetStatus())

	srv.health.Shutdown()
	resp, err = health.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: api.ServiceName})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}

func TestTimeoutInterceptor_SetsDeadline(t *testing.T) {
	interceptor := timeoutInterceptor(50 * time.Millisecond)
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/x/Y"},
		func(ctx context.Context, req any) (any, error) {
			deadline, ok := ctx.Deadline()
			assert.True(t, ok)
			assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 50*time.Millisecond)
			return nil, nil
		})
	assert.NoError(t, err)
}
