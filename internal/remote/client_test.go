package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/solatis/rulebuilder/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var acme = types.CatalogContext{Workspace: "acme", Rule: "r 1"}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{BaseURL: srv.URL + "/", Token: "s3cret"})
	require.NoError(t, err)
	return c
}

func TestNewClient_RejectsBadURL(t *testing.T) {
	for _, base := range []string{"", "not a url", "/relative"} {
		_, err := NewClient(Options{BaseURL: base})
		assert.Error(t, err, "base %q", base)
	}
}

func TestFetchAttributes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/workspaces/acme/rules/r 1/attributes", r.URL.Path)
		assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"attributes":[
			{"name":"Age","data_type":"Numeric","source_type":"global","operators":["=",">"]},
			{"name":"Email","data_type":"String","source_type":"input"}
		]}`))
	})

	attrs, err := c.FetchAttributes(context.Background(), acme)
	require.NoError(t, err)
	require.Len(t, attrs, 2)
	assert.Equal(t, types.Attribute{
		Name:             "Age",
		DataType:         types.DataTypeNumeric,
		Scope:            types.ScopeGlobal,
		DefaultOperators: []string{"=", ">"},
	}, attrs[0])
	assert.Equal(t, types.ScopeInput, attrs[1].Scope)
}

func TestFetchOperators(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/operators/DateTime", r.URL.Path)
		_, _ = w.Write([]byte(`{"operators":{"<":"before",">":"after"}}`))
	})

	ops, err := c.FetchOperators(context.Background(), types.DataTypeDateTime)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"<": "before", ">": "after"}, ops)
}

func TestFetch_ServerErrorIsRemoteUnavailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	_, err := c.FetchOperators(context.Background(), types.DataTypeString)
	require.ErrorIs(t, err, types.ErrRemoteUnavailable)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "upstream down")
}

func TestFetch_TransportErrorIsRemoteUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := NewClient(Options{BaseURL: base})
	require.NoError(t, err)

	_, err = c.FetchAttributes(context.Background(), acme)
	assert.ErrorIs(t, err, types.ErrRemoteUnavailable)
}

func TestSave(t *testing.T) {
	root := &types.Group{Combinator: types.CombinatorOr, Children: []types.Node{
		types.Condition{Property: "Age", Operator: "between", Value: []any{18.0, 30.0}, DataType: types.DataTypeNumeric, SourceType: types.ScopeGlobal},
	}}

	tests := []struct {
		name     string
		response string
		want     string
	}{
		{name: "rule_id field", response: `{"rule_id":"r-42"}`, want: "r-42"},
		{name: "id field", response: `{"id":"r-43"}`, want: "r-43"},
		{name: "empty body", response: ``, want: "r 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/workspaces/acme/rules/r 1/save", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				var body struct {
					Conditions map[string]any `json:"conditions"`
				}
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "any", body.Conditions["operator"])
				rules := body.Conditions["rules"].([]any)
				require.Len(t, rules, 1)
				assert.Equal(t, []any{18.0, 30.0}, rules[0].(map[string]any)["value"])

				_, _ = w.Write([]byte(tt.response))
			})

			id, err := c.Save(context.Background(), acme, root)
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestSave_BodyKeepsOperatorsLiteral(t *testing.T) {
	root := &types.Group{Combinator: types.CombinatorAnd, Children: []types.Node{
		types.Condition{Property: "Age", Operator: ">=", Value: 18.0, DataType: types.DataTypeNumeric, SourceType: types.ScopeGlobal},
		types.Condition{Property: "Score", Operator: "<=", Value: 9.0, DataType: types.DataTypeNumeric, SourceType: types.ScopeInput},
	}}

	var body string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		body = string(raw)
		_, _ = w.Write([]byte(`{"rule_id":"r-1"}`))
	})

	_, err := c.Save(context.Background(), acme, root)
	require.NoError(t, err)
	assert.Contains(t, body, `"operator":">="`)
	assert.Contains(t, body, `"operator":"<="`)
	assert.NotContains(t, body, `\u003`)
}

func TestTest_PassesResultThrough(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/workspaces/acme/rules/r 1/test", r.URL.Path)
		_, _ = w.Write([]byte(`{"matched":3,"sample":["a","b"]}`))
	})

	got, err := c.Test(context.Background(), acme, types.NewRoot())
	require.NoError(t, err)
	assert.JSONEq(t, `{"matched":3,"sample":["a","b"]}`, string(got))
}
