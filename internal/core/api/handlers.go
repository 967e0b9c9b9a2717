package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/solatis/rulebuilder/internal/editor"
	"github.com/solatis/rulebuilder/internal/rules"
	"github.com/solatis/rulebuilder/internal/tree"
	"github.com/solatis/rulebuilder/internal/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Open starts an editing session.
// Request: {workspace, rule_id?, tree?}. The request tree wins over the
// latest stored draft; without either the session starts from an empty group.
// Response: {session_id, tree, repairs, attributes, operators}.
func (s *EditorService) Open(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	cc := types.CatalogContext{
		Workspace: strings.TrimSpace(stringField(req, "workspace")),
		Rule:      strings.TrimSpace(stringField(req, "rule_id")),
	}
	if cc.Workspace == "" {
		return nil, invalid("workspace is required")
	}

	raw, err := s.initialTree(ctx, cc, req)
	if err != nil {
		return nil, toStatus(err)
	}

	ctrl, err := editor.NewController(s.attrs, s.ops, cc, editor.Options{Logger: s.logger})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	var repairs []string
	if raw != nil {
		if _, repairs, err = ctrl.Hydrate(raw); err != nil {
			return nil, invalid("tree: %v", err)
		}
	}

	attrs := s.attrs.Load(ctx, cc)
	if _, err := ctrl.Reconcile(ctx, attrs); err != nil {
		return nil, toStatus(err)
	}

	id, err := s.addSession(ctrl)
	if err != nil {
		return nil, toStatus(err)
	}
	s.logger.Info("Opened editing session", "session", id, "workspace", cc.Workspace, "rule", cc.Rule, "repairs", len(repairs))

	treeValue, err := treeToValue(ctrl.Snapshot())
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"session_id": structpb.NewStringValue(string(id)),
		"tree":       treeValue,
		"repairs":    stringsToValue(repairs),
		"attributes": attributesToValue(attrs),
		"operators":  s.operatorsFor(ctx, attrs),
	}}, nil
}

func (s *EditorService) initialTree(ctx context.Context, cc types.CatalogContext, req *structpb.Struct) ([]byte, error) {
	if v, ok := req.GetFields()["tree"]; ok {
		if _, isNull := v.GetKind().(*structpb.Value_NullValue); !isNull {
			return treeFromValue(v)
		}
	}
	if s.drafts == nil || cc.Rule == "" {
		return nil, nil
	}

	draft, err := s.drafts.Latest(ctx, cc)
	if errors.Is(err, types.ErrDraftNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, status.Error(codes.Unavailable, fmt.Sprintf("failed to load draft: %v", err))
	}
	return []byte(draft.Tree), nil
}

// operatorsFor returns {data_type: [{token, label}]} for the data types in attrs.
func (s *EditorService) operatorsFor(ctx context.Context, attrs []types.Attribute) *structpb.Value {
	fields := make(map[string]*structpb.Value)
	for _, a := range attrs {
		key := string(a.DataType)
		if _, done := fields[key]; done {
			continue
		}
		fields[key] = operatorsToValue(s.ops.LoadFor(ctx, a.DataType))
	}
	return structpb.NewStructValue(&structpb.Struct{Fields: fields})
}

// Apply applies one edit. Request: {session_id, edit}. Response: {tree, changed, dropped}.
func (s *EditorService) Apply(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	_, ctrl, err := s.session(stringField(req, "session_id"))
	if err != nil {
		return nil, toStatus(err)
	}

	editValue, ok := req.GetFields()["edit"]
	if !ok {
		return nil, invalid("edit is required")
	}
	e, err := parseEdit(editValue)
	if err != nil {
		return nil, err
	}

	res, err := ctrl.Apply(ctx, e)
	if err != nil {
		return nil, toStatus(err)
	}
	return resultStruct(res)
}

// Refresh reloads the attribute catalog and repairs stale conditions.
// Request: {session_id}. Response: {tree, changed, dropped}.
func (s *EditorService) Refresh(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	_, ctrl, err := s.session(stringField(req, "session_id"))
	if err != nil {
		return nil, toStatus(err)
	}

	res, err := ctrl.RefreshCatalog(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return resultStruct(res)
}

// Validate reports pre-save messages. Request: {session_id}. Response: {messages, valid}.
func (s *EditorService) Validate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	_, ctrl, err := s.session(stringField(req, "session_id"))
	if err != nil {
		return nil, toStatus(err)
	}

	messages := tree.Validate(ctrl.Snapshot())
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"messages": stringsToValue(messages),
		"valid":    structpb.NewBoolValue(len(messages) == 0),
	}}, nil
}

// Save validates, stores a draft and forwards the tree to the rule service.
// Request: {session_id}. Response: {rule_id, draft_id}.
func (s *EditorService) Save(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, ctrl, err := s.session(stringField(req, "session_id"))
	if err != nil {
		return nil, toStatus(err)
	}

	root := ctrl.Snapshot()
	if err := checkValid(root); err != nil {
		return nil, toStatus(err)
	}
	cc := ctrl.Context()

	fields := map[string]*structpb.Value{}
	if s.drafts != nil {
		draft, err := s.drafts.Save(ctx, cc, root)
		if err != nil {
			return nil, status.Error(codes.Unavailable, fmt.Sprintf("failed to store draft: %v", err))
		}
		fields["draft_id"] = structpb.NewStringValue(string(draft.ID))
	}

	ruleID := cc.Rule
	if s.rules != nil {
		ruleID, err = s.rules.Save(ctx, cc, root)
		if err != nil {
			return nil, toStatus(err)
		}
	}
	fields["rule_id"] = structpb.NewStringValue(ruleID)

	s.logger.Info("Saved rule", "session", id, "workspace", cc.Workspace, "rule", ruleID)
	return &structpb.Struct{Fields: fields}, nil
}

// Test validates and submits the tree for a test run.
// Request: {session_id}. Response: {result} with the service's JSON passed through.
func (s *EditorService) Test(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	_, ctrl, err := s.session(stringField(req, "session_id"))
	if err != nil {
		return nil, toStatus(err)
	}
	if s.rules == nil {
		return nil, status.Error(codes.FailedPrecondition, "no rule service configured")
	}

	root := ctrl.Snapshot()
	if err := checkValid(root); err != nil {
		return nil, toStatus(err)
	}

	raw, err := s.rules.Test(ctx, ctrl.Context(), root)
	if err != nil {
		return nil, toStatus(err)
	}
	result, err := rawToValue(raw)
	if err != nil {
		return nil, status.Error(codes.Unavailable, err.Error())
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{"result": result}}, nil
}

// Evaluate previews the tree locally against one sample record.
// Request: {session_id, record}. Response: {matched, evaluated, matches, missing}.
func (s *EditorService) Evaluate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	_, ctrl, err := s.session(stringField(req, "session_id"))
	if err != nil {
		return nil, toStatus(err)
	}

	record := req.GetFields()["record"].GetStructValue()
	if record == nil {
		return nil, invalid("record must be an object")
	}

	rule, err := rules.Compile(ctrl.Snapshot())
	if err != nil {
		return nil, toStatus(err)
	}
	return evaluationToStruct(rules.Evaluate(rule, record.AsMap()))
}

// Close ends a session. Request: {session_id}. Response: {}.
func (s *EditorService) Close(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, _, err := s.session(stringField(req, "session_id"))
	if err != nil {
		return nil, toStatus(err)
	}
	s.closeSession(id)
	return &structpb.Struct{}, nil
}

func checkValid(root *types.Group) error {
	if messages := tree.Validate(root); len(messages) > 0 {
		return fmt.Errorf("%w: %s", types.ErrInvalidTree, strings.Join(messages, "; "))
	}
	return nil
}

func resultStruct(res editor.Result) (*structpb.Struct, error) {
	treeValue, err := treeToValue(res.Tree)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"tree":    treeValue,
		"changed": structpb.NewBoolValue(res.Changed),
		"dropped": structpb.NewBoolValue(res.Dropped),
	}}, nil
}
