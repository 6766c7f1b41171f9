package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalLoad(t *testing.T) {
	ctx := RequestContext{
		Params: map[string]any{
			"user": "alice",
			"role": "admin",
		},
	}

	expr := Expr{
		Operator: "Eq",
		Args: []Expr{
			{Operator: "Load", Args: []Expr{{Const: "params.role"}}},
			{Const: "admin"},
		},
	}

	result, err := Eval(ctx, expr)
	require.NoError(t, err)
	assert.Equal(t, true, result.Result)

	_, err = Eval(ctx, Expr{Operator: "Load", Args: []Expr{{Const: "params.missing"}}})
	assert.Error(t, err)

	_, err = Eval(ctx, Expr{Operator: "Nope"})
	assert.Error(t, err)
}

func TestOperators(t *testing.T) {
	ctx := RequestContext{}

	cases := []struct {
		name string
		expr Expr
		want any
	}{
		{"and", Expr{Operator: "And", Args: []Expr{{Const: true}, {Const: false}}}, false},
		{"or", Expr{Operator: "Or", Args: []Expr{{Const: false}, {Const: true}}}, true},
		{"not", Expr{Operator: "Not", Args: []Expr{{Const: true}}}, false},
		{"ne", Expr{Operator: "Ne", Args: []Expr{{Const: "a"}, {Const: "b"}}}, true},
		{"contains", Expr{Operator: "Contains", Args: []Expr{{Const: []any{"a", "b"}}, {Const: "b"}}}, true},
		{"isempty", Expr{Operator: "IsEmpty", Args: []Expr{{Const: ""}}}, true},
		{"isempty-nonempty", Expr{Operator: "IsEmpty", Args: []Expr{{Const: "x"}}}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := Eval(ctx, tc.expr)
			require.NoError(t, err)
			assert.Equal(t, tc.want, result.Result)
		})
	}

	_, err := Eval(ctx, Expr{Operator: "And", Args: []Expr{{Const: "x"}}})
	assert.Error(t, err)
}

func TestConclusionOr(t *testing.T) {
	assert.Equal(t, ALLOW, UNSET.Or(ALLOW))
	assert.Equal(t, UNSET, ALLOW.Or(DENY))
	assert.Equal(t, DENY, DENY.Or(OK))
	assert.Equal(t, UNSET, OK.Or(NG))
	assert.True(t, SummarizeConclusion([]Conclusion{OK}, false))
	assert.False(t, SummarizeConclusion([]Conclusion{NG}, true))
	assert.True(t, SummarizeConclusion([]Conclusion{UNSET}, true))
}

func TestPublicationPolicy(t *testing.T) {
	doc := Publication()
	admin := "bib1admin"
	alice := "bib1alice"
	bob := "bib1bob"

	allowed := func(action string, ctx RequestContext) bool {
		ok, err := Allowed(doc, ctx, action)
		require.NoError(t, err)
		return ok
	}

	ownerGated := map[string]any{"mintPolicy": "owner"}
	assert.True(t, allowed(ActionMint, RequestContext{Requester: admin, Admin: admin, Params: ownerGated}))
	assert.False(t, allowed(ActionMint, RequestContext{Requester: alice, Admin: admin, Params: ownerGated}))
	assert.False(t, allowed(ActionMint, RequestContext{Requester: alice, Admin: "", Params: ownerGated}))
	assert.True(t, allowed(ActionMint, RequestContext{Requester: alice, Admin: admin, Params: map[string]any{"mintPolicy": "open"}}))

	token := map[string]any{"owner": alice, "approved": ""}
	assert.True(t, allowed(ActionTransfer, RequestContext{Requester: alice, This: token, Params: map[string]any{"operator": false}}))
	assert.False(t, allowed(ActionTransfer, RequestContext{Requester: bob, This: token, Params: map[string]any{"operator": false}}))
	assert.True(t, allowed(ActionTransfer, RequestContext{Requester: bob, This: token, Params: map[string]any{"operator": true}}))

	approved := map[string]any{"owner": alice, "approved": bob}
	assert.True(t, allowed(ActionBurn, RequestContext{Requester: alice, This: approved, Params: map[string]any{"operator": false}}))
	assert.False(t, allowed(ActionBurn, RequestContext{Requester: bob, This: approved, Params: map[string]any{"operator": false}}))
	assert.False(t, allowed(ActionBurn, RequestContext{Requester: bob, This: token, Params: map[string]any{"operator": true}}))
	assert.False(t, allowed(ActionApprove, RequestContext{Requester: bob, This: approved, Params: map[string]any{"operator": false}}))

	assert.True(t, allowed(ActionAdmin, RequestContext{Requester: admin, Admin: admin}))
	assert.False(t, allowed(ActionAdmin, RequestContext{Requester: alice, Admin: admin}))
	assert.False(t, allowed(ActionAdmin, RequestContext{Requester: "", Admin: ""}))
}

func TestParseRejectsUnknownVersion(t *testing.T) {
	_, err := Parse([]byte(`{"name":"x","versions":{"2020-01-01":{}}}`))
	assert.Error(t, err)

	_, err = Parse([]byte(`{`))
	assert.Error(t, err)
}
