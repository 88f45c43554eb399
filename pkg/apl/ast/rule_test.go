package ast

import "testing"

func TestFieldPath_Valid(t *testing.T) {
	tests := []struct {
		field FieldPath
		want  bool
	}{
		{"request.zone", true},
		{"agent.id", true},
		{"context.session.age", true},
		{"output.body", true},
		{"request.", false},
		{"request", false},
		{"payment.amount", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := tt.field.Valid(); got != tt.want {
			t.Errorf("FieldPath(%q).Valid() = %v, want %v", tt.field, got, tt.want)
		}
	}
}

func TestRule_FirstTerminal(t *testing.T) {
	tests := []struct {
		name     string
		actions  []ActionConfig
		wantType ActionType
		wantOK   bool
	}{
		{
			name:     "terminal first",
			actions:  []ActionConfig{{Type: ActionBlock}, {Type: ActionLog}},
			wantType: ActionBlock,
			wantOK:   true,
		},
		{
			name:     "terminal after side effects",
			actions:  []ActionConfig{{Type: ActionLog}, {Type: ActionNotify}, {Type: ActionEscalate}},
			wantType: ActionEscalate,
			wantOK:   true,
		},
		{
			name:     "first of two terminals wins",
			actions:  []ActionConfig{{Type: ActionAllow}, {Type: ActionBlock}},
			wantType: ActionAllow,
			wantOK:   true,
		},
		{
			name:    "side effects only",
			actions: []ActionConfig{{Type: ActionLog}, {Type: ActionRateLimit}},
			wantOK:  false,
		},
		{
			name:    "no actions",
			actions: nil,
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Rule{ID: "r1", Actions: tt.actions}
			got, ok := r.FirstTerminal()
			if ok != tt.wantOK {
				t.Fatalf("FirstTerminal() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.Type != tt.wantType {
				t.Errorf("FirstTerminal() type = %q, want %q", got.Type, tt.wantType)
			}
		})
	}
}

func TestActionType_Terminal(t *testing.T) {
	terminal := []ActionType{ActionAllow, ActionBlock, ActionEscalate, ActionRequireApproval}
	sideEffect := []ActionType{ActionLog, ActionNotify, ActionRateLimit, ActionTransform}

	for _, at := range terminal {
		if !at.Terminal() {
			t.Errorf("%s.Terminal() = false, want true", at)
		}
	}
	for _, at := range sideEffect {
		if at.Terminal() {
			t.Errorf("%s.Terminal() = true, want false", at)
		}
	}
}

func TestRuleSet_RuleByID(t *testing.T) {
	rs := RuleSet{Rules: []Rule{
		{ID: "a", Enabled: true},
		{ID: "b", Enabled: false},
	}}

	if r, ok := rs.RuleByID("b"); !ok || r.ID != "b" {
		t.Errorf("RuleByID(b) = (%+v, %v), want rule b", r, ok)
	}
	if _, ok := rs.RuleByID("missing"); ok {
		t.Error("RuleByID(missing) ok = true, want false")
	}
}

func TestRequestContext_SubjectID(t *testing.T) {
	ctx := RequestContext{
		"request.user_id": "user-7",
		"agent.id":        "agent-3",
		"request.count":   12,
	}

	tests := []struct {
		name   string
		field  FieldPath
		want   string
		wantOK bool
	}{
		{"default falls back to user_id", "", "user-7", true},
		{"explicit field", "agent.id", "agent-3", true},
		{"numeric subject rendered", "request.count", "12", true},
		{"missing explicit field", "request.team", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ctx.SubjectID(tt.field)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("SubjectID(%q) = (%q, %v), want (%q, %v)", tt.field, got, ok, tt.want, tt.wantOK)
			}
		})
	}

	t.Run("default missing when no user_id", func(t *testing.T) {
		empty := RequestContext{"agent.id": "agent-3"}
		if _, ok := empty.SubjectID(""); ok {
			t.Error("SubjectID() ok = true, want false without request.user_id")
		}
	})
}
