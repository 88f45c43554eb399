package ast

import "testing"

func permissiveMatrix(t *testing.T, red ZonePermission) *ZoneMatrix {
	t.Helper()
	m, err := NewZoneMatrix(
		red,
		ZonePermission{Zone: ZoneYellow, Level: LevelWrite, Resources: []string{"orders"}},
		ZonePermission{Zone: ZoneGreen, Level: LevelAdmin},
	)
	if err != nil {
		t.Fatalf("NewZoneMatrix() error = %v", err)
	}
	return m
}

func TestNewZoneMatrix(t *testing.T) {
	tests := []struct {
		name    string
		perms   []ZonePermission
		wantErr bool
	}{
		{
			name: "all three zones",
			perms: []ZonePermission{
				{Zone: ZoneRed, Level: LevelNone},
				{Zone: ZoneYellow, Level: LevelRead},
				{Zone: ZoneGreen, Level: LevelAdmin},
			},
			wantErr: false,
		},
		{
			name: "missing green",
			perms: []ZonePermission{
				{Zone: ZoneRed, Level: LevelNone},
				{Zone: ZoneYellow, Level: LevelRead},
			},
			wantErr: true,
		},
		{
			name: "duplicate zone",
			perms: []ZonePermission{
				{Zone: ZoneRed, Level: LevelNone},
				{Zone: ZoneRed, Level: LevelAdmin},
				{Zone: ZoneYellow, Level: LevelRead},
				{Zone: ZoneGreen, Level: LevelAdmin},
			},
			wantErr: true,
		},
		{
			name: "unknown zone",
			perms: []ZonePermission{
				{Zone: "purple", Level: LevelNone},
				{Zone: ZoneYellow, Level: LevelRead},
				{Zone: ZoneGreen, Level: LevelAdmin},
			},
			wantErr: true,
		},
		{
			name: "unknown level",
			perms: []ZonePermission{
				{Zone: ZoneRed, Level: "superuser"},
				{Zone: ZoneYellow, Level: LevelRead},
				{Zone: ZoneGreen, Level: LevelAdmin},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewZoneMatrix(tt.perms...)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewZoneMatrix() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestZoneMatrix_EffectivePermission_RedOverride(t *testing.T) {
	tests := []struct {
		name         string
		red          ZonePermission
		wantApproval bool
		wantAudit    bool
	}{
		{
			name:         "red write without flags gains both",
			red:          ZonePermission{Zone: ZoneRed, Level: LevelWrite},
			wantApproval: true,
			wantAudit:    true,
		},
		{
			name:         "red admin without flags gains both",
			red:          ZonePermission{Zone: ZoneRed, Level: LevelAdmin},
			wantApproval: true,
			wantAudit:    true,
		},
		{
			name:         "red read keeps authored flags",
			red:          ZonePermission{Zone: ZoneRed, Level: LevelRead},
			wantApproval: false,
			wantAudit:    false,
		},
		{
			name:         "red none keeps authored flags",
			red:          ZonePermission{Zone: ZoneRed, Level: LevelNone},
			wantApproval: false,
			wantAudit:    false,
		},
		{
			name:         "red write with explicit flags unchanged",
			red:          ZonePermission{Zone: ZoneRed, Level: LevelWrite, RequiresApproval: true, RequiresAudit: true},
			wantApproval: true,
			wantAudit:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := permissiveMatrix(t, tt.red)
			p, ok := m.EffectivePermission(ZoneRed)
			if !ok {
				t.Fatal("EffectivePermission(red) ok = false")
			}
			if p.RequiresApproval != tt.wantApproval {
				t.Errorf("RequiresApproval = %v, want %v", p.RequiresApproval, tt.wantApproval)
			}
			if p.RequiresAudit != tt.wantAudit {
				t.Errorf("RequiresAudit = %v, want %v", p.RequiresAudit, tt.wantAudit)
			}
		})
	}
}

func TestZoneMatrix_EffectivePermission_DoesNotMutateStored(t *testing.T) {
	m := permissiveMatrix(t, ZonePermission{Zone: ZoneRed, Level: LevelWrite})

	if _, ok := m.EffectivePermission(ZoneRed); !ok {
		t.Fatal("EffectivePermission(red) ok = false")
	}

	stored, _ := m.Permission(ZoneRed)
	if stored.RequiresApproval || stored.RequiresAudit {
		t.Errorf("stored permission mutated: approval=%v audit=%v", stored.RequiresApproval, stored.RequiresAudit)
	}
}

func TestZoneMatrix_EffectivePermission_OtherZonesUntouched(t *testing.T) {
	m := permissiveMatrix(t, ZonePermission{Zone: ZoneRed, Level: LevelWrite})

	p, ok := m.EffectivePermission(ZoneYellow)
	if !ok {
		t.Fatal("EffectivePermission(yellow) ok = false")
	}
	if p.RequiresApproval || p.RequiresAudit {
		t.Errorf("yellow write gained flags: approval=%v audit=%v", p.RequiresApproval, p.RequiresAudit)
	}
}

func TestAccessLevel_AtLeast(t *testing.T) {
	tests := []struct {
		level AccessLevel
		min   AccessLevel
		want  bool
	}{
		{LevelNone, LevelRead, false},
		{LevelRead, LevelRead, true},
		{LevelWrite, LevelRead, true},
		{LevelAdmin, LevelWrite, true},
		{LevelRead, LevelWrite, false},
		{LevelWrite, LevelAdmin, false},
		{LevelAdmin, LevelAdmin, true},
	}

	for _, tt := range tests {
		if got := tt.level.AtLeast(tt.min); got != tt.want {
			t.Errorf("%s.AtLeast(%s) = %v, want %v", tt.level, tt.min, got, tt.want)
		}
	}
}

func TestZonePermission_HasResource(t *testing.T) {
	p := ZonePermission{Zone: ZoneYellow, Level: LevelWrite, Resources: []string{"orders", "tickets"}}

	if !p.HasResource("orders") {
		t.Error("HasResource(orders) = false, want true")
	}
	if p.HasResource("billing") {
		t.Error("HasResource(billing) = true, want false")
	}
	if p.HasResource("Orders") {
		t.Error("HasResource(Orders) = true, want false: matching is case-sensitive")
	}
}

func TestParseZone(t *testing.T) {
	tests := []struct {
		in     string
		want   Zone
		wantOK bool
	}{
		{"red", ZoneRed, true},
		{"RED", ZoneRed, true},
		{" yellow ", ZoneYellow, true},
		{"green", ZoneGreen, true},
		{"blue", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseZone(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseZone(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
