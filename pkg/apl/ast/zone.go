package ast

import (
	"fmt"
	"strings"
)

// Zone is the coarse resource-risk classification an agent action targets.
// The matrix always holds exactly these three zones.
type Zone string

const (
	ZoneRed    Zone = "red"    // Critical: legal, billing, destructive operations
	ZoneYellow Zone = "yellow" // Core services
	ZoneGreen  Zone = "green"  // Low risk, full autonomy
)

// Zones lists the three zones in risk order, highest first.
func Zones() []Zone {
	return []Zone{ZoneRed, ZoneYellow, ZoneGreen}
}

// ParseZone normalizes a serialized zone name. The boolean is false for
// anything that is not one of the three zones.
func ParseZone(s string) (Zone, bool) {
	switch Zone(strings.ToLower(strings.TrimSpace(s))) {
	case ZoneRed:
		return ZoneRed, true
	case ZoneYellow:
		return ZoneYellow, true
	case ZoneGreen:
		return ZoneGreen, true
	}
	return "", false
}

// Valid reports whether the zone is one of the three recognized zones.
func (z Zone) Valid() bool {
	return z == ZoneRed || z == ZoneYellow || z == ZoneGreen
}

// AccessLevel is the permission level a zone grants.
type AccessLevel string

const (
	LevelNone  AccessLevel = "none"  // Zone fully closed to agents
	LevelRead  AccessLevel = "read"  // Read-only access
	LevelWrite AccessLevel = "write" // Read and write access
	LevelAdmin AccessLevel = "admin" // Full access, bypasses the resource allowlist
)

// Valid reports whether the access level is recognized.
func (l AccessLevel) Valid() bool {
	switch l {
	case LevelNone, LevelRead, LevelWrite, LevelAdmin:
		return true
	}
	return false
}

// AtLeast reports whether the level grants at least the given level,
// ordered none < read < write < admin.
func (l AccessLevel) AtLeast(min AccessLevel) bool {
	return l.rank() >= min.rank()
}

func (l AccessLevel) rank() int {
	switch l {
	case LevelRead:
		return 1
	case LevelWrite:
		return 2
	case LevelAdmin:
		return 3
	default:
		return 0
	}
}

// ZonePermission is the stored permission entry for one zone.
type ZonePermission struct {
	Zone             Zone
	Level            AccessLevel
	Resources        []string // Allowlisted resources; admin level bypasses this list
	RequiresApproval bool     // Permitted actions still need human approval
	RequiresAudit    bool     // Every decision in this zone must be audited
	Location         Location
}

// HasResource reports whether the resource is on the zone's allowlist.
// Matching is exact and case-sensitive; allowlists are operator-authored
// and small, so a linear scan is fine.
func (p ZonePermission) HasResource(resource string) bool {
	for _, r := range p.Resources {
		if r == resource {
			return true
		}
	}
	return false
}

// ZoneMatrix is the fixed three-entry permission map, one entry per zone.
// It is immutable once constructed and safe for concurrent readers.
type ZoneMatrix struct {
	perms map[Zone]ZonePermission
}

// NewZoneMatrix builds a matrix from exactly one permission per zone.
// Missing or duplicate zones are an error: the matrix is a fixed shape,
// not a dynamic list.
func NewZoneMatrix(perms ...ZonePermission) (*ZoneMatrix, error) {
	m := &ZoneMatrix{perms: make(map[Zone]ZonePermission, 3)}
	for _, p := range perms {
		if !p.Zone.Valid() {
			return nil, fmt.Errorf("unknown zone %q", p.Zone)
		}
		if _, dup := m.perms[p.Zone]; dup {
			return nil, fmt.Errorf("duplicate permission entry for zone %q", p.Zone)
		}
		if !p.Level.Valid() {
			return nil, fmt.Errorf("zone %q: unknown access level %q", p.Zone, p.Level)
		}
		m.perms[p.Zone] = p
	}
	for _, z := range Zones() {
		if _, ok := m.perms[z]; !ok {
			return nil, fmt.Errorf("missing permission entry for zone %q", z)
		}
	}
	return m, nil
}

// Permission returns the stored entry for a zone, flags as authored.
func (m *ZoneMatrix) Permission(z Zone) (ZonePermission, bool) {
	p, ok := m.perms[z]
	return p, ok
}

// EffectivePermission returns the entry for a zone with the RED override
// applied: RED at write or admin always requires approval and audit, no
// matter what the stored flags say. Evaluation must use this, not
// Permission, so a stale or hand-edited matrix cannot weaken RED.
func (m *ZoneMatrix) EffectivePermission(z Zone) (ZonePermission, bool) {
	p, ok := m.perms[z]
	if !ok {
		return p, false
	}
	if z == ZoneRed && p.Level.AtLeast(LevelWrite) {
		p.RequiresApproval = true
		p.RequiresAudit = true
	}
	return p, true
}
