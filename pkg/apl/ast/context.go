package ast

import "strconv"

// RequestContext is the flat attribute map an evaluation runs against.
// Keys are dotted field paths ("request.zone", "agent.id"); values are
// whatever the caller supplied. The engine never mutates it.
type RequestContext map[string]any

// Get resolves a field path. The boolean is false when the field is
// absent, which evaluation treats as unresolvable rather than empty.
func (c RequestContext) Get(field FieldPath) (any, bool) {
	v, ok := c[string(field)]
	return v, ok
}

// GetString returns the field as a string. Non-string values of basic
// kinds are rendered, matching the coercion evaluation applies.
func (c RequestContext) GetString(field FieldPath) (string, bool) {
	v, ok := c[string(field)]
	if !ok {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case bool:
		return strconv.FormatBool(s), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	}
	return "", false
}

// Zone returns the request's zone attribute, if present and recognized.
func (c RequestContext) Zone() (Zone, bool) {
	s, ok := c.GetString(FieldZone)
	if !ok {
		return "", false
	}
	return ParseZone(s)
}

// Resource returns the request's resource attribute.
func (c RequestContext) Resource() (string, bool) {
	return c.GetString(FieldResource)
}

// Action returns the request's action attribute.
func (c RequestContext) Action() (string, bool) {
	return c.GetString(FieldAction)
}

// SubjectID resolves the rate-limit subject for a request. It prefers
// the given field, falls back to request.user_id, and returns "" with
// false when neither resolves.
func (c RequestContext) SubjectID(field FieldPath) (string, bool) {
	if field != "" {
		if s, ok := c.GetString(field); ok && s != "" {
			return s, true
		}
		return "", false
	}
	if s, ok := c.GetString(FieldUserID); ok && s != "" {
		return s, true
	}
	return "", false
}
