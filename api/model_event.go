package api

import (
	"encoding/json"
	"strings"
)

const (
	EventType_SpacesChanged    = "spaces:changed"
	EventType_SpacesDeleted    = "spaces:deleted"
	EventType_TemplatesChanged = "templates:changed"
	EventType_TemplatesDeleted = "templates:deleted"
	EventType_VolumesChanged   = "volumes:changed"
	EventType_VolumesDeleted   = "volumes:deleted"
	EventType_UsersChanged     = "users:changed"
	EventType_RolesChanged     = "roles:changed"
	EventType_GroupsChanged    = "groups:changed"
	EventType_ScriptsChanged   = "scripts:changed"
	EventType_ScriptsDeleted   = "scripts:deleted"
	EventType_AuditLogsChanged = "auditlogs:changed"

	// EventType_Reconnected is never sent by the server. The client dispatches it
	// after the stream is re-established so subscribers can re-fetch state.
	EventType_Reconnected = "reconnected"
	// EventType_AuthRequired short-circuits dispatch and signs the session out.
	EventType_AuthRequired = "auth:required"
)

// WildcardSuffix marks a subscription pattern as a namespace prefix match.
const WildcardSuffix = ":*"

// Event is the envelope carried in the data field of every pushed message.
type Event struct {
	Type_   string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Namespace returns the part of the type before the first colon, or "" if the
// type is not namespaced.
func (e Event) Namespace() string {
	i := strings.IndexByte(e.Type_, ':')
	if i < 0 {
		return ""
	}
	return e.Type_[:i]
}

func IsWildcardPattern(pattern string) bool {
	return strings.HasSuffix(pattern, WildcardSuffix)
}

// WildcardPrefix returns the prefix a wildcard pattern matches against,
// including the trailing colon ("spaces:*" -> "spaces:").
func WildcardPrefix(pattern string) string {
	return strings.TrimSuffix(pattern, "*")
}
