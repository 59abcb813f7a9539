package eventstream

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devspaces/eventstream-go/api"
)

func TestSubscribeTyped_DecodesPayload(t *testing.T) {
	c, _, _ := newTestClient(t, nil)
	var got []api.SpaceChanged
	var types []string
	SubscribeTyped(c, "spaces:*", func(payload api.SpaceChanged, eventType string) {
		got = append(got, payload)
		types = append(types, eventType)
	})

	dispatchRaw(c, `{"type":"spaces:changed","payload":{"id":"sp-1","name":"dev","status":"running","extra":true}}`)

	require.Equal(t, []api.SpaceChanged{{Id: "sp-1", Name: "dev", Status: "running"}}, got)
	require.Equal(t, []string{api.EventType_SpacesChanged}, types)
}

func TestSubscribeTyped_DropsInvalidPayload(t *testing.T) {
	c, _, _ := newTestClient(t, nil)
	var got []api.ResourceDeleted
	SubscribeTyped(c, api.EventType_ScriptsDeleted, func(payload api.ResourceDeleted, _ string) {
		got = append(got, payload)
	})

	dispatchRaw(c, `{"type":"scripts:deleted","payload":{}}`)
	dispatchRaw(c, `{"type":"scripts:deleted","payload":"abc"}`)
	dispatchRaw(c, `{"type":"scripts:deleted"}`)
	dispatchRaw(c, `{"type":"scripts:deleted","payload":{"id":"abc"}}`)

	require.Equal(t, []api.ResourceDeleted{{Id: "abc"}}, got)
}

func TestSubscribeTyped_ValidatesEnums(t *testing.T) {
	c, _, _ := newTestClient(t, nil)
	calls := 0
	SubscribeTyped(c, api.EventType_SpacesChanged, func(api.SpaceChanged, string) { calls++ })

	dispatchRaw(c, `{"type":"spaces:changed","payload":{"id":"sp-1","status":"exploded"}}`)
	require.Zero(t, calls)
}

func TestSubscribeTyped_NonStructPayload(t *testing.T) {
	c, _, _ := newTestClient(t, nil)
	var got map[string]interface{}
	SubscribeTyped(c, api.EventType_VolumesChanged, func(payload map[string]interface{}, _ string) {
		got = payload
	})

	dispatchRaw(c, `{"type":"volumes:changed","payload":{"id":"v1","size":10}}`)
	require.Equal(t, map[string]interface{}{"id": "v1", "size": float64(10)}, got)
}

func TestSubscribeTyped_Unsubscribe(t *testing.T) {
	c, _, _ := newTestClient(t, nil)
	calls := 0
	unsubscribe := SubscribeTyped(c, api.EventType_AuditLogsChanged, func(api.AuditLogsChanged, string) { calls++ })

	dispatchRaw(c, `{"type":"auditlogs:changed"}`)
	unsubscribe()
	dispatchRaw(c, `{"type":"auditlogs:changed"}`)
	require.Equal(t, 1, calls)
}
