package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stringer string

func (s stringer) String() string { return string(s) }

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		eventType Type
		want      bool
	}{
		{TypeRequestSubmitted, true},
		{TypeRequestTransitioned, true},
		{TypeRequestDeleted, true},
		{Type("request.unknown"), false},
		{Type(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.eventType.IsValid())
		})
	}
}

func TestNewEvent(t *testing.T) {
	evt := NewEvent(TypeRequestTransitioned, 42, 7, map[string]interface{}{KeyAction: "approve"})

	require.NotNil(t, evt)
	assert.NotEmpty(t, evt.ID)
	assert.Equal(t, evt.ID, evt.CorrelationID)
	assert.Equal(t, TypeRequestTransitioned, evt.Type)
	assert.Equal(t, int64(42), evt.RequestID)
	assert.Equal(t, int64(7), evt.ActorID)
	assert.False(t, evt.Timestamp.IsZero())
	assert.Equal(t, "approve", evt.GetPayloadString(KeyAction))
}

func TestEvent_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		evt := NewEvent(TypeRequestSubmitted, 1, 1, nil)
		assert.False(t, seen[evt.ID], "duplicate id %s", evt.ID)
		seen[evt.ID] = true
	}
}

func TestEvent_WithPayload(t *testing.T) {
	original := NewEvent(TypeRequestSubmitted, 1, 2, map[string]interface{}{KeyTo: "Pending"})
	updated := original.WithPayload(KeyComment, "first trip")

	assert.Equal(t, "", original.GetPayloadString(KeyComment), "original must not change")
	assert.Equal(t, "first trip", updated.GetPayloadString(KeyComment))
	assert.Equal(t, "Pending", updated.GetPayloadString(KeyTo))
	assert.Equal(t, original.ID, updated.ID)
}

func TestEvent_WithCorrelation(t *testing.T) {
	evt := NewEvent(TypeRequestDeleted, 1, 1, nil)

	linked := evt.WithCorrelation("req-123")
	assert.Equal(t, "req-123", linked.CorrelationID)
	assert.Equal(t, evt.ID, evt.CorrelationID, "original must not change")

	same := evt.WithCorrelation("")
	assert.Equal(t, evt.CorrelationID, same.CorrelationID)
}

func TestEvent_PayloadGetters(t *testing.T) {
	evt := NewEvent(TypeRequestTransitioned, 1, 1, map[string]interface{}{
		"s":        "text",
		"stringer": stringer("Manager Approved"),
		"i":        5,
		"i64":      int64(6),
		"u8":       uint8(3),
		"f":        float64(9),
		"bad":      []string{"x"},
	})

	assert.Equal(t, "text", evt.GetPayloadString("s"))
	assert.Equal(t, "Manager Approved", evt.GetPayloadString("stringer"))
	assert.Equal(t, "", evt.GetPayloadString("bad"))
	assert.Equal(t, "", evt.GetPayloadString("missing"))

	assert.Equal(t, int64(5), evt.GetPayloadInt("i"))
	assert.Equal(t, int64(6), evt.GetPayloadInt("i64"))
	assert.Equal(t, int64(3), evt.GetPayloadInt("u8"))
	assert.Equal(t, int64(9), evt.GetPayloadInt("f"))
	assert.Equal(t, int64(0), evt.GetPayloadInt("bad"))
}
