package kafka

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloudEventRoundTrip(t *testing.T) {
	type payload struct {
		BookingID string `json:"booking_id"`
		Nights    int    `json:"nights"`
	}

	ce, err := NewCloudEvent("service-booking", "booking.created", payload{BookingID: "b-1", Nights: 3})
	require.NoError(t, err)
	assert.Equal(t, "1.0", ce.SpecVersion)
	assert.NotEmpty(t, ce.ID)

	raw, err := json.Marshal(ce)
	require.NoError(t, err)

	parsed, err := ParseCloudEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, "booking.created", parsed.Type)

	var got payload
	require.NoError(t, parsed.ParseData(&got))
	assert.Equal(t, 3, got.Nights)
}

func TestParseCloudEventRejectsGarbage(t *testing.T) {
	_, err := ParseCloudEvent([]byte("not json"))
	assert.Error(t, err)

	_, err = ParseCloudEvent([]byte(`{"id":"x"}`))
	assert.Error(t, err)
}

func TestParseDataWithoutPayload(t *testing.T) {
	ce := CloudEvent{ID: "x", Type: "user.updated"}
	var v map[string]string
	assert.Error(t, ce.ParseData(&v))
}
