package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trailhead-stays/service-booking/internal/application"
	"github.com/trailhead-stays/service-booking/internal/platform/kafka"
)

type recordingProjector struct {
	events []application.UserEvent
	err    error
}

func (p *recordingProjector) ApplyUserEvent(_ context.Context, evt application.UserEvent) error {
	p.events = append(p.events, evt)
	return p.err
}

func encode(t *testing.T, eventType string, data interface{}) []byte {
	t.Helper()
	ce, err := kafka.NewCloudEvent("service-identity", eventType, data)
	require.NoError(t, err)
	raw, err := json.Marshal(ce)
	require.NoError(t, err)
	return raw
}

func TestHandleIdentityEvent_Registered(t *testing.T) {
	projector := &recordingProjector{}
	id := uuid.New()

	raw := encode(t, application.UserRegistered, application.UserEvent{UserID: id, Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, handleIdentityEvent(context.Background(), projector, zap.NewNop(), raw))

	require.Len(t, projector.events, 1)
	assert.Equal(t, id, projector.events[0].UserID)
	assert.Equal(t, "Ada", projector.events[0].Name)
	assert.False(t, projector.events[0].OccurredAt.IsZero(), "falls back to the envelope time")
}

func TestHandleIdentityEvent_UpdatedKeepsPayloadTime(t *testing.T) {
	projector := &recordingProjector{}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	raw := encode(t, application.UserUpdated, application.UserEvent{UserID: uuid.New(), Name: "Grace", OccurredAt: at})
	require.NoError(t, handleIdentityEvent(context.Background(), projector, zap.NewNop(), raw))

	require.Len(t, projector.events, 1)
	assert.True(t, projector.events[0].OccurredAt.Equal(at))
}

func TestHandleIdentityEvent_SkipsMalformed(t *testing.T) {
	projector := &recordingProjector{}

	assert.NoError(t, handleIdentityEvent(context.Background(), projector, zap.NewNop(), []byte("not json")))
	assert.NoError(t, handleIdentityEvent(context.Background(), projector, zap.NewNop(), []byte(`{"type":"user.registered","data":"oops"}`)))
	assert.Empty(t, projector.events)
}

func TestHandleIdentityEvent_IgnoresOtherTypes(t *testing.T) {
	projector := &recordingProjector{}

	raw := encode(t, "user.deleted", map[string]string{"user_id": uuid.NewString()})
	assert.NoError(t, handleIdentityEvent(context.Background(), projector, zap.NewNop(), raw))
	assert.Empty(t, projector.events)
}

func TestHandleIdentityEvent_PropagatesStoreErrors(t *testing.T) {
	projector := &recordingProjector{err: errors.New("db down")}

	raw := encode(t, application.UserRegistered, application.UserEvent{UserID: uuid.New(), Name: "Ada"})
	assert.Error(t, handleIdentityEvent(context.Background(), projector, zap.NewNop(), raw))
}
