package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestTransport(t *testing.T) (*redis.Client, *RedisTransport) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	return client, NewRedisTransport(client, "vital-guard:")
}

func TestRedisTransport_Channel(t *testing.T) {
	_, transport := setupTestTransport(t)

	assert.Equal(t, "vital-guard:notify:responders",
		transport.Channel(TargetResponders, "patient-1"))
	assert.Equal(t, "vital-guard:notify:family:patient-1",
		transport.Channel(TargetFamily, "patient-1"))
	assert.Equal(t, "vital-guard:notify:emergency_contacts:patient-1",
		transport.Channel(TargetEmergencyContacts, "patient-1"))
}

func TestRedisTransport_Send(t *testing.T) {
	client, transport := setupTestTransport(t)

	ctx := context.Background()
	sub := client.Subscribe(ctx, "vital-guard:notify:family:patient-1")
	defer sub.Close()

	// 等订阅生效
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	payload := Payload{
		AlertID:   "alert-1",
		PatientID: "patient-1",
		Type:      "manual_sos",
		Severity:  "critical",
		Message:   "Your connected patient triggered an SOS alert",
	}
	require.NoError(t, transport.Send(ctx, TargetFamily, payload))

	rctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(rctx)
	require.NoError(t, err)

	var received Payload
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &received))
	assert.Equal(t, "alert-1", received.AlertID)
	assert.Equal(t, "critical", received.Severity)
}
