package actuation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTActuator publishes actuation commands for the hardware bridge on
// each plant unit. Commands carry their own duration so the bridge can
// enforce the shutoff locally even if this controller disappears.
type MQTTActuator struct {
	client mqtt.Client
}

func NewMQTTActuator(client mqtt.Client) *MQTTActuator {
	return &MQTTActuator{client: client}
}

var _ Actuator = (*MQTTActuator)(nil)

type pumpCommand struct {
	DurationSeconds float64   `json:"duration_seconds"`
	IssuedAt        time.Time `json:"issued_at"`
}

type valveCommand struct {
	Open     bool      `json:"open"`
	IssuedAt time.Time `json:"issued_at"`
}

func (a *MQTTActuator) RunPump(ctx context.Context, reservoirID, pumpID string, duration time.Duration) error {
	topic := fmt.Sprintf("reservoir/%s/pump/%s/run", reservoirID, pumpID)
	return a.publish(ctx, topic, pumpCommand{
		DurationSeconds: duration.Seconds(),
		IssuedAt:        time.Now().UTC(),
	})
}

func (a *MQTTActuator) SetValve(ctx context.Context, reservoirID, valveID string, open bool) error {
	topic := fmt.Sprintf("reservoir/%s/valve/%s/set", reservoirID, valveID)
	return a.publish(ctx, topic, valveCommand{
		Open:     open,
		IssuedAt: time.Now().UTC(),
	})
}

// publish sends at QoS 1 and waits no longer than the caller's context.
func (a *MQTTActuator) publish(ctx context.Context, topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal command for %s: %w", topic, err)
	}
	token := a.client.Publish(topic, 1, false, body)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(5 * time.Second)
	}
	if !token.WaitTimeout(time.Until(deadline)) {
		return fmt.Errorf("publish %s: broker ack timeout", topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("publish %s: %w", topic, token.Error())
	}
	return nil
}
