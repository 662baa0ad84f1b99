package sensors

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"reservoir_controller/internal/logger"
	"reservoir_controller/internal/models"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConfig holds broker connection settings.
type MQTTConfig struct {
	Broker   string // e.g. "tcp://localhost:1883"
	ClientID string
	Username string
	Password string
}

const (
	connectMaxElapsed = 30 * time.Second
	connectMaxRetries = 5

	// Remote units publish on reservoir/<reservoir_id>/sensor/<sensor_id>.
	sensorTopicFilter = "reservoir/+/sensor/+"
)

// Connect dials the broker, retrying with exponential backoff. The
// returned client is disconnected when ctx is canceled.
func Connect(ctx context.Context, cfg MQTTConfig, log *logger.Logger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = connectMaxElapsed

	var client mqtt.Client
	err := backoff.Retry(func() error {
		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			log.Warnw("mqtt_connect_retry", "broker", cfg.Broker, "err", token.Error())
			return token.Error()
		}
		return nil
	}, backoff.WithMaxRetries(bo, connectMaxRetries-1))
	if err != nil {
		return nil, fmt.Errorf("connect mqtt broker %s: %w", cfg.Broker, err)
	}

	go func() {
		<-ctx.Done()
		client.Disconnect(250)
	}()

	log.Infow("mqtt_connected", "broker", cfg.Broker)
	return client, nil
}

// sensorPayload is the wire format published by remote plant units.
type sensorPayload struct {
	Kind      models.SensorKind `json:"kind"`
	Value     float64           `json:"value"`
	Timestamp time.Time         `json:"timestamp"`
}

// Ingest subscribes to sensor topics and feeds the snapshot store and
// the flow totalizer. It never blocks the control loop; the loop only
// ever reads the cached snapshot.
type Ingest struct {
	client mqtt.Client
	store  *Store
	totals *Totalizer
	log    *logger.Logger
}

func NewIngest(client mqtt.Client, store *Store, totals *Totalizer, log *logger.Logger) *Ingest {
	return &Ingest{client: client, store: store, totals: totals, log: log}
}

// Subscribe registers the sensor topic handler at QoS 1.
func (i *Ingest) Subscribe() error {
	token := i.client.Subscribe(sensorTopicFilter, 1, i.handle)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", sensorTopicFilter, token.Error())
	}
	return nil
}

func (i *Ingest) handle(_ mqtt.Client, msg mqtt.Message) {
	sensorID, ok := sensorIDFromTopic(msg.Topic())
	if !ok {
		i.log.Warnw("mqtt_bad_topic", "topic", msg.Topic())
		return
	}
	var p sensorPayload
	if err := json.Unmarshal(msg.Payload(), &p); err != nil {
		i.log.Warnw("mqtt_bad_payload", "topic", msg.Topic(), "err", err)
		return
	}
	r := models.SensorReading{
		SensorID:  sensorID,
		Kind:      p.Kind,
		Value:     p.Value,
		Timestamp: p.Timestamp.UTC(),
	}
	i.store.Put(r)
	if i.totals != nil {
		i.totals.Add(r)
	}
}

// sensorIDFromTopic extracts the trailing sensor ID from
// reservoir/<id>/sensor/<sensor_id>.
func sensorIDFromTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != "reservoir" || parts[2] != "sensor" || parts[3] == "" {
		return "", false
	}
	return parts[3], true
}
