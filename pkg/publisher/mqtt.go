package publisher

import (
	"context"
	"encoding/json"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
	"rs485motor/pkg/motor"
	"rs485motor/pkg/utils/uuidutil"
	"time"
)

const (
	mqttTimeout       = 1 * time.Second
	mqttQos           = 1
	disconnectQuiesce = 2000
	clientIDPrefix    = "motorctl"
)

var ErrPublishTimeout = errors.New("mqtt publish timed out")

type payload struct {
	Timestamp string `json:"timestamp"`
	RPM       uint16 `json:"rpm"`
	Current   uint16 `json:"current"`
}

// MqttPublisher forwards telemetry samples to one topic.
type MqttPublisher struct {
	client  mqtt.Client
	topic   string
	timeout time.Duration
}

func NewMqttPublisher(client mqtt.Client, topic string) *MqttPublisher {
	return &MqttPublisher{
		client:  client,
		topic:   topic,
		timeout: mqttTimeout,
	}
}

// Connect dials broker with a client id unique to this process.
func Connect(broker string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(uuidutil.ClientID(clientIDPrefix)).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, errors.Errorf("connect to mqtt broker %s timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrapf(err, "connect to mqtt broker %s", broker)
	}
	klog.V(1).InfoS("Connected to MQTT broker", "broker", broker)
	return client, nil
}

func Marshal(sample motor.Sample) ([]byte, error) {
	return json.Marshal(payload{
		Timestamp: sample.Timestamp.UTC().Format(time.RFC3339Nano),
		RPM:       sample.RPM,
		Current:   sample.Current,
	})
}

func (p *MqttPublisher) Publish(ctx context.Context, sample motor.Sample) error {
	data, err := Marshal(sample)
	if err != nil {
		return err
	}

	timeout := p.timeout
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		timeout = time.Until(deadline)
	}
	token := p.client.Publish(p.topic, mqttQos, false, data)
	if !token.WaitTimeout(timeout) {
		klog.V(1).InfoS("Failed to publish MQTT", "topic", p.topic, "err", ErrPublishTimeout)
		return ErrPublishTimeout
	}
	if err := token.Error(); err != nil {
		klog.V(1).InfoS("Failed to publish MQTT", "topic", p.topic, "err", err)
		return errors.Wrapf(err, "publish to %s", p.topic)
	}
	klog.V(5).InfoS("Succeed to publish MQTT", "topic", p.topic, "data", string(data))
	return nil
}

func (p *MqttPublisher) Close() {
	p.client.Disconnect(disconnectQuiesce)
}
