package sink

import (
	"fmt"
	"math/rand"
	"net/url"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"mspmon/telemetry"
)

const (
	DefaultMQTTTopic = "mspmon/telemetry"

	mqttConnectTimeout = 10 * time.Second
	mqttPublishTimeout = time.Second
)

// MQTT publishes every record as JSON with QoS 0. Publish failures
// are logged, never returned.
type MQTT struct {
	client mqtt.Client
	topic  string
	now    func() time.Time
}

// NewMQTT connects to broker, given as a URL (tcp://host:1883,
// ssl://..., ws://...). The user info of the URL, if any, is used
// as credentials.
func NewMQTT(broker string, topic string) (*MQTT, error) {
	u, err := url.Parse(broker)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid broker URL %q", broker)
	}
	if topic == "" {
		topic = DefaultMQTTTopic
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("%s://%s%s", u.Scheme, u.Host, u.Path))
	opts.SetClientID(fmt.Sprintf("mspmon-%x", rand.Int63()))
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pw, ok := u.User.Password(); ok {
			opts.SetPassword(pw)
		}
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(mqttConnectTimeout)
	opts.OnConnect = func(mqtt.Client) {
		log.Infof("connected to MQTT broker %s", u.Host)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warnf("MQTT connection lost: %v", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("timeout connecting to %s", u.Host)
	}
	if err := token.Error(); err != nil {
		return nil, err
	}
	return &MQTT{client: client, topic: topic, now: time.Now}, nil
}

func (m *MQTT) Emit(rec telemetry.Record) error {
	payload, err := encodeJSON(rec, m.now())
	if err != nil {
		return err
	}
	token := m.client.Publish(m.topic, 0, false, payload)
	if token.WaitTimeout(mqttPublishTimeout) && token.Error() != nil {
		log.Debugf("MQTT publish to %s: %v", m.topic, token.Error())
	}
	return nil
}

func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	return nil
}
