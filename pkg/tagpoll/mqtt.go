package tagpoll

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTMirrorConfig configures the mirror writer's broker connection.
type MQTTMirrorConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	BaseTopic string
}

// mirrorOpts builds paho client options for the mirror writer.
func mirrorOpts(cfg MQTTMirrorConfig) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port))
	opts.SetClientID(fmt.Sprintf("tagpoll_%d", rand.IntN(1000)))
	if cfg.Username != "" && cfg.Password != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	return opts
}

// MQTTMirror publishes every tag write to <base_topic>/<tag_path> so
// external observers can follow the runtime tag values.
type MQTTMirror struct {
	client    mqtt.Client
	baseTopic string
	timeout   time.Duration
}

var _ TagWriter = (*MQTTMirror)(nil)

func NewMQTTMirror(cfg MQTTMirrorConfig, timeout time.Duration) *MQTTMirror {
	return &MQTTMirror{
		client:    mqtt.NewClient(mirrorOpts(cfg)),
		baseTopic: cfg.BaseTopic,
		timeout:   timeout,
	}
}

func (m *MQTTMirror) Connect() error {
	token := m.client.Connect()
	if !token.WaitTimeout(m.timeout) {
		return errors.New("MQTT connect timed out")
	}
	return token.Error()
}

func (m *MQTTMirror) Disconnect(timeout time.Duration) {
	m.client.Disconnect(uint(timeout.Milliseconds()))
}

func (m *MQTTMirror) WriteTags(paths []string, values []any) error {
	if len(paths) != len(values) {
		return errors.New("tag paths and values length mismatch")
	}
	for i, path := range paths {
		payload := fmt.Sprintf("%v", values[i])
		token := m.client.Publish(fmt.Sprintf("%s/%s", m.baseTopic, path), 0, false, payload)
		if !token.WaitTimeout(m.timeout) {
			return errors.New("MQTT publish timed out")
		}
		if err := token.Error(); err != nil {
			return err
		}
	}
	return nil
}

// TeeWriter fans a tag write out to several writers; the first error
// wins but later writers still run.
type TeeWriter []TagWriter

var _ TagWriter = TeeWriter{}

func (t TeeWriter) WriteTags(paths []string, values []any) error {
	var firstErr error
	for _, w := range t {
		if err := w.WriteTags(paths, values); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
