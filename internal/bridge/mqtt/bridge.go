package mqtt

import (
	"context"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/garage-door/internal/config"
	"github.com/oshokin/garage-door/internal/domain/door"
	"github.com/oshokin/garage-door/internal/logger"
)

const (
	// connectTimeout bounds the initial broker connection.
	connectTimeout = 10 * time.Second
	// publishTimeout bounds the background wait for a publish acknowledgement.
	publishTimeout = 5 * time.Second
	// reconnectInterval is the delay between connection retries.
	reconnectInterval = 5 * time.Second
	// disconnectQuiesce is how long Close lets in-flight work finish, in milliseconds.
	disconnectQuiesce = 250
)

// ErrConnectionTimeout is returned when the broker does not answer in time.
var ErrConnectionTimeout = errors.New("mqtt connection timeout")

// Client is the part of paho.Client the bridge uses.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload any) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
	Disconnect(quiesce uint)
}

// Commander accepts target requests coming from the broker.
type Commander interface {
	SetTarget(ctx context.Context, target door.State) error
}

// Bridge publishes controller changes and forwards commands. It implements
// controller.Observer.
type Bridge struct {
	// ctx carries the logger and bounds forwarded commands.
	ctx context.Context //nolint:containedctx // Callbacks come from paho goroutines.
	// client is the broker connection.
	client Client
	// commander receives target requests, nil disables the subscription.
	commander Commander
	// prefix is the topic prefix.
	prefix string
	// qos is used for every publish and the subscription.
	qos byte
	// now returns the timestamp of payloads.
	now func() time.Time
}

// newBridge creates a bridge over an existing client.
func newBridge(ctx context.Context, client Client, cfg config.MQTTConfig, commander Commander) *Bridge {
	return &Bridge{
		ctx:       logger.WithName(ctx, "mqtt"),
		client:    client,
		commander: commander,
		prefix:    cfg.TopicPrefix,
		qos:       cfg.QoS,
		now:       time.Now,
	}
}

// Dial connects to the broker described by cfg. Availability is announced
// retained, with an offline last will, and the command topic is subscribed on
// every (re)connection.
func Dial(ctx context.Context, cfg config.MQTTConfig, commander Commander) (*Bridge, error) {
	bridge := newBridge(ctx, nil, cfg, commander)

	routeClientLogs(bridge.ctx)

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(reconnectInterval).
		SetWill(cfg.TopicPrefix+topicAvailability, availabilityOffline, cfg.QoS, true).
		SetOnConnectHandler(func(paho.Client) {
			bridge.onConnect()
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.WarnKV(bridge.ctx, "MQTT connection lost", "error", err)
		})

	client := paho.NewClient(opts)
	bridge.client = client

	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		client.Disconnect(0)
		return nil, fmt.Errorf("%w: %s", ErrConnectionTimeout, cfg.Broker)
	}

	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	logger.InfoKV(bridge.ctx, "MQTT bridge connected", "broker", cfg.Broker, "prefix", cfg.TopicPrefix)

	return bridge, nil
}

// routeClientLogs sends the paho client's own diagnostics to the structured log.
func routeClientLogs(ctx context.Context) {
	base := logger.FromContext(ctx).Desugar().Named("paho")

	errorLog, err := zap.NewStdLogAt(base, zapcore.ErrorLevel)
	if err != nil {
		logger.WarnKV(ctx, "Route paho error log failed", "error", err)
		return
	}

	warnLog, err := zap.NewStdLogAt(base, zapcore.WarnLevel)
	if err != nil {
		logger.WarnKV(ctx, "Route paho warn log failed", "error", err)
		return
	}

	paho.CRITICAL = errorLog
	paho.ERROR = errorLog
	paho.WARN = warnLog
}

// Close announces the bridge offline and disconnects.
func (b *Bridge) Close() error {
	token := b.client.Publish(b.prefix+topicAvailability, b.qos, true, availabilityOffline)
	token.WaitTimeout(publishTimeout)

	b.client.Disconnect(disconnectQuiesce)

	return nil
}

// CurrentChanged publishes the new current state.
func (b *Bridge) CurrentChanged(state door.State) {
	b.publishState(b.prefix+topicCurrent, state)
}

// TargetChanged publishes the new target state.
func (b *Bridge) TargetChanged(target door.State) {
	b.publishState(b.prefix+topicTarget, target)
}

// ObstructionChanged publishes the obstruction flag.
func (b *Bridge) ObstructionChanged(obstructed bool) {
	payload, err := FormatObstruction(obstructed, b.now())
	if err != nil {
		logger.ErrorKV(b.ctx, "Format obstruction payload failed", "error", err)
		return
	}

	b.publish(b.prefix+topicObstruction, payload)
}

// publishState formats and publishes a state payload.
func (b *Bridge) publishState(topic string, state door.State) {
	payload, err := FormatState(state, b.now())
	if err != nil {
		logger.ErrorKV(b.ctx, "Format state payload failed", "topic", topic, "error", err)
		return
	}

	b.publish(topic, payload)
}

// publish sends a retained message without blocking the caller; the
// acknowledgement is awaited in the background.
func (b *Bridge) publish(topic string, payload []byte) {
	token := b.client.Publish(topic, b.qos, true, payload)

	go b.await(token, "Publish failed", "topic", topic)
}

// onConnect announces availability and subscribes to commands.
func (b *Bridge) onConnect() {
	b.publish(b.prefix+topicAvailability, []byte(availabilityOnline))

	if b.commander == nil {
		return
	}

	token := b.client.Subscribe(b.prefix+topicTargetSet, b.qos, b.handleSetMessage)

	go b.await(token, "Subscribe failed", "topic", b.prefix+topicTargetSet)
}

// await waits for a token and logs a failure.
func (b *Bridge) await(token paho.Token, message string, kvs ...any) {
	if !token.WaitTimeout(publishTimeout) {
		logger.WarnKV(b.ctx, message, append(kvs, "error", "timeout")...)
		return
	}

	if err := token.Error(); err != nil {
		logger.WarnKV(b.ctx, message, append(kvs, "error", err)...)
	}
}

// handleSetMessage forwards a target request. Anything but an open or close
// request is ignored.
func (b *Bridge) handleSetMessage(_ paho.Client, message paho.Message) {
	raw := string(message.Payload())

	target, err := door.ParseState(raw)
	if err != nil || !door.ValidTarget(target) {
		logger.WarnKV(b.ctx, "Ignoring invalid target request", "topic", message.Topic(), "payload", raw)
		return
	}

	logger.InfoKV(b.ctx, "Target requested over MQTT", "target", target)

	go func() {
		if err := b.commander.SetTarget(b.ctx, target); err != nil {
			logger.ErrorKV(b.ctx, "Set target from MQTT failed", "target", target, "error", err)
		}
	}()
}
