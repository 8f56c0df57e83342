package actor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/berfenger/blueair2mqtt/internal/config"
	"github.com/berfenger/blueair2mqtt/internal/core/domain"
	"github.com/berfenger/blueair2mqtt/internal/core/events"
	"github.com/berfenger/blueair2mqtt/internal/mqtt"
	"github.com/berfenger/blueair2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

type MQTTActor struct {
	config         *config.Config
	behavior       actor.Behavior
	stash          *actorutil.Stash
	client         *mqtt.MQTTClient
	eventStream    *eventstream.EventStream
	eventStreamSub *eventstream.Subscription
	// onPublish replaces the broker in test actors.
	onPublish func(PublishedMessage)
	logger    *zap.Logger
}

type MQTTConnected struct {
}

type MQTTSubscribed struct {
}

type MQTTConnectionLost struct {
	Error error
}

type publishResult struct {
	Topic string
	Error error
}

type ParsedCommand struct {
	Command *mqtt.ParsedMQTTCommand
}

type onEventStreamMessage struct {
	message any
}

// PublishedMessage is a message handed to the broker.
type PublishedMessage struct {
	Topic   string
	Payload string
	Retain  bool
}

func NewMQTTActor(config *config.Config, eventStream *eventstream.EventStream, logger *zap.Logger) *MQTTActor {
	act := &MQTTActor{
		config:      config,
		eventStream: eventStream,
		behavior:    actor.NewBehavior(),
		stash:       &actorutil.Stash{},
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_MQTT, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MQTTActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MQTTActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("mqtt@starting started")

		// create MQTT client
		state.client = mqtt.CreateMQTTClient(state.config, mqtt.OptsFromConfig(state.config), func(_ pahomqtt.Client) {
		}, func(_ pahomqtt.Client, err error) {
			ctx.Send(ctx.Self(), MQTTConnectionLost{Error: err})
		})

		// connect to MQTT server
		state.client.Connect(func(err error) {
			if err != nil {
				ctx.Send(ctx.Self(), MQTTConnectionLost{Error: err})
			} else {
				ctx.Send(ctx.Self(), MQTTConnected{})
			}
		}, 10*time.Second)

	case MQTTConnected:
		state.logger.Debug("mqtt@starting connected")

		state.client.Publish(state.client.BridgeStateTopic(), mqtt.MQTT_PAYLOAD_ONLINE, 0, true, func(error) {}, 500*time.Millisecond)

		state.subscribeEventStream(ctx)

		// subscribe to MQTT command topic
		state.client.SubscribeToCommandTopics(func(c pahomqtt.Client, m pahomqtt.Message) {
			cmd, err := state.client.ParseMQTTCommand(m)
			if err == nil && cmd != nil {
				ctx.Send(ctx.Self(), ParsedCommand{Command: cmd})
			} else if err != nil {
				state.logger.Warn("mqtt@starting invalid command", zap.String("topic", m.Topic()), zap.Error(err))
			}
		}, func(err error) {
			if err != nil {
				ctx.Send(ctx.Self(), MQTTConnectionLost{Error: err})
			} else {
				ctx.Send(ctx.Self(), MQTTSubscribed{})
			}
		}, 1*time.Second)
	case MQTTSubscribed:
		// init completed, transition to default state
		state.logger.Debug("mqtt@starting subscribed")
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case MQTTConnectionLost:
		// if connection lost, stop actor and let supervisor decide
		state.logger.Error("mqtt@starting connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	case *actor.Restarting:
		state.stop()
	default:
		state.logger.Debug("mqtt@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MQTTActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Restarting:
		state.stop()
	case *actor.Stopping:
		state.stop()
	case domain.ActorHealthRequest:
		state.logger.Debug("mqtt@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MQTT,
			Healthy: true,
			State:   "connected",
		})
	case ParsedCommand:
		// route command to parent
		state.logger.Debug("mqtt@default parsedCommand", zap.Any("command", msg.Command))
		ctx.Send(ctx.Parent(), msg)
	case onEventStreamMessage:
		state.logger.Debug("mqtt@default onEventStreamMessage", zap.String("type", fmt.Sprintf("%T", msg.message)))
		state.publishEvent(ctx, msg.message)
	case publishResult:
		if msg.Error != nil {
			state.logger.Error("mqtt@default could not publish a message", zap.String("topic", msg.Topic), zap.Error(msg.Error))
		}
	case domain.PublishDiscoveryRequest:
		state.logger.Debug("mqtt@default PublishDiscoveryRequest")
		err := state.publishHomeAssistantDiscovery(ctx, msg)
		if err != nil {
			state.logger.Error("mqtt@default PublishDiscoveryRequest error", zap.Error(err))
		}
		if replyTo := msg.ReplyTo(); replyTo != nil {
			ctx.Send((*actor.PID)(replyTo), domain.PublishDiscoveryResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
			})
		}
	case MQTTConnectionLost:
		// if connection lost, stop actor and let supervisor decide
		state.logger.Error("mqtt@default connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	default:
		state.logger.Debug("mqtt@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// subscribeEventStream forwards device state and bridge events to the actor
// mailbox.
func (state *MQTTActor) subscribeEventStream(ctx actor.Context) {
	if state.eventStream == nil || state.eventStreamSub != nil {
		return
	}
	self := ctx.Self()
	root := ctx.ActorSystem().Root
	state.eventStreamSub = state.eventStream.SubscribeWithPredicate(func(value any) {
		root.Send(self, onEventStreamMessage{message: value})
	}, func(value any) bool {
		switch value.(type) {
		case domain.DeviceStateEvent, domain.BridgeStateUpdateEvent:
			return true
		}
		return false
	})
}

// EventToMessages renders one event bus message as the state messages of
// the entities it updates.
func EventToMessages(client *mqtt.MQTTClient, event any) []PublishedMessage {
	switch msg := event.(type) {
	case domain.DeviceStateEvent:
		var messages []PublishedMessage
		for _, ev := range events.DeviceStateToUpdateEvents(msg.State, msg.Available) {
			messages = append(messages, updateEventToMessages(client, ev)...)
		}
		return messages
	default:
		return updateEventToMessages(client, event)
	}
}

func updateEventToMessages(client *mqtt.MQTTClient, event any) []PublishedMessage {
	switch msg := event.(type) {
	case domain.FloatSensorUpdateEvent:
		return []PublishedMessage{{
			Topic:   client.SensorStateTopic(msg.Id),
			Payload: formatFloat(msg.Value, msg.Decimals, msg.Missing),
		}}
	case domain.BinarySensorUpdateEvent:
		return []PublishedMessage{{
			Topic:   client.BinarySensorStateTopic(msg.Id),
			Payload: formatBool(msg.Value, msg.Missing),
		}}
	case domain.SwitchSensorUpdateEvent:
		return []PublishedMessage{{
			Topic:   client.SwitchStateTopic(msg.Id),
			Payload: formatBool(msg.Value, msg.Missing),
			Retain:  true,
		}}
	case domain.InputNumberSensorUpdateEvent:
		return []PublishedMessage{{
			Topic:   client.InputNumberStateTopic(msg.Id),
			Payload: formatFloat(msg.Value, msg.Decimals, msg.Missing),
			Retain:  true,
		}}
	case domain.FanUpdateEvent:
		preset := msg.PresetMode
		if preset == "" {
			preset = mqtt.MQTT_PAYLOAD_NONE
		}
		return []PublishedMessage{
			{Topic: client.FanStateTopic(msg.Id), Payload: formatBool(msg.On, msg.Missing), Retain: true},
			{Topic: client.FanPercentageStateTopic(msg.Id), Payload: strconv.Itoa(msg.Percentage), Retain: true},
			{Topic: client.FanPresetModeStateTopic(msg.Id), Payload: preset, Retain: true},
		}
	case domain.AvailabilityUpdateEvent:
		return []PublishedMessage{{
			Topic:   client.DeviceAvailabilityTopic(msg.Id),
			Payload: onlinePayload(msg.Available),
			Retain:  true,
		}}
	case domain.BridgeStateUpdateEvent:
		return []PublishedMessage{{
			Topic:   client.BridgeStateTopic(),
			Payload: onlinePayload(msg.Value),
			Retain:  true,
		}}
	}
	return nil
}

func (state *MQTTActor) publishEvent(ctx actor.Context, event any) {
	for _, msg := range EventToMessages(state.client, event) {
		state.logger.Sugar().Debugf("mqtt@publish: state publish %s => %s", msg.Topic, msg.Payload)
		state.publish(ctx, msg, 1)
	}
}

func (state *MQTTActor) publish(ctx actor.Context, msg PublishedMessage, qos byte) {
	if state.onPublish != nil {
		state.onPublish(msg)
		return
	}
	self := ctx.Self()
	root := ctx.ActorSystem().Root
	state.client.Publish(msg.Topic, msg.Payload, qos, msg.Retain, func(err error) {
		root.Send(self, publishResult{Topic: msg.Topic, Error: err})
	}, 5*time.Second)
}

// DiscoveryMessages renders the retained discovery configs of a request.
// Removed components get an empty payload, which deletes them.
func DiscoveryMessages(client *mqtt.MQTTClient, req domain.PublishDiscoveryRequest) ([]PublishedMessage, error) {
	var messages []PublishedMessage
	add := func(topic string, config mqtt.HADiscoveryConfig) error {
		payload, err := json.Marshal(config)
		if err != nil {
			return err
		}
		messages = append(messages, PublishedMessage{Topic: topic, Payload: string(payload), Retain: true})
		return nil
	}
	for i := range req.Sensors {
		if err := add(mqtt.HADiscoverySensorTopic(client, req.Sensors[i]), mqtt.GenericSensorToHADiscoveryMessage(client, req.Sensors[i])); err != nil {
			return nil, err
		}
	}
	for i := range req.Switches {
		if err := add(mqtt.HADiscoverySwitchTopic(client, req.Switches[i]), mqtt.GenericSwitchToHADiscoveryMessage(client, req.Switches[i])); err != nil {
			return nil, err
		}
	}
	for i := range req.InputNumbers {
		if err := add(mqtt.HADiscoveryInputNumberTopic(client, req.InputNumbers[i]), mqtt.GenericInputNumberToHADiscoveryMessage(client, req.InputNumbers[i])); err != nil {
			return nil, err
		}
	}
	for i := range req.Fans {
		if err := add(mqtt.HADiscoveryFanTopic(client, req.Fans[i]), mqtt.GenericFanToHADiscoveryMessage(client, req.Fans[i])); err != nil {
			return nil, err
		}
	}
	for i := range req.Removed {
		messages = append(messages, PublishedMessage{Topic: mqtt.HADiscoveryRemovedTopic(client, req.Removed[i]), Retain: true})
	}
	return messages, nil
}

func (state *MQTTActor) publishHomeAssistantDiscovery(ctx actor.Context, req domain.PublishDiscoveryRequest) error {
	messages, err := DiscoveryMessages(state.client, req)
	if err != nil {
		return err
	}
	for _, msg := range messages {
		state.publish(ctx, msg, 0)
	}
	return nil
}

func (state *MQTTActor) stop() {
	state.logger.Debug("mqtt: disconnect")
	if state.eventStreamSub != nil {
		state.eventStream.Unsubscribe(state.eventStreamSub)
		state.eventStreamSub = nil
	}
	if state.onPublish != nil {
		state.onPublish(PublishedMessage{Topic: state.client.BridgeStateTopic(), Payload: mqtt.MQTT_PAYLOAD_OFFLINE, Retain: true})
		return
	}
	if state.client != nil {
		state.client.Publish(state.client.BridgeStateTopic(), mqtt.MQTT_PAYLOAD_OFFLINE, 0, true, func(error) {}, 500*time.Millisecond)
		state.client.Disconnect(500 * time.Millisecond)
	}
}

func formatFloat(value float64, decimals uint, missing bool) string {
	if missing {
		return mqtt.MQTT_PAYLOAD_NONE
	}
	return strconv.FormatFloat(value, 'f', int(decimals), 64)
}

func formatBool(value bool, missing bool) string {
	if missing {
		return mqtt.MQTT_PAYLOAD_NONE
	}
	if value {
		return mqtt.MQTT_PAYLOAD_ON
	}
	return mqtt.MQTT_PAYLOAD_OFF
}

func onlinePayload(online bool) string {
	if online {
		return mqtt.MQTT_PAYLOAD_ONLINE
	}
	return mqtt.MQTT_PAYLOAD_OFFLINE
}

// Dummy actor
func NewTestMQTTActor(config *config.Config, eventStream *eventstream.EventStream, onPublish func(PublishedMessage), logger *zap.Logger) *MQTTActor {
	if onPublish == nil {
		onPublish = func(PublishedMessage) {}
	}
	act := &MQTTActor{
		config:      config,
		eventStream: eventStream,
		onPublish:   onPublish,
		behavior:    actor.NewBehavior(),
		stash:       &actorutil.Stash{},
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_MQTT, logger),
	}
	act.behavior.Become(act.DummyReceive)
	return act
}

func (state *MQTTActor) DummyReceive(ctx actor.Context) {
	switch ctx.Message().(type) {
	case *actor.Started:
		state.client = mqtt.CreateMQTTClient(state.config, mqtt.OptsFromConfig(state.config), nil, nil)
		state.subscribeEventStream(ctx)
		state.onPublish(PublishedMessage{Topic: state.client.BridgeStateTopic(), Payload: mqtt.MQTT_PAYLOAD_ONLINE, Retain: true})
		state.behavior.Become(state.DefaultReceive)
	}
}
