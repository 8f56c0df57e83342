package actor

import (
	"fmt"
	"reflect"

	"github.com/berfenger/blueair2mqtt/internal/config"
	"github.com/berfenger/blueair2mqtt/internal/core/domain"
	"github.com/berfenger/blueair2mqtt/internal/core/events"
	"github.com/berfenger/blueair2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

// HADiscoveryActor keeps the retained discovery configs in sync with the
// entities each device currently supports.
type HADiscoveryActor struct {
	config         *config.Config
	behavior       actor.Behavior
	mqttActor      *actor.PID
	eventStream    *eventstream.EventStream
	eventStreamSub *eventstream.Subscription
	bridgeDevice   domain.Device
	// published holds the last announced components per device uuid.
	published map[string]events.Components

	logger *zap.Logger
}

type deviceStateUpdated struct {
	event domain.DeviceStateEvent
}

type discoveryEntry struct {
	platform  string
	deviceId  string
	id        string
	component any
}

func NewHADiscoveryActor(config *config.Config, mqttActor *actor.PID, eventStream *eventstream.EventStream, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		config:       config,
		mqttActor:    mqttActor,
		eventStream:  eventStream,
		bridgeDevice: events.BridgeDevice(config.MQTT.BaseTopic),
		published:    map[string]events.Components{},
		behavior:     actor.NewBehavior(),
		logger:       actorutil.ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HADiscoveryActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hadiscovery@default started")
		self := ctx.Self()
		root := ctx.ActorSystem().Root
		state.eventStreamSub = state.eventStream.SubscribeWithPredicate(func(value any) {
			root.Send(self, deviceStateUpdated{event: value.(domain.DeviceStateEvent)})
		}, func(value any) bool {
			_, ok := value.(domain.DeviceStateEvent)
			return ok
		})
		ctx.Send(state.mqttActor, domain.PublishDiscoveryRequest{
			Sensors: events.BridgeSensors(state.bridgeDevice),
		})
	case *actor.Stopping:
		state.unsubscribe()
	case *actor.Restarting:
		state.unsubscribe()
	case domain.ActorHealthRequest:
		state.logger.Debug("hadiscovery@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_HA_DISCOVERY,
			Healthy: true,
			State:   fmt.Sprintf("%d devices", len(state.published)),
		})
	case deviceStateUpdated:
		deviceState := msg.event.State
		if deviceState.Snapshot.Info == nil {
			// model still unknown
			return
		}
		uuid := deviceState.ID()
		current := events.DeviceComponents(deviceState, state.bridgeDevice)
		req := DiscoveryDiff(state.published[uuid], current)
		state.published[uuid] = current
		if isEmptyDiscovery(req) {
			return
		}
		state.logger.Debug("hadiscovery@default publish changes", zap.String("uuid", uuid),
			zap.Int("removed", len(req.Removed)))
		ctx.Send(state.mqttActor, req)
	case domain.RepublishDiscoveryRequest:
		state.logger.Debug("hadiscovery@default RepublishDiscoveryRequest")
		all := events.Components{Sensors: events.BridgeSensors(state.bridgeDevice)}
		for _, c := range state.published {
			all.Append(c)
		}
		ctx.Send(state.mqttActor, domain.PublishDiscoveryRequest{
			Sensors:      all.Sensors,
			Switches:     all.Switches,
			InputNumbers: all.InputNumbers,
			Fans:         all.Fans,
		})
	default:
		state.logger.Debug("hadiscovery@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *HADiscoveryActor) unsubscribe() {
	if state.eventStreamSub != nil {
		state.eventStream.Unsubscribe(state.eventStreamSub)
		state.eventStreamSub = nil
	}
}

// DiscoveryDiff returns the components of current that differ from
// previous, and the ones previous had that current lacks.
func DiscoveryDiff(previous, current events.Components) domain.PublishDiscoveryRequest {
	before := indexComponents(previous)
	var req domain.PublishDiscoveryRequest
	for key, entry := range indexComponents(current) {
		if old, ok := before[key]; ok && reflect.DeepEqual(old.component, entry.component) {
			continue
		}
		switch c := entry.component.(type) {
		case domain.GenericSensor:
			req.Sensors = append(req.Sensors, c)
		case domain.GenericSwitch:
			req.Switches = append(req.Switches, c)
		case domain.GenericInputNumber:
			req.InputNumbers = append(req.InputNumbers, c)
		case domain.GenericFan:
			req.Fans = append(req.Fans, c)
		}
	}
	after := indexComponents(current)
	for key, entry := range before {
		if _, ok := after[key]; !ok {
			req.Removed = append(req.Removed, domain.RemovedComponent{
				Platform: entry.platform,
				DeviceId: entry.deviceId,
				Id:       entry.id,
			})
		}
	}
	return req
}

func indexComponents(c events.Components) map[string]discoveryEntry {
	index := map[string]discoveryEntry{}
	add := func(platform string, entity domain.EntityMixIn, component any) {
		index[platform+"/"+entity.Id] = discoveryEntry{
			platform:  platform,
			deviceId:  entity.Device.Id,
			id:        entity.Id,
			component: component,
		}
	}
	for _, s := range c.Sensors {
		add(s.SensorType, s.EntityMixIn, s)
	}
	for _, s := range c.Switches {
		add(domain.PLATFORM_SWITCH, s.EntityMixIn, s)
	}
	for _, n := range c.InputNumbers {
		add(domain.PLATFORM_NUMBER, n.EntityMixIn, n)
	}
	for _, f := range c.Fans {
		add(domain.PLATFORM_FAN, f.EntityMixIn, f)
	}
	return index
}

func isEmptyDiscovery(req domain.PublishDiscoveryRequest) bool {
	return len(req.Sensors) == 0 && len(req.Switches) == 0 && len(req.InputNumbers) == 0 &&
		len(req.Fans) == 0 && len(req.Removed) == 0
}
