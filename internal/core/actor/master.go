package actor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	adactor "github.com/berfenger/blueair2mqtt/internal/adapter/actor"
	"github.com/berfenger/blueair2mqtt/internal/config"
	"github.com/berfenger/blueair2mqtt/internal/core/domain"
	"github.com/berfenger/blueair2mqtt/internal/core/events"
	"github.com/berfenger/blueair2mqtt/internal/entry"
	"github.com/berfenger/blueair2mqtt/internal/metrics"
	. "github.com/berfenger/blueair2mqtt/internal/util/actorutil"
	"github.com/berfenger/blueair2mqtt/pkg/blueair"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"
)

type MQTTActorProvider func(*eventstream.EventStream) *adactor.MQTTActor

// BlueairActorProvider returns the props of the cloud API worker pool.
type BlueairActorProvider func() *actor.Props

type MasterOfPuppetsActor struct {
	config   config.Config
	entry    entry.Data
	behavior actor.Behavior
	stash    *Stash

	scheduler          *scheduler.TimerScheduler
	quartz             quartz.Scheduler
	cancelQuartz       context.CancelFunc
	currentHealthCheck healthCheckResult
	eventStream        *eventstream.EventStream
	eventStreamSub     *eventstream.Subscription
	metrics            *metrics.Metrics

	blueairActor         *actor.PID
	mqttActor            *actor.PID
	haDiscoveryActor     *actor.PID
	blueairActorProvider BlueairActorProvider
	mqttActorProvider    MQTTActorProvider

	// authState is reported by health checks until the devices are known.
	authState    string
	coordinators map[string]*actor.PID
	routes       map[string]commandRoute
	devices      map[string]domain.GetDeviceStateResponse
	deviceOrder  []string

	logger *zap.Logger
}

type commandRoute struct {
	coordinator *actor.PID
	key         string
}

type healthCheckResult struct {
	blueairActorHealthy bool
	mqttActorHealthy    bool
	checksReceived      int
	respondTo           *actor.PID
}

type startupRetry struct {
}

type republishTick struct {
}

const (
	AUTH_STATE_AUTHENTICATING = "authenticating"
	AUTH_STATE_LISTING        = "listing_devices"
	AUTH_STATE_UNAUTHORIZED   = "unauthorized"
	AUTH_STATE_READY          = "ready"
)

func NewMasterOfPuppetsActor(config config.Config, data entry.Data, blueairActorProvider BlueairActorProvider,
	mqttActorProvider MQTTActorProvider, metrics *metrics.Metrics, logger *zap.Logger) *MasterOfPuppetsActor {
	act := &MasterOfPuppetsActor{
		config:               config,
		entry:                data,
		behavior:             actor.NewBehavior(),
		stash:                &Stash{},
		logger:               ActorLogger(domain.ACTOR_ID_MASTER, logger),
		eventStream:          &eventstream.EventStream{},
		metrics:              metrics,
		blueairActorProvider: blueairActorProvider,
		mqttActorProvider:    mqttActorProvider,
		authState:            AUTH_STATE_AUTHENTICATING,
		coordinators:         map[string]*actor.PID{},
		routes:               map[string]commandRoute{},
		devices:              map[string]domain.GetDeviceStateResponse{},
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterOfPuppetsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterOfPuppetsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		state.scheduler = scheduler.NewTimerScheduler(ctx)
		state.currentHealthCheck = healthCheckResult{}
		state.currentHealthCheck.reset()
		state.subscribeEventStream(ctx)

		// start Blueair worker pool
		blueairActorPID, err := state.startBlueairActor(ctx)
		if err != nil {
			panic(err)
		}
		state.blueairActor = blueairActorPID

		// start MQTT child
		mqttActorPID, err := state.startMQTTActor(ctx)
		if err != nil {
			panic(err)
		}
		state.mqttActor = mqttActorPID

		// start HA Discovery
		if state.config.MQTT.HADiscoveryEnable {
			haDiscPID, err := state.startHADiscoveryActor(ctx)
			if err != nil {
				panic(err)
			}
			state.haDiscoveryActor = haDiscPID
			if err := state.startRepublishJob(ctx); err != nil {
				state.logger.Error("master@starting could not schedule discovery republish", zap.Error(err))
			}
		}

		state.authenticate(ctx)
	case *actor.Stopping:
		state.stop()
	case domain.ActorHealthRequest:
		state.respondStarting(ctx)
	case startupRetry:
		state.logger.Info("master@starting retrying startup")
		state.authenticate(ctx)
	case domain.AuthenticateResponse:
		if msg.HasResponseError() {
			if errors.Is(msg.ResponseError, blueair.ErrUnauthorized) {
				// credentials will not fix themselves
				state.logger.Error("master@starting invalid credentials", zap.Error(msg.ResponseError))
				state.authState = AUTH_STATE_UNAUTHORIZED
				return
			}
			state.logger.Warn("master@starting authentication failed, retrying", zap.Error(msg.ResponseError))
			state.scheduleRetry(ctx)
			return
		}
		state.logger.Debug("master@starting authenticated")
		state.authState = AUTH_STATE_LISTING
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.blueairActor, domain.GetDevicesRequest{}, state.requestTimeout()), func(err error) any {
			return domain.GetDevicesResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
	case domain.GetDevicesResponse:
		if msg.HasResponseError() {
			state.logger.Warn("master@starting could not list devices, retrying", zap.Error(msg.ResponseError))
			state.scheduleRetry(ctx)
			return
		}
		state.logger.Info("master@starting devices found", zap.Int("count", len(msg.Devices)))
		for _, device := range msg.Devices {
			if err := state.startCoordinator(ctx, device); err != nil {
				state.logger.Error("master@starting could not start coordinator", zap.String("uuid", device.UUID), zap.Error(err))
			}
		}
		state.authState = AUTH_STATE_READY
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case deviceStateUpdated:
		state.onDeviceState(msg.event)
	case domain.ListDevicesRequest:
		ForRequest(msg).Respond(ctx, domain.ListDevicesResponse{Devices: []domain.GetDeviceStateResponse{}})
	case adactor.ParsedCommand:
		state.logger.Warn("master@starting command dropped, devices not ready", zap.Any("command", msg.Command))
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Stopping:
		state.stop()
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset()
		state.currentHealthCheck.respondTo = ctx.Sender()
		// Blueair Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.blueairActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_BLUEAIR,
				Healthy: false,
			}
		})
		// MQTT Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})

		ctx.SetReceiveTimeout(1 * time.Second)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case adactor.ParsedCommand:
		// redirect parsedCommand to its device
		state.logger.Debug("master@default parsedCommand", zap.Any("command", msg.Command))
		if msg.Command == nil {
			return
		}
		route, ok := state.routes[msg.Command.DeviceId]
		if !ok {
			state.logger.Warn("master@default command for unknown entity", zap.String("entity", msg.Command.DeviceId))
			return
		}
		cmd, err := ParsedMQTTCommandToCommand(*msg.Command, route.key)
		if err != nil {
			state.logger.Warn("master@default invalid command", zap.String("entity", msg.Command.DeviceId), zap.Error(err))
			return
		}
		ctx.Request(route.coordinator, cmd)
	case domain.DeviceCommandResponse:
		if msg.HasResponseError() {
			state.logger.Error("master@default command failed", zap.String("command", msg.Command), zap.Error(msg.ResponseError))
		}
	case deviceStateUpdated:
		state.onDeviceState(msg.event)
	case domain.ListDevicesRequest:
		state.logger.Debug("master@default ListDevicesRequest")
		devices := make([]domain.GetDeviceStateResponse, 0, len(state.deviceOrder))
		for _, uuid := range state.deviceOrder {
			devices = append(devices, state.devices[uuid])
		}
		ForRequest(msg).Respond(ctx, domain.ListDevicesResponse{Devices: devices})
	case republishTick:
		if state.haDiscoveryActor != nil {
			ctx.Send(state.haDiscoveryActor, domain.RepublishDiscoveryRequest{})
		}
	case *actor.Terminated:
		// if the worker pool fails, terminate
		if msg.Who.Id == fmt.Sprintf("%s/%s", domain.ACTOR_ID_MASTER, domain.ACTOR_ID_BLUEAIR) {
			state.logger.Error("master@default blueair pool terminated")
			panic(errors.New("blueair terminated"))
		}
	default:
		state.logger.Debug("master@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *MasterOfPuppetsActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// if some actor does not respond to healthCheck, assume not healthy
		ctx.CancelReceiveTimeout()
		state.currentHealthCheck.respond(ctx)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.checksReceived++
		if msg.Healthy {
			switch msg.Id {
			case domain.ACTOR_ID_BLUEAIR:
				state.currentHealthCheck.blueairActorHealthy = true
			case domain.ACTOR_ID_MQTT:
				state.currentHealthCheck.mqttActorHealthy = true
			}
		}
		if state.currentHealthCheck.allReceived() {
			ctx.CancelReceiveTimeout()
			state.currentHealthCheck.respond(ctx)

			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		} else {
			ctx.SetReceiveTimeout(1 * time.Second)
		}
	case deviceStateUpdated:
		state.onDeviceState(msg.event)
	case *actor.Stopping:
		state.stop()
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) authenticate(ctx actor.Context) {
	state.authState = AUTH_STATE_AUTHENTICATING
	account := state.entry.UserAccount
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.blueairActor, domain.AuthenticateRequest{
		Username: account.Username,
		Password: account.Password,
	}, state.requestTimeout()), func(err error) any {
		return domain.AuthenticateResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
		}
	})
}

func (state *MasterOfPuppetsActor) scheduleRetry(ctx actor.Context) {
	state.scheduler.RequestOnce(state.config.Blueair.UpdateInterval(), ctx.Self(), startupRetry{})
}

func (state *MasterOfPuppetsActor) respondStarting(ctx actor.Context) {
	ctx.Respond(domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: false,
		State:   state.authState,
	})
}

func (state *MasterOfPuppetsActor) subscribeEventStream(ctx actor.Context) {
	self := ctx.Self()
	root := ctx.ActorSystem().Root
	state.eventStreamSub = state.eventStream.SubscribeWithPredicate(func(value any) {
		root.Send(self, deviceStateUpdated{event: value.(domain.DeviceStateEvent)})
	}, func(value any) bool {
		_, ok := value.(domain.DeviceStateEvent)
		return ok
	})
}

// onDeviceState refreshes the device list and the command routes of a
// device once its model is known.
func (state *MasterOfPuppetsActor) onDeviceState(event domain.DeviceStateEvent) {
	uuid := event.State.ID()
	if _, ok := state.devices[uuid]; !ok {
		state.deviceOrder = append(state.deviceOrder, uuid)
	}
	previous := state.devices[uuid]
	lastUpdate := previous.LastUpdate
	if event.Available {
		lastUpdate = time.Now()
	}
	state.devices[uuid] = domain.GetDeviceStateResponse{
		ActorResponseMixIn: domain.ActorResponseMixIn{
			ResponseError: event.Err,
		},
		State:      event.State,
		Available:  event.Available,
		LastUpdate: lastUpdate,
	}

	coordinator, ok := state.coordinators[uuid]
	if !ok || event.State.Snapshot.Info == nil {
		return
	}
	for id, route := range state.routes {
		if route.coordinator.Equal(coordinator) {
			delete(state.routes, id)
		}
	}
	for id, key := range events.CommandEntities(event.State) {
		state.routes[id] = commandRoute{coordinator: coordinator, key: key}
	}
}

func (state *MasterOfPuppetsActor) startRepublishJob(ctx actor.Context) error {
	if state.config.MQTT.HADiscoveryRepublishSeconds == 0 {
		return nil
	}
	sched := quartz.NewStdScheduler()
	self := ctx.Self()
	root := ctx.ActorSystem().Root
	republish := job.NewFunctionJob(func(_ context.Context) (bool, error) {
		root.Send(self, republishTick{})
		return true, nil
	})
	quartzCtx, cancel := context.WithCancel(context.Background())
	sched.Start(quartzCtx)
	interval := time.Duration(state.config.MQTT.HADiscoveryRepublishSeconds) * time.Second
	err := sched.ScheduleJob(quartz.NewJobDetail(republish, quartz.NewJobKey("discovery-republish")),
		quartz.NewSimpleTrigger(interval))
	if err != nil {
		cancel()
		return err
	}
	state.quartz = sched
	state.cancelQuartz = cancel
	return nil
}

func (state *MasterOfPuppetsActor) stop() {
	if state.eventStreamSub != nil {
		state.eventStream.Unsubscribe(state.eventStreamSub)
		state.eventStreamSub = nil
	}
	if state.quartz != nil {
		state.quartz.Stop()
		state.cancelQuartz()
		state.quartz = nil
	}
}

func (state *MasterOfPuppetsActor) requestTimeout() time.Duration {
	return state.config.Blueair.UpdateTimeout() + 2*time.Second
}

func (state *MasterOfPuppetsActor) startBlueairActor(ctx actor.Context) (*actor.PID, error) {
	return ctx.SpawnNamed(state.blueairActorProvider(), domain.ACTOR_ID_BLUEAIR)
}

func (state *MasterOfPuppetsActor) startCoordinator(ctx actor.Context, device blueair.Device) error {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(3, 10*time.Second, decider)

	identity := domain.NewDeviceIdentity(device.UUID, device.Name, device.MAC,
		state.entry.CustomEntityId(device.UUID), state.entry.UserAccount.PrefixDeviceName)
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewDeviceCoordinatorActor(&state.config, identity, state.blueairActor, state.eventStream, state.metrics, state.logger)
	}, actor.WithSupervisor(supervisor))
	pid, err := ctx.SpawnNamed(props, fmt.Sprintf("%s-%s", domain.ACTOR_ID_DEVICE, device.UUID))
	if err != nil {
		return err
	}
	state.coordinators[device.UUID] = pid
	return nil
}

func (state *MasterOfPuppetsActor) startHADiscoveryActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	haDiscProps := actor.PropsFromProducer(func() actor.Actor {
		return NewHADiscoveryActor(&state.config, state.mqttActor, state.eventStream, state.logger)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(haDiscProps, domain.ACTOR_ID_HA_DISCOVERY)
}

func (state *MasterOfPuppetsActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider(state.eventStream)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
}

func (state *healthCheckResult) reset() {
	state.blueairActorHealthy = false
	state.mqttActorHealthy = false
	state.checksReceived = 0
}

func (state *healthCheckResult) allReceived() bool {
	return state.checksReceived == 2
}

func (state *healthCheckResult) allHealthy() bool {
	return state.blueairActorHealthy && state.mqttActorHealthy
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: state.allHealthy(),
		State:   AUTH_STATE_READY,
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
