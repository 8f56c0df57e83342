package actor

import (
	"fmt"
	"time"

	"github.com/berfenger/blueair2mqtt/internal/config"
	"github.com/berfenger/blueair2mqtt/internal/core/domain"
	"github.com/berfenger/blueair2mqtt/internal/metrics"
	. "github.com/berfenger/blueair2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// DeviceCoordinatorActor owns the snapshot of one device. It polls the
// cloud on a fixed interval, applies writes and publishes a DeviceStateEvent
// after every change.
type DeviceCoordinatorActor struct {
	behavior  actor.Behavior
	stash     *Stash
	scheduler *scheduler.TimerScheduler

	config       *config.Config
	blueairActor *actor.PID
	eventStream  *eventstream.EventStream
	metrics      *metrics.Metrics

	state      domain.DeviceState
	available  bool
	lastUpdate time.Time
	lastError  error

	refreshing     bool
	refreshStale   bool
	refreshStarted time.Time
	refreshWaiters []*actor.PID
	pendingWrite   *pendingWrite

	logger *zap.Logger
}

type pollTick struct {
}

type pendingWrite struct {
	command   domain.DeviceCommandRequest
	attribute string
	value     any
	replyTo   *actor.PID
}

func NewDeviceCoordinatorActor(config *config.Config, identity domain.DeviceIdentity, blueairActor *actor.PID,
	eventStream *eventstream.EventStream, metrics *metrics.Metrics, logger *zap.Logger) *DeviceCoordinatorActor {
	act := &DeviceCoordinatorActor{
		config:       config,
		blueairActor: blueairActor,
		eventStream:  eventStream,
		metrics:      metrics,
		state:        domain.DeviceState{Identity: identity},
		behavior:     actor.NewBehavior(),
		stash:        &Stash{},
		logger:       ActorLogger(domain.ACTOR_ID_DEVICE, logger).With(zap.String("uuid", identity.UUID)),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *DeviceCoordinatorActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *DeviceCoordinatorActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("device@starting started")
		state.scheduler = scheduler.NewTimerScheduler(ctx)
		state.startRefresh(ctx, nil)
	case domain.FetchSnapshotResponse:
		state.onSnapshot(ctx, msg)
		state.scheduler.RequestOnce(state.config.Blueair.UpdateInterval(), ctx.Self(), pollTick{})
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
	default:
		state.logger.Debug("device@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *DeviceCoordinatorActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("device@default ActorHealthRequest")
		deviceState := "unavailable"
		if state.available {
			deviceState = "available"
		}
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_DEVICE,
			Healthy: true,
			State:   deviceState,
		})
	case pollTick:
		state.logger.Debug("device@default tick")
		state.startRefresh(ctx, nil)
		// schedule next tick
		state.scheduler.RequestOnce(state.config.Blueair.UpdateInterval(), ctx.Self(), pollTick{})
	case domain.RefreshRequest:
		state.logger.Debug("device@default RefreshRequest")
		state.startRefresh(ctx, ForRequest(msg).ReplyTo(ctx))
	case domain.FetchSnapshotResponse:
		state.logger.Debug("device@default FetchSnapshotResponse")
		state.onSnapshot(ctx, msg)
	case domain.GetDeviceStateRequest:
		state.logger.Debug("device@default GetDeviceStateRequest")
		ForRequest(msg).Respond(ctx, state.stateResponse())
	case domain.DeviceCommandRequest:
		state.logger.Debug("device@default DeviceCommandRequest", zap.String("command", msg.DeviceCommand()))
		state.startWrite(ctx, msg)
	default:
		state.logger.Debug("device@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *DeviceCoordinatorActor) WaitingWriteReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.WriteAttributeResponse:
		write := state.pendingWrite
		state.pendingWrite = nil
		state.metrics.ObserveWrite(state.state.ID(), write.attribute, msg.ResponseError)
		if msg.HasResponseError() {
			state.logger.Error("device@writing write failed", zap.String("attribute", write.attribute), zap.Error(msg.ResponseError))
		} else {
			state.logger.Debug("device@writing write done", zap.String("attribute", write.attribute))
			// optimistic update, reconciled by the refresh below
			state.state = state.state.WithAttribute(write.attribute, write.value)
			state.publish()
			state.refreshAfterWrite(ctx)
		}
		if write.replyTo != nil {
			ctx.Send(write.replyTo, domain.DeviceCommandResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: msg.ResponseError,
				},
				Command: write.command.DeviceCommand(),
			})
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthRequest, domain.GetDeviceStateRequest, domain.FetchSnapshotResponse, pollTick:
		// these do not touch the write in flight
		state.DefaultReceive(ctx)
	default:
		state.logger.Debug("device@writing stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

// startRefresh fetches a new snapshot unless one is already in flight, in
// which case the caller joins it.
func (state *DeviceCoordinatorActor) startRefresh(ctx actor.Context, replyTo *actor.PID) {
	if replyTo != nil {
		state.refreshWaiters = append(state.refreshWaiters, replyTo)
	}
	if state.refreshing {
		state.logger.Debug("device: refresh already in flight")
		return
	}
	state.refreshing = true
	state.refreshStarted = time.Now()
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.blueairActor, domain.FetchSnapshotRequest{UUID: state.state.ID()}, state.requestTimeout()), func(err error) any {
		return domain.FetchSnapshotResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
		}
	})
}

// refreshAfterWrite never joins a fetch in flight: that fetch may have read
// the device before the write landed. It is marked stale and redone instead.
func (state *DeviceCoordinatorActor) refreshAfterWrite(ctx actor.Context) {
	if state.refreshing {
		state.refreshStale = true
		return
	}
	state.startRefresh(ctx, nil)
}

func (state *DeviceCoordinatorActor) onSnapshot(ctx actor.Context, msg domain.FetchSnapshotResponse) {
	uuid := state.state.ID()
	state.refreshing = false
	state.metrics.ObservePoll(uuid, time.Since(state.refreshStarted), msg.ResponseError)

	if state.refreshStale {
		// waiters are answered by the new fetch
		state.logger.Debug("device: discarding snapshot older than the last write")
		state.refreshStale = false
		state.startRefresh(ctx, nil)
		return
	}

	if msg.HasResponseError() {
		state.lastError = &domain.UpdateFailedError{UUID: uuid, Err: msg.ResponseError}
		state.available = false
		state.logger.Warn("device: update failed", zap.Error(msg.ResponseError))
	} else {
		snapshot := msg.Snapshot
		if msg.DataPointError != nil {
			// a failed data point read keeps the previous readings
			snapshot.DataPoint = state.state.Snapshot.DataPoint
		}
		state.state.Snapshot = snapshot
		state.state.ObserveChildLockKind()
		state.available = true
		state.lastError = nil
		state.lastUpdate = time.Now()
		state.metrics.ObserveState(state.state)
	}
	state.publish()

	for _, waiter := range state.refreshWaiters {
		ctx.Send(waiter, domain.RefreshResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: state.lastError,
			},
			State: state.state,
		})
	}
	state.refreshWaiters = nil
}

func (state *DeviceCoordinatorActor) startWrite(ctx actor.Context, cmd domain.DeviceCommandRequest) {
	replyTo := ForRequest(cmd).ReplyTo(ctx)
	attribute, value, err := domain.AttributeWrite(cmd, state.state)
	if err != nil {
		state.logger.Error("device@default invalid command", zap.String("command", cmd.DeviceCommand()), zap.Error(err))
		if replyTo != nil {
			ctx.Send(replyTo, domain.DeviceCommandResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
				Command: cmd.DeviceCommand(),
			})
		}
		return
	}
	state.pendingWrite = &pendingWrite{
		command:   cmd,
		attribute: attribute,
		value:     value,
		replyTo:   replyTo,
	}
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.blueairActor, domain.WriteAttributeRequest{
		UUID:      state.state.ID(),
		Attribute: attribute,
		Value:     value,
	}, state.requestTimeout()), func(err error) any {
		return domain.WriteAttributeResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
		}
	})
	state.behavior.BecomeStacked(state.WaitingWriteReceive)
}

func (state *DeviceCoordinatorActor) publish() {
	state.eventStream.Publish(domain.DeviceStateEvent{
		State:     state.state,
		Available: state.available,
		Err:       state.lastError,
	})
}

func (state *DeviceCoordinatorActor) stateResponse() domain.GetDeviceStateResponse {
	return domain.GetDeviceStateResponse{
		ActorResponseMixIn: domain.ActorResponseMixIn{
			ResponseError: state.lastError,
		},
		State:      state.state,
		Available:  state.available,
		LastUpdate: state.lastUpdate,
	}
}

// requestTimeout leaves the adapter room to report its own timeout first.
func (state *DeviceCoordinatorActor) requestTimeout() time.Duration {
	return state.config.Blueair.UpdateTimeout() + 2*time.Second
}
