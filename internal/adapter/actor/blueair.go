package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/berfenger/blueair2mqtt/internal/core/domain"
	"github.com/berfenger/blueair2mqtt/internal/util/actorutil"
	"github.com/berfenger/blueair2mqtt/pkg/blueair"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/router"
	"go.uber.org/zap"
)

// BlueairActor serializes blocking calls to the Blueair cloud. Several of
// them behind a router form the bounded worker pool of the bridge.
type BlueairActor struct {
	behavior actor.Behavior
	stash    *actorutil.Stash
	client   blueair.Client
	timeout  time.Duration
	logger   *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewBlueairActor(client blueair.Client, timeout time.Duration, logger *zap.Logger) *BlueairActor {
	act := &BlueairActor{
		client:   client,
		timeout:  timeout,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger(domain.ACTOR_ID_BLUEAIR, logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

// NewBlueairPoolProps spawns workers round-robin over a shared client.
func NewBlueairPoolProps(client blueair.Client, workers int, timeout time.Duration, logger *zap.Logger) *actor.Props {
	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)
	return router.NewRoundRobinPool(workers,
		actor.WithProducer(func() actor.Actor {
			return NewBlueairActor(client, timeout, logger)
		}),
		actor.WithSupervisor(supervisor))
}

func (state *BlueairActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *BlueairActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("blueair@default started")
	case domain.ActorHealthRequest:
		state.logger.Debug("blueair@default ActorHealthRequest")
		authState := "unauthenticated"
		if state.client.IsAuthenticated() {
			authState = "authenticated"
		}
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_BLUEAIR,
			Healthy: true,
			State:   authState,
		})
	case domain.AuthenticateRequest:
		state.logger.Debug("blueair@default AuthenticateRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, func() (*domain.AuthenticateResponse, error) {
			return state.authenticate(msg.Username, msg.Password)
		}), mapTaskResult[domain.AuthenticateResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.AuthenticateResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(state.timeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingAPI)
	case domain.GetDevicesRequest:
		state.logger.Debug("blueair@default GetDevicesRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.getDevices),
			mapTaskResult[domain.GetDevicesResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetDevicesResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(state.timeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingAPI)
	case domain.FetchSnapshotRequest:
		state.logger.Debug("blueair@default FetchSnapshotRequest", zap.String("uuid", msg.UUID))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, func() (*domain.FetchSnapshotResponse, error) {
			return state.fetchSnapshot(msg.UUID)
		}), mapTaskResult[domain.FetchSnapshotResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.FetchSnapshotResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(state.timeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingAPI)
	case domain.WriteAttributeRequest:
		state.logger.Debug("blueair@default WriteAttributeRequest", zap.String("uuid", msg.UUID), zap.String("attribute", msg.Attribute))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTaskNoError(ctx, func() *domain.WriteAttributeResponse {
			a := state.writeAttribute(msg.UUID, msg.Attribute, msg.Value)
			return &a
		}), mapTaskResult[domain.WriteAttributeResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.WriteAttributeResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(state.timeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingAPI)
	default:
		state.logger.Debug("blueair@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *BlueairActor) WaitingAPI(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("blueair@WaitingAPI backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		if msg.replyTo != nil {
			ctx.Send(msg.replyTo, msg.message)
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("blueair@WaitingAPI stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (a *BlueairActor) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), a.timeout)
}

func (a *BlueairActor) authenticate(username, password string) (*domain.AuthenticateResponse, error) {
	ctx, cancel := a.context()
	defer cancel()
	if err := a.client.Authenticate(ctx, username, password); err != nil {
		a.logger.Error("blueair: authenticate", zap.Error(err))
		return nil, err
	}
	return &domain.AuthenticateResponse{}, nil
}

func (a *BlueairActor) getDevices() (*domain.GetDevicesResponse, error) {
	ctx, cancel := a.context()
	defer cancel()
	devices, err := a.client.GetDevices(ctx)
	if err != nil {
		a.logger.Error("blueair: get devices", zap.Error(err))
		return nil, err
	}
	return &domain.GetDevicesResponse{Devices: devices}, nil
}

// fetchSnapshot reads info, data point and attributes in that order. Only
// the data point is allowed to fail.
func (a *BlueairActor) fetchSnapshot(uuid string) (*domain.FetchSnapshotResponse, error) {
	ctx, cancel := a.context()
	defer cancel()

	info, err := a.client.GetInfo(ctx, uuid)
	if err != nil {
		return nil, fmt.Errorf("get info: %w", err)
	}
	dataPoint, dataPointErr := a.client.GetCurrentDataPoint(ctx, uuid)
	if dataPointErr != nil {
		a.logger.Debug("blueair: data point unavailable", zap.String("uuid", uuid), zap.Error(dataPointErr))
		dataPoint = nil
	}
	attributes, err := a.client.GetAttributes(ctx, uuid)
	if err != nil {
		return nil, fmt.Errorf("get attributes: %w", err)
	}
	return &domain.FetchSnapshotResponse{
		Snapshot: domain.Snapshot{
			Info:       info,
			DataPoint:  dataPoint,
			Attributes: attributes,
		},
		DataPointError: dataPointErr,
	}, nil
}

func (a *BlueairActor) writeAttribute(uuid, attribute string, value any) domain.WriteAttributeResponse {
	ctx, cancel := a.context()
	defer cancel()

	var err error
	switch attribute {
	case domain.ATTRIBUTE_BRIGHTNESS:
		brightness, ok := value.(int)
		if !ok {
			err = fmt.Errorf("brightness must be an int, got %T", value)
			break
		}
		err = a.client.SetBrightness(ctx, uuid, brightness)
	case domain.ATTRIBUTE_FAN_SPEED:
		err = a.client.SetFanSpeed(ctx, uuid, fmt.Sprint(value))
	case domain.ATTRIBUTE_MODE:
		err = a.client.SetFanMode(ctx, uuid, fmt.Sprint(value))
	case domain.ATTRIBUTE_CHILD_LOCK:
		err = a.client.SetChildLock(ctx, uuid, value)
	default:
		err = fmt.Errorf("%w: attribute %s", blueair.ErrUnsupported, attribute)
	}
	if err != nil {
		a.logger.Error("blueair: write attribute", zap.String("uuid", uuid), zap.String("attribute", attribute), zap.Error(err))
	}
	return domain.WriteAttributeResponse{
		ActorResponseMixIn: domain.ActorResponseMixIn{
			ResponseError: err,
		},
	}
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
