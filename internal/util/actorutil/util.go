package actorutil

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/berfenger/blueair2mqtt/internal/core/domain"
	"github.com/berfenger/blueair2mqtt/internal/mqtt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
	"go.uber.org/zap"
)

func PipeToSelfWithRecover(ctx actor.Context, future *actor.Future, mapFn func(error) any) {
	ctx.ReenterAfter(future, func(msg any, err error) {
		if err != nil {
			ctx.Send(ctx.Self(), mapFn(err))
			return
		}
		ctx.Send(ctx.Self(), msg)
	})
}

func NewActorSystemWithZapLogger(logger *zap.Logger) *actor.ActorSystem {
	stdOutLogger := zap.NewStdLog(logger)

	var slogLevel slog.Level = slog.LevelInfo
	switch logger.Level() {
	case zap.DebugLevel:
		slogLevel = slog.LevelDebug
	case zap.InfoLevel:
		slogLevel = slog.LevelInfo
	case zap.WarnLevel:
		slogLevel = slog.LevelWarn
	case zap.ErrorLevel:
		slogLevel = slog.LevelError
	case zap.PanicLevel:
		slogLevel = slog.LevelError
	}

	return actor.NewActorSystem(actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {

		// create a new logger
		return slog.New(tint.NewHandler(stdOutLogger.Writer(), &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.DateTime,
		}))
	}))
}

func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	return logger.With(zap.String("actor", actorName))
}

// ParsedMQTTCommandToCommand maps a command received on the entity with the
// given projection key to a device command.
func ParsedMQTTCommandToCommand(cmd mqtt.ParsedMQTTCommand, key string) (domain.DeviceCommandRequest, error) {
	switch {
	case cmd.Command == mqtt.COMMAND_FAN && key == domain.ENTITY_FAN:
		switch cmd.Param {
		case "":
			// turning on without a percentage resumes the middle speed
			if cmd.Payload == mqtt.MQTT_PAYLOAD_ON {
				return domain.SetFanSpeedRequest{Speed: "2"}, nil
			} else if cmd.Payload == mqtt.MQTT_PAYLOAD_OFF {
				return domain.SetFanSpeedRequest{Speed: "0"}, nil
			}
		case mqtt.FAN_PARAM_PERCENTAGE:
			percentage, err := strconv.Atoi(cmd.Payload)
			if err != nil {
				return nil, err
			}
			return domain.SetFanSpeedRequest{Speed: domain.FanSpeedForPercentage(percentage)}, nil
		case mqtt.FAN_PARAM_PRESET_MODE:
			return domain.SetFanModeRequest{Mode: cmd.Payload}, nil
		}
	case cmd.Command == mqtt.COMMAND_SWITCH && key == domain.ENTITY_CHILD_LOCK:
		if cmd.Payload == mqtt.MQTT_PAYLOAD_ON || cmd.Payload == mqtt.MQTT_PAYLOAD_OFF {
			return domain.SetChildLockRequest{Locked: cmd.Payload == mqtt.MQTT_PAYLOAD_ON}, nil
		}
	case cmd.Command == mqtt.COMMAND_NUMBER && key == domain.ENTITY_BRIGHTNESS:
		value, err := strconv.ParseFloat(cmd.Payload, 64)
		if err != nil {
			return nil, err
		}
		return domain.SetBrightnessRequest{Brightness: int(value)}, nil
	}
	return nil, fmt.Errorf("unsupported %s command %q on %s", cmd.Command, cmd.Payload, key)
}
