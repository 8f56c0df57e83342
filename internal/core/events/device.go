package events

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	. "github.com/berfenger/blueair2mqtt/internal/core/domain"

	"github.com/carlmjohnson/versioninfo"
)

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("blueair_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "ACasal",
		Model:        "Blueair2MQTT",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("Blueair2MQTT %s", md5HashShort(baseTopic)),
	}
}

func PurifierDevice(state DeviceState, bridgeDevice Device) Device {
	return Device{
		Id:           DeviceId(state.ID()),
		Name:         state.DeviceName(),
		Model:        state.Model(),
		Manufacturer: state.Manufacturer(),
		MAC:          state.MAC(),
		ViaDevice:    bridgeDevice.Id,
	}
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {
	return []GenericSensor{
		{
			EntityMixIn: EntityMixIn{
				Device:   bridgeDevice,
				Id:       SENSOR_ID_BRIDGE_STATE,
				Name:     "Connection state",
				UniqueId: uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
			},
			SensorType:     PLATFORM_BINARY_SENSOR,
			DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
			EntityCategory: ENTITY_CATEGORY_DIAGNOSTIC,
		},
	}
}

func BridgeOnlineEvent(online bool) any {
	return BridgeStateUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BRIDGE_STATE,
		},
		Value: online,
	}
}

func uniqueId(deviceId string, sensorId string) string {
	return fmt.Sprintf("%s_%s", deviceId, sensorId)
}

func md5HashShort(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])[:6]
}
