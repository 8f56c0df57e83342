package entry

import (
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

const (
	VERSION       = 1
	MINOR_VERSION = 2

	CONF_USERNAME           = "username"
	CONF_PASSWORD           = "password"
	CONF_PREFIX_DEVICE_NAME = "prefix_device_name"
	CONF_CUSTOM_DEVICE_ID   = "custom_device_id"

	DATA_USER_ACCOUNT = "user_account"
	DATA_ENTRY_ID     = "entry_id"
)

var (
	ErrFutureVersion  = errors.New("config entry was written by a newer version")
	ErrUnknownVersion = errors.New("config entry version has no migration")
	ErrEntryNotFound  = errors.New("config entry not found")
	ErrMalformedEntry = errors.New("config entry is malformed")
)

// Entry is the persisted config entry of one Blueair account. Data keeps
// its raw shape so that older layouts can still be migrated.
type Entry struct {
	Version      int            `yaml:"version"`
	MinorVersion int            `yaml:"minor_version"`
	Title        string         `yaml:"title,omitempty"`
	UniqueId     string         `yaml:"unique_id,omitempty"`
	Data         map[string]any `yaml:"data"`
}

type UserAccount struct {
	Username         string `mapstructure:"username"`
	Password         string `mapstructure:"password"`
	PrefixDeviceName bool   `mapstructure:"prefix_device_name"`
	CustomDeviceId   bool   `mapstructure:"custom_device_id"`
}

type Data struct {
	UserAccount UserAccount `mapstructure:"user_account"`
	// EntryIds maps a device uuid to its custom entity id.
	EntryIds map[string]string `mapstructure:"entry_id"`
}

func New(data Data) Entry {
	return Entry{
		Version:      VERSION,
		MinorVersion: MINOR_VERSION,
		Title:        fmt.Sprintf("BlueAir %s", data.UserAccount.Username),
		UniqueId:     data.UserAccount.Username,
		Data:         data.ToMap(),
	}
}

func (d Data) ToMap() map[string]any {
	var entryIds any
	if d.EntryIds != nil {
		ids := make(map[string]any, len(d.EntryIds))
		for uuid, id := range d.EntryIds {
			ids[uuid] = id
		}
		entryIds = ids
	}
	return map[string]any{
		DATA_USER_ACCOUNT: map[string]any{
			CONF_USERNAME:           d.UserAccount.Username,
			CONF_PASSWORD:           d.UserAccount.Password,
			CONF_PREFIX_DEVICE_NAME: d.UserAccount.PrefixDeviceName,
			CONF_CUSTOM_DEVICE_ID:   d.UserAccount.CustomDeviceId,
		},
		DATA_ENTRY_ID: entryIds,
	}
}

// CustomEntityId returns the override configured for a device, if any.
func (d Data) CustomEntityId(uuid string) string {
	return d.EntryIds[uuid]
}

// Decode reads the typed data of an entry in the current layout.
func (e Entry) Decode() (*Data, error) {
	if e.Version != VERSION || e.MinorVersion != MINOR_VERSION {
		return nil, fmt.Errorf("%w: expected %d.%d, got %d.%d", ErrMalformedEntry, VERSION, MINOR_VERSION, e.Version, e.MinorVersion)
	}
	var data Data
	if err := mapstructure.Decode(e.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEntry, err)
	}
	if data.UserAccount.Username == "" || data.UserAccount.Password == "" {
		return nil, fmt.Errorf("%w: missing credentials", ErrMalformedEntry)
	}
	return &data, nil
}
