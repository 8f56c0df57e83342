package entry

import (
	"context"
	"errors"

	"github.com/berfenger/blueair2mqtt/pkg/blueair"
	"go.uber.org/zap"
)

type FlowResultType string

const (
	RESULT_FORM         FlowResultType = "form"
	RESULT_CREATE_ENTRY FlowResultType = "create_entry"
	RESULT_ABORT        FlowResultType = "abort"

	STEP_USER            = "user"
	STEP_CUSTOM_ENTRY_ID = "custom_entry_id"

	ERROR_CANNOT_CONNECT = "cannot_connect"
	ERROR_INVALID_AUTH   = "invalid_auth"
	ERROR_UNKNOWN        = "unknown"

	ABORT_ALREADY_CONFIGURED = "already_configured"
	ABORT_NO_DEVICES         = "no_devices"
)

type UserInput struct {
	Username         string
	Password         string
	PrefixDeviceName bool
	CustomDeviceId   bool
}

type FlowResult struct {
	Type   FlowResultType
	StepId string
	// Errors is keyed by "base" like the form it belongs to.
	Errors map[string]string
	// Fields lists the input keys of a custom entry id form.
	Fields []string
	Reason string
	Entry  *Entry
}

// Flow walks a user through the creation of the config entry: credentials
// first, then optionally one custom entity id per device.
type Flow struct {
	client     blueair.Client
	configured func(uniqueId string) bool
	logger     *zap.Logger

	account UserAccount
	devices []blueair.Device
}

func NewFlow(client blueair.Client, configured func(uniqueId string) bool, logger *zap.Logger) *Flow {
	if configured == nil {
		configured = func(string) bool { return false }
	}
	return &Flow{client: client, configured: configured, logger: logger}
}

// CustomEntryIdField is the form key of the custom entity id of a device.
func CustomEntryIdField(d blueair.Device) string {
	return d.Name + "-" + d.UUID
}

func (f *Flow) StepUser(ctx context.Context, input *UserInput) FlowResult {
	if input == nil {
		return FlowResult{Type: RESULT_FORM, StepId: STEP_USER}
	}

	if err := f.client.Authenticate(ctx, input.Username, input.Password); err != nil {
		reason := flowError(err)
		if reason == ERROR_UNKNOWN {
			f.logger.Error("flow@user unexpected exception", zap.Error(err))
		}
		return FlowResult{Type: RESULT_FORM, StepId: STEP_USER, Errors: map[string]string{"base": reason}}
	}
	devices, err := f.client.GetDevices(ctx)
	if err != nil {
		return FlowResult{Type: RESULT_FORM, StepId: STEP_USER, Errors: map[string]string{"base": flowError(err)}}
	}

	f.account = UserAccount{
		Username:         input.Username,
		Password:         input.Password,
		PrefixDeviceName: input.PrefixDeviceName,
		CustomDeviceId:   input.CustomDeviceId,
	}
	f.devices = devices

	if input.CustomDeviceId {
		return f.StepCustomEntryId(ctx, nil)
	}
	return f.createEntry(nil)
}

func (f *Flow) StepCustomEntryId(_ context.Context, input map[string]string) FlowResult {
	if input == nil {
		if len(f.devices) == 0 {
			return FlowResult{Type: RESULT_ABORT, Reason: ABORT_NO_DEVICES}
		}
		fields := make([]string, 0, len(f.devices))
		for _, d := range f.devices {
			fields = append(fields, CustomEntryIdField(d))
		}
		return FlowResult{Type: RESULT_FORM, StepId: STEP_CUSTOM_ENTRY_ID, Fields: fields}
	}

	entryIds := map[string]string{}
	for _, d := range f.devices {
		if id := input[CustomEntryIdField(d)]; id != "" {
			entryIds[d.UUID] = id
		}
	}
	return f.createEntry(entryIds)
}

func (f *Flow) createEntry(entryIds map[string]string) FlowResult {
	if f.configured(f.account.Username) {
		return FlowResult{Type: RESULT_ABORT, Reason: ABORT_ALREADY_CONFIGURED}
	}
	e := New(Data{UserAccount: f.account, EntryIds: entryIds})
	return FlowResult{Type: RESULT_CREATE_ENTRY, Entry: &e}
}

func flowError(err error) string {
	switch {
	case errors.Is(err, blueair.ErrUnauthorized):
		return ERROR_INVALID_AUTH
	case errors.Is(err, blueair.ErrConnection):
		return ERROR_CANNOT_CONNECT
	default:
		return ERROR_UNKNOWN
	}
}
