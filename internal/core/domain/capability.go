package domain

import "strings"

const (
	MODEL_FOOBOT       = "foobot"
	MODEL_CLASSIC_280I = "classic_280i"
)

type Capabilities struct {
	HasTelemetry bool
	HasPM1PM10   bool
	HasFan       bool
}

// ClassifyModel maps a model string to the entities it can back.
// Classic models without the "i" suffix and the foobot report no telemetry
// nor controls; the foobot has no fan either.
func ClassifyModel(model string) Capabilities {
	if model == MODEL_FOOBOT {
		return Capabilities{}
	}
	legacyClassic := strings.HasPrefix(model, "classic") && !strings.HasSuffix(model, "i")
	return Capabilities{
		HasTelemetry: !legacyClassic,
		HasPM1PM10:   !legacyClassic && model != MODEL_CLASSIC_280I,
		HasFan:       true,
	}
}
