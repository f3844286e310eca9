package catalog

import "github.com/google/jsonschema-go/jsonschema"

// Fan speed and range values accepted by the controller firmware.
var (
	speeds      = []any{"LOW", "HIGH"}
	timerRanges = []any{"LOW", "MEDIUM", "HIGH"}
	modes       = []any{"Idle", "Timer", "TH"}
)

func fanCommands() []*Command {
	return []*Command{
		{
			Name:        "connect",
			Description: "Connect to the fan and log in with the paired phone id",
			Schema: object(map[string]*jsonschema.Schema{
				"address":  str("BLE address of the fan"),
				"phone_id": str("Paired phone id (16 hex characters)"),
			}, "address", "phone_id"),
		},
		{Name: "disconnect", Description: "Disconnect from the fan"},
		{Name: "get_status", Description: "Full status: info, state, parameters, version and presets"},
		{Name: "get_state", Description: "Current work state: mode, range, temperature and humidity"},
		{Name: "get_info", Description: "Fan name, model and serial number"},
		{Name: "get_version", Description: "Firmware version"},
		{Name: "get_params", Description: "Current parameters and thresholds"},
		{Name: "get_presets", Description: "Preset profiles stored on the controller"},
		{Name: "get_remain", Description: "Time remaining on the timer"},
		{
			Name:        "set_mode",
			Description: "Set the operating mode",
			Schema: object(map[string]*jsonschema.Schema{
				"mode": enum("Operating mode", modes...),
			}, "mode"),
		},
		{
			Name:        "set_speed",
			Description: "Run continuously at the given speed",
			Schema: object(map[string]*jsonschema.Schema{
				"speed": enum("Fan speed", speeds...),
			}, "speed"),
		},
		{
			Name:        "set_timer",
			Description: "Run for a fixed time, then return to idle",
			Schema: object(map[string]*jsonschema.Schema{
				"hours":   integer("Hours to run", 0, 12),
				"minutes": integer("Minutes to run", 0, 59),
				"speed":   enum("Fan speed", timerRanges...),
			}),
		},
		{
			Name:        "set_preset",
			Description: "Apply a preset profile by name and switch to TH mode",
			Schema: object(map[string]*jsonschema.Schema{
				"name": str("Preset name, matched case-insensitively"),
			}, "name"),
		},
		{
			Name:        "set_thresholds",
			Description: "Set temperature and humidity thresholds",
			Schema: object(map[string]*jsonschema.Schema{
				"temp_high": integer("High temperature threshold", 0, 255),
				"temp_med":  integer("Medium temperature threshold", 0, 255),
				"temp_low":  integer("Low temperature threshold", 0, 255),
				"hum_high":  integer("High humidity threshold", 0, 255),
				"hum_low":   integer("Low humidity threshold", 0, 255),
				"hum_range": enum("Speed used in humidity mode", timerRanges...),
				"index":     integer("Preset slot", 0, 255),
			}),
		},
		{
			Name:        "pair",
			Description: "Pair with a fan in pairing mode",
			OneShot:     true,
			Schema: object(map[string]*jsonschema.Schema{
				"address":  str("BLE address of the fan"),
				"phone_id": str("Phone id to register; generated when empty"),
			}, "address"),
		},
		{
			Name:        "raw",
			Description: "Send a raw controller API call",
			Schema: object(map[string]*jsonschema.Schema{
				"api":    str("Controller API name, e.g. GetWorkState"),
				"params": {Type: "object", Description: "API parameters"},
			}, "api"),
		},
		{
			Name:        "scan",
			Description: "Scan for QuietCool fans over BLE",
			OneShot:     true,
			Schema: object(map[string]*jsonschema.Schema{
				"timeout": number("Discovery window in seconds", 1, 60),
			}),
		},
		{Name: "generate_id", Description: "Generate a new random phone id", OneShot: true},
		{Name: "ping", Description: "Check that the worker is responsive"},
	}
}

func object(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	if props == nil {
		props = map[string]*jsonschema.Schema{}
	}

	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

func str(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

func enum(description string, values ...any) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description, Enum: values}
}

func integer(description string, lo, hi float64) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: description, Minimum: &lo, Maximum: &hi}
}

func number(description string, lo, hi float64) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "number", Description: description, Minimum: &lo, Maximum: &hi}
}
