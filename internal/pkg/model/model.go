package model

// State is the instance/value pair reported for a capability or property.
type State struct {
	Instance string `json:"instance" yaml:"instance"`
	Value    any    `json:"value" yaml:"value"`
}

type Capability struct {
	Type        CapabilityType `json:"type" yaml:"type"`
	Retrievable *bool          `json:"retrievable,omitempty" yaml:"retrievable,omitempty"`
	Reportable  *bool          `json:"reportable,omitempty" yaml:"reportable,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	State       *State         `json:"state,omitempty" yaml:"state,omitempty"`
}

// Instance resolves the instance a capability reports under.
func (c Capability) Instance() string {
	if c.State != nil && c.State.Instance != "" {
		return c.State.Instance
	}
	if i, ok := c.Parameters["instance"].(string); ok && i != "" {
		return i
	}
	return defaultInstances[c.Type]
}

type Property struct {
	Type        PropertyType   `json:"type" yaml:"type"`
	Retrievable *bool          `json:"retrievable,omitempty" yaml:"retrievable,omitempty"`
	Reportable  *bool          `json:"reportable,omitempty" yaml:"reportable,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	State       *State         `json:"state,omitempty" yaml:"state,omitempty"`
}

func (p Property) Instance() string {
	if p.State != nil && p.State.Instance != "" {
		return p.State.Instance
	}
	if i, ok := p.Parameters["instance"].(string); ok {
		return i
	}
	return ""
}

type DeviceInfo struct {
	Manufacturer string `json:"manufacturer,omitempty" yaml:"manufacturer,omitempty"`
	Model        string `json:"model,omitempty" yaml:"model,omitempty"`
	HwVersion    string `json:"hw_version,omitempty" yaml:"hw_version,omitempty"`
	SwVersion    string `json:"sw_version,omitempty" yaml:"sw_version,omitempty"`
}

// DeviceSnapshot is a point in time copy of a device, safe to serialise and share.
type DeviceSnapshot struct {
	ID           string       `json:"id"`
	Name         string       `json:"name,omitempty"`
	Description  string       `json:"description,omitempty"`
	Room         string       `json:"room,omitempty"`
	Type         string       `json:"type,omitempty"`
	Capabilities []Capability `json:"capabilities"`
	Properties   []Property   `json:"properties"`
	DeviceInfo   *DeviceInfo  `json:"device_info,omitempty"`

	// Raw holds the last raw transport value per instance.
	Raw map[string]string `json:"-"`
}

// States strips the snapshot down to the state report shape.
func (d DeviceSnapshot) States() DeviceState {
	out := DeviceState{
		ID:           d.ID,
		Capabilities: []CapabilityState{},
		Properties:   []PropertyState{},
	}
	for _, c := range d.Capabilities {
		if c.State == nil {
			continue
		}
		out.Capabilities = append(out.Capabilities, CapabilityState{Type: c.Type, State: *c.State})
	}
	for _, p := range d.Properties {
		if p.State == nil {
			continue
		}
		out.Properties = append(out.Properties, PropertyState{Type: p.Type, State: *p.State})
	}
	return out
}

// ################################
// state callback

type CallbackRequest struct {
	TS      int64           `json:"ts"`
	Payload CallbackPayload `json:"payload"`
}

type CallbackPayload struct {
	UserID  string        `json:"user_id"`
	Devices []DeviceState `json:"devices"`
}

type DeviceState struct {
	ID           string            `json:"id"`
	Capabilities []CapabilityState `json:"capabilities,omitempty"`
	Properties   []PropertyState   `json:"properties,omitempty"`
	ErrorCode    string            `json:"error_code,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
}

type CapabilityState struct {
	Type  CapabilityType `json:"type"`
	State State          `json:"state"`
}

type PropertyState struct {
	Type  PropertyType `json:"type"`
	State State        `json:"state"`
}

// CallbackResponse is returned by the platform for state callbacks.
type CallbackResponse struct {
	RequestID    string `json:"request_id"`
	Status       string `json:"status"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// ################################
