package model

// Binding ties a capability or property instance to the topic carrying its raw state.
type Binding struct {
	Instance string `json:"instance" yaml:"instance"`
	State    string `json:"state" yaml:"state"` // topic the device publishes state on.
	Set      string `json:"set,omitempty" yaml:"set,omitempty"`
}

type CustomData struct {
	MQTT []Binding `json:"mqtt" yaml:"mqtt"`
}
