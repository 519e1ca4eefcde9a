package model

import "strings"

type CapabilityType string

func (ct CapabilityType) String() string {
	return string(ct)
}

const (
	OnOff        CapabilityType = "devices.capabilities.on_off"
	ColorSetting CapabilityType = "devices.capabilities.color_setting"
	Mode         CapabilityType = "devices.capabilities.mode"
	Range        CapabilityType = "devices.capabilities.range"
	Toggle       CapabilityType = "devices.capabilities.toggle"
	VideoStream  CapabilityType = "devices.capabilities.video_stream"
)

type PropertyType string

func (pt PropertyType) String() string {
	return string(pt)
}

const (
	FloatProperty PropertyType = "devices.properties.float"
	EventProperty PropertyType = "devices.properties.event"
)

// ValueKind describes how a raw transport payload is turned into a state value.
type ValueKind int

const (
	KindString ValueKind = iota
	KindBool
	KindFloat
	KindInt
	KindObject
)

// colour instances carrying an integer value, everything else is an object.
var integerColorInstances = []string{"rgb", "temperature_k"}

// CapabilityKind returns the value kind reported for a capability instance.
func CapabilityKind(ct CapabilityType, instance string) ValueKind {
	switch ct {
	case OnOff, Toggle:
		return KindBool
	case Range:
		return KindFloat
	case ColorSetting:
		for _, i := range integerColorInstances {
			if strings.EqualFold(i, instance) {
				return KindInt
			}
		}
		return KindObject
	default:
		return KindString
	}
}

// PropertyKind returns the value kind reported for a property.
func PropertyKind(pt PropertyType) ValueKind {
	if pt == FloatProperty {
		return KindFloat
	}
	return KindString
}

// defaultInstances is used when a descriptor names no instance.
var defaultInstances = map[CapabilityType]string{
	OnOff: "on",
}
