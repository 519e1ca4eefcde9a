package subscription

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/model"
)

type fakeSource struct {
	id       string
	bindings []model.Binding
}

func (f fakeSource) ID() string                { return f.id }
func (f fakeSource) Bindings() []model.Binding { return f.bindings }

func sources() []fakeSource {
	return []fakeSource{
		{id: "lamp-1", bindings: []model.Binding{
			{Instance: "on", State: "home/lamp1/state"},
			{Instance: "brightness", State: "home/lamp1/brightness"},
			{Instance: "color", Set: "home/lamp1/color/set"},
		}},
		{id: "lamp-2", bindings: []model.Binding{
			{Instance: "on", State: "Home/Lamp1/State"},
		}},
		{id: "sensor-1", bindings: []model.Binding{
			{Instance: "temperature", State: "home/sensor1/temperature"},
		}},
	}
}

func TestBuild(t *testing.T) {
	idx := Build(sources())

	assert.Equal(t, 4, idx.Len())
	assert.Equal(t, []string{
		"home/lamp1/state",
		"home/lamp1/brightness",
		"Home/Lamp1/State",
		"home/sensor1/temperature",
	}, idx.Topics())
}

func TestTopics_Deduplicated(t *testing.T) {
	idx := Build([]fakeSource{
		{id: "a", bindings: []model.Binding{{Instance: "on", State: "shared/topic"}}},
		{id: "b", bindings: []model.Binding{{Instance: "on", State: "shared/topic"}}},
	})
	assert.Equal(t, []string{"shared/topic"}, idx.Topics())
	assert.Len(t, idx.Resolve("shared/topic"), 2)
}

func TestBuild_Deterministic(t *testing.T) {
	a := Build(sources())
	b := Build(sources())
	assert.Equal(t, a.Topics(), b.Topics())
	assert.Equal(t, a.Resolve("home/lamp1/state"), b.Resolve("home/lamp1/state"))
}

func TestResolve(t *testing.T) {
	idx := Build(sources())

	tests := map[string]struct {
		topic string
		want  []Subscription
	}{
		"exact match": {
			topic: "home/sensor1/temperature",
			want:  []Subscription{{DeviceID: "sensor-1", Instance: "temperature", Topic: "home/sensor1/temperature"}},
		},
		"case insensitive": {
			topic: "HOME/SENSOR1/TEMPERATURE",
			want:  []Subscription{{DeviceID: "sensor-1", Instance: "temperature", Topic: "home/sensor1/temperature"}},
		},
		"shared across devices": {
			topic: "home/LAMP1/state",
			want: []Subscription{
				{DeviceID: "lamp-1", Instance: "on", Topic: "home/lamp1/state"},
				{DeviceID: "lamp-2", Instance: "on", Topic: "Home/Lamp1/State"},
			},
		},
		"no match": {
			topic: "home/garage/door",
			want:  nil,
		},
		"command topics are not routed": {
			topic: "home/lamp1/color/set",
			want:  nil,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, idx.Resolve(tt.topic))
		})
	}
}

func TestResolve_DoesNotMutateIndex(t *testing.T) {
	idx := Build(sources())
	subs := idx.Resolve("home/lamp1/state")
	subs[0].DeviceID = "changed"

	assert.Equal(t, "lamp-1", idx.Resolve("home/lamp1/state")[0].DeviceID)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "home/lamp1/state", Normalize("Home/LAMP1/State"))
}
