// Package subscription routes transport topics to the device instances bound to them.
package subscription

import (
	"strings"

	"github.com/samber/lo"

	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/model"
)

// Subscription records that instance of device DeviceID reports state on Topic.
type Subscription struct {
	DeviceID string
	Instance string
	Topic    string
}

// Source is anything that declares bindings, normally a *device.Device.
type Source interface {
	ID() string
	Bindings() []model.Binding
}

// Index maps normalized topics to the subscriptions interested in them.
// It is never modified after Build and is safe for concurrent reads.
type Index struct {
	byTopic map[string][]Subscription
	topics  []string
}

// Normalize is the single place topics are case folded.
func Normalize(topic string) string {
	return strings.ToLower(topic)
}

// Build indexes every binding of every source, in source order.
func Build[S Source](sources []S) *Index {
	idx := &Index{byTopic: make(map[string][]Subscription)}
	for _, src := range sources {
		for _, b := range src.Bindings() {
			if b.Instance == "" || b.State == "" {
				continue
			}
			key := Normalize(b.State)
			idx.topics = append(idx.topics, b.State)
			idx.byTopic[key] = append(idx.byTopic[key], Subscription{
				DeviceID: src.ID(),
				Instance: b.Instance,
				Topic:    b.State,
			})
		}
	}
	return idx
}

// Topics returns each distinct bound topic string in declaration order. Case
// variants are all kept because the broker matches topics case sensitively.
func (i *Index) Topics() []string {
	return lo.Uniq(i.topics)
}

// Resolve returns the subscriptions for topic, ignoring case. The result is a
// copy and is empty when nothing is bound to topic.
func (i *Index) Resolve(topic string) []Subscription {
	subs := i.byTopic[Normalize(topic)]
	if len(subs) == 0 {
		return nil
	}
	out := make([]Subscription, len(subs))
	copy(out, subs)
	return out
}

// Len is the number of subscriptions held.
func (i *Index) Len() int {
	return lo.SumBy(lo.Values(i.byTopic), func(subs []Subscription) int {
		return len(subs)
	})
}
