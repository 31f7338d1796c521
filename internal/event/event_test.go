package event

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/log"
)

func TestPublishReachesSubscribers(t *testing.T) {
	em := NewEventManager(log.NewNopLogger())

	var removed, added atomic.Int32
	em.Subscribe(MindmapRemoved, func(e Event) {
		if data, ok := e.Data.(MindmapEvent); ok && data.MindmapID == "m1" {
			removed.Add(1)
		}
	})
	em.Subscribe(MindmapAdded, func(Event) { added.Add(1) })

	em.Publish(Event{Type: MindmapRemoved, Data: MindmapEvent{MindmapID: "m1"}})
	em.Wait()

	assert.Equal(t, int32(1), removed.Load())
	assert.Equal(t, int32(0), added.Load())
}

func TestPublishRecoversFromPanickingHandler(t *testing.T) {
	em := NewEventManager(log.NewNopLogger())

	var calls atomic.Int32
	em.Subscribe(HistoryUndone, func(Event) { panic("handler failure") })
	em.Subscribe(HistoryUndone, func(Event) { calls.Add(1) })

	em.Publish(Event{Type: HistoryUndone})
	em.Wait()

	assert.Equal(t, int32(1), calls.Load())
}
