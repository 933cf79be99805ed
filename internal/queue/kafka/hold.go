package kafka

import (
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// fetchControl is the part of *kgo.Client a holder drives.
type fetchControl interface {
	PauseFetchPartitions(map[string][]int32) map[string][]int32
	ResumeFetchPartitions(map[string][]int32)
	SetOffsets(map[string]map[int32]kgo.EpochOffset)
}

type topicPartition struct {
	topic     string
	partition int32
}

// holder parks partitions whose next record is a retry that is not due yet.
// A held partition is rewound to that record and paused; a timer resumes it.
// Other partitions owned by the member keep flowing meanwhile.
type holder struct {
	ctl   fetchControl
	after func(time.Duration, func()) *time.Timer

	mu     sync.Mutex
	timers map[topicPartition]*time.Timer
}

func newHolder(ctl fetchControl) *holder {
	return &holder{ctl: ctl, after: time.AfterFunc, timers: map[topicPartition]*time.Timer{}}
}

// held reports whether records of the partition must be skipped for now.
// A skipped record is fetched again after the partition resumes.
func (h *holder) held(topic string, partition int32) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.timers[topicPartition{topic, partition}]
	return ok
}

// hold rewinds the partition of rec to rec and pauses it for d.
func (h *holder) hold(rec *kgo.Record, d time.Duration) {
	tp := topicPartition{rec.Topic, rec.Partition}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.timers[tp]; ok {
		return
	}

	h.ctl.SetOffsets(map[string]map[int32]kgo.EpochOffset{
		rec.Topic: {rec.Partition: {Epoch: rec.LeaderEpoch, Offset: rec.Offset}},
	})
	h.ctl.PauseFetchPartitions(map[string][]int32{rec.Topic: {rec.Partition}})
	h.timers[tp] = h.after(d, func() { h.release(tp) })
}

func (h *holder) release(tp topicPartition) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.timers[tp]; !ok {
		return
	}
	delete(h.timers, tp)
	h.ctl.ResumeFetchPartitions(map[string][]int32{tp.topic: {tp.partition}})
}

// stop cancels pending resumes. Paused partitions stay paused until the
// client closes.
func (h *holder) stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for tp, t := range h.timers {
		t.Stop()
		delete(h.timers, tp)
	}
}
