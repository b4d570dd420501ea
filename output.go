package beattrack

import "sync/atomic"

// Output is one published frame of the beat clock.
type Output struct {
	// T is the pipeline time the frame describes, in seconds.
	T float64

	// BPM is the current tempo of the output clock.
	BPM float64

	// Phase01 is the beat phase normalized to [0, 1), 0 at the beat
	// instant and wrapping once per beat.
	Phase01 float64

	// Tick is true on the frame where a beat boundary was crossed.
	Tick bool

	// Confidence is the tracker's confidence in the current tempo, in
	// [0, 1]. It is zero whenever the tracker is not locked.
	Confidence float64

	// Locked is true while the tempo hypothesis is verified.
	Locked bool

	// LockChanged is true on the frame where Locked flipped.
	LockChanged bool

	// Silent is true while the input carries no usable onset contrast.
	Silent bool
}

// Publisher shares the most recent Output between one producer and any
// number of concurrent readers without locking. The producer publishes a
// frame by value; readers always observe a complete frame, never a torn
// one. The sequence number lets a polling reader tell a fresh frame from
// a repeat.
type Publisher struct {
	current atomic.Pointer[publishedFrame]
}

type publishedFrame struct {
	out Output
	seq uint64
}

// NewPublisher creates a publisher holding a zero frame at sequence 0.
func NewPublisher() *Publisher {
	p := &Publisher{}
	p.current.Store(&publishedFrame{})
	return p
}

// Publish makes out the frame returned by subsequent Latest calls and
// advances the sequence number. Only one goroutine may publish.
func (p *Publisher) Publish(out Output) {
	seq := p.current.Load().seq + 1
	p.current.Store(&publishedFrame{out: out, seq: seq})
}

// Latest returns the most recently published frame and its sequence
// number. The number increases by one per publish, starting from 1.
func (p *Publisher) Latest() (Output, uint64) {
	f := p.current.Load()
	return f.out, f.seq
}
