package runner

import "time"

// Stream carries Outcomes from workers to a single consumer. Producers never
// block on a slow consumer: outcomes are queued without bound. C is closed
// once every worker has exited and the queue is drained.
type Stream struct {
	in      chan Outcome
	out     chan Outcome
	started time.Time
}

func newStream(started time.Time) *Stream {
	s := &Stream{
		in:      make(chan Outcome),
		out:     make(chan Outcome),
		started: started,
	}
	go s.pump()
	return s
}

// C returns the receive side of the stream.
func (s *Stream) C() <-chan Outcome {
	return s.out
}

// Started returns the monotonic instant the run began.
func (s *Stream) Started() time.Time {
	return s.started
}

// publish hands an outcome to the stream. Publishing after close panics.
func (s *Stream) publish(o Outcome) {
	s.in <- o
}

func (s *Stream) close() {
	close(s.in)
}

func (s *Stream) pump() {
	defer close(s.out)

	var queue []Outcome
	in := s.in
	for in != nil || len(queue) > 0 {
		var out chan<- Outcome
		var next Outcome
		if len(queue) > 0 {
			out = s.out
			next = queue[0]
		}
		select {
		case o, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			queue = append(queue, o)
		case out <- next:
			queue[0] = Outcome{}
			queue = queue[1:]
		}
	}
}
