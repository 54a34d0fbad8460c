package runtimeio

import "errors"

const (
	// requestBuffer bounds the outbound queue. Submissions are issued once
	// per UI frame, so the buffer only fills if the engine has stalled.
	requestBuffer = 256
	// updateBuffer bounds the inbound queue drained by the controller's
	// per-frame poll.
	updateBuffer = 256
)

// ErrQueueFull is returned when the engine has stopped draining requests.
var ErrQueueFull = errors.New("runtime request queue is full")

// IO is the channel pair connecting the controller and the engine. The
// controller owns Send/ReceiveAll; the engine owns Requests/Push.
type IO struct {
	requests chan Request
	updates  chan Update
}

// New returns a connected channel pair with default buffering.
func New() *IO {
	return &IO{
		requests: make(chan Request, requestBuffer),
		updates:  make(chan Update, updateBuffer),
	}
}

// Send enqueues a request without blocking the submitting control flow.
// Delivery to the engine happens on the engine's own scheduling.
func (io *IO) Send(req Request) error {
	select {
	case io.requests <- req:
		return nil
	default:
		return ErrQueueFull
	}
}

// ReceiveAll drains and returns every update that is ready, in arrival
// order, without blocking. Callers poll it on their own cycle.
func (io *IO) ReceiveAll() []Update {
	var out []Update
	for {
		select {
		case u := <-io.updates:
			out = append(out, u)
		default:
			return out
		}
	}
}

// Requests exposes the engine-side receive channel.
func (io *IO) Requests() <-chan Request {
	return io.requests
}

// Push delivers an update to the controller. It blocks when the controller
// has fallen more than a full buffer behind; results are never dropped.
func (io *IO) Push(u Update) {
	io.updates <- u
}
