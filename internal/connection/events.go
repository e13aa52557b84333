package connection

import "time"

// loopEvent is anything the manager's event loop applies. The set is closed.
type loopEvent interface {
	isLoopEvent()
}

// Caller requests.
type connectCmd struct{ url string }
type closeCmd struct{}
type stopRetryCmd struct{}
type shutdownCmd struct{}

// retryFired is pushed by the reconnect timer.
type retryFired struct{ seq uint64 }

// Socket lifecycle, tagged with the attempt generation that produced it.
type socketOpened struct{ gen uint64 }

type socketFrame struct {
	gen        uint64
	data       []byte
	receivedAt time.Time
}

type socketError struct {
	gen uint64
	err error
}

type socketClosed struct{ gen uint64 }

func (connectCmd) isLoopEvent()   {}
func (closeCmd) isLoopEvent()     {}
func (stopRetryCmd) isLoopEvent() {}
func (shutdownCmd) isLoopEvent()  {}
func (retryFired) isLoopEvent()   {}
func (socketOpened) isLoopEvent() {}
func (socketFrame) isLoopEvent()  {}
func (socketError) isLoopEvent()  {}
func (socketClosed) isLoopEvent() {}
