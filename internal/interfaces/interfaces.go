// Package interfaces provides internal interface definitions for go-adiv5.
// These are separate from the public interfaces to avoid circular imports
// between the main package and internal packages.
package interfaces

// RegKind distinguishes the four queueable register operations a
// transport must support.
type RegKind int

const (
	KindDPRead RegKind = iota
	KindDPWrite
	KindAPRead
	KindAPWrite
)

// Transport is the vtable a physical link driver (JTAG-DP, SW-DP)
// implements. The core never talks to a wire directly; every DP/AP
// register access goes through one of these four calls followed,
// eventually, by Run.
//
// ap is the AP index (0-255) for AP operations; it is ignored for DP
// operations. reg is the 8-bit register selector within the DP or AP
// register bank. dst may be nil for queued reads whose result the
// caller discards (used to drain pipeline stages).
type Transport interface {
	QueueDPRead(reg uint8, dst *uint32) error
	QueueDPWrite(reg uint8, value uint32) error
	QueueAPRead(ap uint8, reg uint8, dst *uint32) error
	QueueAPWrite(ap uint8, reg uint8, value uint32) error

	// Run flushes every queued operation synchronously, in FIFO
	// order, populating read destinations as it goes. A non-nil
	// error means everything queued after the failing operation was
	// discarded; the caller must reestablish DP state.
	Run() error
}

// Logger is the minimal logging surface the core writes through.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Observer receives telemetry from the transaction engine and block
// engine. Implementations must be safe to call from the single
// goroutine that owns a DAP (the core itself never calls concurrently,
// but an Observer may be shared across multiple DAPs).
type Observer interface {
	ObserveFlush(ops int, latencyNs uint64, success bool)
	ObserveOverrun()
	ObserveBlockTransfer(bytes uint64, latencyNs uint64, success bool)
	ObserveQueueDepth(depth int)
}
