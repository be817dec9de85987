package serialmux

import (
	"go.bug.st/serial"
)

// serialMode converts PortOptions to the go.bug.st/serial mode.
func serialMode(opts PortOptions) *serial.Mode {
	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
	}
	switch opts.Parity {
	case OddParity:
		mode.Parity = serial.OddParity
	case EvenParity:
		mode.Parity = serial.EvenParity
	default:
		mode.Parity = serial.NoParity
	}
	switch opts.StopBits {
	case TwoStopBits:
		mode.StopBits = serial.TwoStopBits
	default:
		mode.StopBits = serial.OneStopBit
	}
	return mode
}

// NewRealSerialMux creates a SerialMux backed by a real serial port at the
// given path using the provided options.
func NewRealSerialMux(path string, opts PortOptions) (*SerialMux[serial.Port], error) {
	port, err := serial.Open(path, serialMode(opts))
	if err != nil {
		return nil, err
	}
	return New[serial.Port](port), nil
}
