package sensor

import (
	"fmt"
	"time"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"
)

// HCSR04 drives an HC-SR04 ultrasonic ranging module over two GPIO pins.
//
// Datasheet: https://cdn.sparkfun.com/datasheets/Sensors/Proximity/HCSR04.pdf
type HCSR04 struct {
	echoPin    gpio.PinIO
	triggerPin gpio.PinIO
	timeout    time.Duration
}

// NewHCSR04 initialises the GPIO host and returns a measurer for the module
// wired to the named echo and trigger pins. Pin names follow gpioreg.ByName
// conventions (the BCM number as a string on a Raspberry Pi). The timeout
// bounds each edge wait so a missing echo cannot stall the control loop.
func NewHCSR04(echo, trigger string, timeout time.Duration) (*HCSR04, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialise gpio host: %w", err)
	}

	s := &HCSR04{timeout: timeout}
	s.echoPin = gpioreg.ByName(echo)
	if s.echoPin == nil {
		return nil, fmt.Errorf("no GPIO echo pin named: %s", echo)
	}
	s.triggerPin = gpioreg.ByName(trigger)
	if s.triggerPin == nil {
		return nil, fmt.Errorf("no GPIO trigger pin named: %s", trigger)
	}

	if err := s.triggerPin.Out(gpio.Low); err != nil {
		return nil, err
	}
	if err := s.echoPin.In(gpio.PullDown, gpio.BothEdges); err != nil {
		return nil, err
	}
	return s, nil
}

// MeasureEcho triggers one ranging pulse and times the echo. Both edge waits
// are bounded by the configured timeout; ErrEchoTimeout is returned if either
// edge never arrives.
func (s *HCSR04) MeasureEcho() (time.Duration, error) {
	// Arm for the rising edge before pulsing the trigger so the start of
	// the timing signal cannot be missed.
	if err := s.echoPin.In(gpio.PullDown, gpio.RisingEdge); err != nil {
		return 0, err
	}

	// A 10µs high pulse on the trigger pin starts a measurement.
	s.triggerPin.Out(gpio.High)
	time.Sleep(10 * time.Microsecond)
	s.triggerPin.Out(gpio.Low)

	if ok := s.echoPin.WaitForEdge(s.timeout); !ok {
		return 0, ErrEchoTimeout
	}
	start := time.Now()

	if err := s.echoPin.In(gpio.PullDown, gpio.FallingEdge); err != nil {
		return 0, err
	}
	if ok := s.echoPin.WaitForEdge(s.timeout); !ok {
		return 0, ErrEchoTimeout
	}
	return time.Since(start), nil
}
