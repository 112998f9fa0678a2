package telemetry

import (
	"fmt"
	"strings"

	"mspmon/msp"
)

// Category is a class of telemetry requested with a single MSP command.
type Category int

const (
	Attitude Category = iota + 1
	Altitude
	RC
	Motors
	RawIMU
)

// PollOrder is the order categories are requested in within a cycle.
var PollOrder = []Category{Attitude, Altitude, RC, Motors, RawIMU}

// recordOrder is the order category fields appear in a Record.
var recordOrder = []Category{Attitude, RC, Altitude, Motors, RawIMU}

var categoryNames = map[Category]string{
	Attitude: "attitude",
	Altitude: "altitude",
	RC:       "rc",
	Motors:   "motors",
	RawIMU:   "raw_imu",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("unknown category %d", int(c))
}

// Cmd returns the MSP command that requests c.
func (c Category) Cmd() msp.Cmd {
	switch c {
	case Attitude:
		return msp.CmdAttitude
	case Altitude:
		return msp.CmdAltitude
	case RC:
		return msp.CmdRC
	case Motors:
		return msp.CmdMotor
	case RawIMU:
		return msp.CmdRawIMU
	}
	panic(fmt.Errorf("no command for %v", c))
}

// ParseCategory returns the category with the given name.
func ParseCategory(name string) (Category, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "imu" {
		return RawIMU, nil
	}
	for c, v := range categoryNames {
		if v == n {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown telemetry category %q", name)
}
