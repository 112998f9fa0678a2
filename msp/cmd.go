package msp

import "fmt"

// Cmd is an MSP command code.
type Cmd uint16

const (
	CmdIdent    Cmd = 100
	CmdStatus   Cmd = 101
	CmdRawIMU   Cmd = 102
	CmdMotor    Cmd = 104
	CmdRC       Cmd = 105
	CmdAttitude Cmd = 108
	CmdAltitude Cmd = 109
	CmdSetRawRC Cmd = 200
)

var cmdNames = map[Cmd]string{
	CmdIdent:    "MSP_IDENT",
	CmdStatus:   "MSP_STATUS",
	CmdRawIMU:   "MSP_RAW_IMU",
	CmdMotor:    "MSP_MOTOR",
	CmdRC:       "MSP_RC",
	CmdAttitude: "MSP_ATTITUDE",
	CmdAltitude: "MSP_ALTITUDE",
	CmdSetRawRC: "MSP_SET_RAW_RC",
}

func (c Cmd) String() string {
	if name, ok := cmdNames[c]; ok {
		return name
	}
	return fmt.Sprintf("MSP_%d", uint16(c))
}
