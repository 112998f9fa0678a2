package msp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	version "github.com/hashicorp/go-version"

	"mspmon/internal/fcversion"
)

// MultiType is the airframe type reported by MSP_IDENT.
type MultiType uint8

var multiTypeNames = map[MultiType]string{
	1:  "TRI",
	2:  "QUADP",
	3:  "QUADX",
	4:  "BI",
	5:  "GIMBAL",
	6:  "Y6",
	7:  "HEX6",
	8:  "FLYING_WING",
	9:  "Y4",
	10: "HEX6X",
	11: "OCTOX8",
	12: "OCTOFLATP",
	13: "OCTOFLATX",
	14: "AIRPLANE",
	15: "HELI_120_CCPM",
	16: "HELI_90_DEG",
	17: "VTAIL4",
	18: "HEX6H",
	21: "DUALCOPTER",
	22: "SINGLECOPTER",
}

func (m MultiType) String() string {
	if name, ok := multiTypeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("unknown multitype %d", uint8(m))
}

// IdentMessage is returned in response to MSP_IDENT
type IdentMessage struct {
	Version    uint8
	MultiType  MultiType
	MSPVersion uint8
	Capability uint32
}

// DecodeIdent decodes an MSP_IDENT payload.
func DecodeIdent(payload []byte) (*IdentMessage, error) {
	const (
		expectedSize = 7
	)
	if len(payload) < expectedSize {
		return nil, fmt.Errorf("invalid %s payload size %d, expecting %d", CmdIdent, len(payload), expectedSize)
	}
	var m IdentMessage
	if err := binary.Read(bytes.NewReader(payload), binary.LittleEndian, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// FirmwareVersion returns the firmware version as a
// semantic version string.
func (m *IdentMessage) FirmwareVersion() string {
	return fcversion.String(m.Version)
}

// CheckMinVersion returns an error if the firmware is older than min.
func (m *IdentMessage) CheckMinVersion(min string) error {
	minVer, err := version.NewVersion(min)
	if err != nil {
		return fmt.Errorf("invalid minimum version %q: %v", min, err)
	}
	fcVer := version.Must(version.NewVersion(m.FirmwareVersion()))
	if fcVer.LessThan(minVer) {
		return fmt.Errorf("flight controller runs MultiWii %s, at least %s is required", fcVer, minVer)
	}
	return nil
}

// Sensor is a bit in the MSP_STATUS sensor mask.
type Sensor uint16

const (
	SensorAcc Sensor = 1 << iota
	SensorBaro
	SensorMag
	SensorGPS
	SensorSonar
)

var sensorNames = []struct {
	s    Sensor
	name string
}{
	{SensorAcc, "ACC"},
	{SensorBaro, "BARO"},
	{SensorMag, "MAG"},
	{SensorGPS, "GPS"},
	{SensorSonar, "SONAR"},
}

// StatusMessage is returned in response to MSP_STATUS
type StatusMessage struct {
	CycleTime  uint16
	I2CErrors  uint16
	Sensors    Sensor
	Flags      uint32
	CurrentSet uint8
}

// DecodeStatus decodes an MSP_STATUS payload. Firmwares before 2.2
// don't send the current set, which is left as zero.
func DecodeStatus(payload []byte) (*StatusMessage, error) {
	const (
		minSize = 10
		size    = 11
	)
	if len(payload) < minSize {
		return nil, fmt.Errorf("invalid %s payload size %d, expecting at least %d", CmdStatus, len(payload), minSize)
	}
	data := payload
	if len(data) < size {
		data = append(append([]byte(nil), payload...), 0)
	}
	var m StatusMessage
	if err := binary.Read(bytes.NewReader(data[:size]), binary.LittleEndian, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Has returns whether the sensor s is present.
func (m *StatusMessage) Has(s Sensor) bool {
	return m.Sensors&s != 0
}

// SensorNames returns the names of the detected sensors
func (m *StatusMessage) SensorNames() string {
	var names []string
	for _, v := range sensorNames {
		if m.Has(v.s) {
			names = append(names, v.name)
		}
	}
	return strings.Join(names, ",")
}
