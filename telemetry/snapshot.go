package telemetry

// Axes holds a three axis sensor reading.
type Axes struct {
	X, Y, Z float64
}

// Snapshot is the latest successfully decoded value of every
// telemetry field. Fields are only ever replaced by newer valid
// decodes, never cleared.
type Snapshot struct {
	// Degrees
	AngleX  float64
	AngleY  float64
	Heading float64

	// Raw channel values, usually 1000-2000us
	Roll     float64
	Pitch    float64
	Yaw      float64
	Throttle float64

	// Meters
	Altitude float64

	Motors [4]float64

	Acc  Axes
	Gyro Axes
	Mag  Axes
}
