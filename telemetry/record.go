package telemetry

import (
	"strconv"
	"strings"
)

// Record is one emitted telemetry line: ordered field names with
// their values.
type Record struct {
	Names     []string
	Values    []float64
	Precision int
}

func (r *Record) add(name string, v float64) {
	r.Names = append(r.Names, name)
	r.Values = append(r.Values, v)
}

// Strings returns the values formatted with the record precision.
func (r Record) Strings() []string {
	s := make([]string, len(r.Values))
	for ii, v := range r.Values {
		s[ii] = strconv.FormatFloat(v, 'f', r.Precision, 64)
	}
	return s
}

// Format joins the formatted values with sep.
func (r Record) Format(sep string) string {
	return strings.Join(r.Strings(), sep)
}

// Rounded returns the values rounded to the record precision, the
// same way Strings does.
func (r Record) Rounded() []float64 {
	out := make([]float64, len(r.Values))
	for ii, s := range r.Strings() {
		out[ii], _ = strconv.ParseFloat(s, 64)
	}
	return out
}

// Map returns the rounded values keyed by field name.
func (r Record) Map() map[string]float64 {
	m := make(map[string]float64, len(r.Names))
	for ii, v := range r.Rounded() {
		m[r.Names[ii]] = v
	}
	return m
}

// FieldNames returns the names of the fields a record assembled
// with cfg contains, in order.
func FieldNames(cfg *Config) []string {
	var s Snapshot
	rec, _ := Assemble(&s, true, 0, 0, cfg)
	return rec.Names
}

// Assemble builds the record for a completed cycle. It returns false,
// and no record, when the cycle's data was not available for every
// enabled category.
func Assemble(s *Snapshot, available bool, cycleSeconds, elapsedSeconds float64, cfg *Config) (Record, bool) {
	if !available {
		return Record{}, false
	}
	rec := Record{Precision: cfg.Precision}
	rec.add("cycle", cycleSeconds)
	rec.add("elapsed", elapsedSeconds)
	for _, c := range recordOrder {
		if !cfg.Enabled(c) {
			continue
		}
		switch c {
		case Attitude:
			rec.add("angle_x", s.AngleX)
			rec.add("angle_y", s.AngleY)
			rec.add("heading", s.Heading)
		case RC:
			rec.add("roll", s.Roll)
			rec.add("pitch", s.Pitch)
			rec.add("yaw", s.Yaw)
			rec.add("throttle", s.Throttle)
		case Altitude:
			rec.add("altitude", s.Altitude)
		case Motors:
			for ii, v := range s.Motors {
				rec.add("motor"+strconv.Itoa(ii+1), v)
			}
		case RawIMU:
			for _, a := range []struct {
				prefix string
				v      Axes
			}{{"acc", s.Acc}, {"gyro", s.Gyro}, {"mag", s.Mag}} {
				rec.add(a.prefix+"_x", a.v.X)
				rec.add(a.prefix+"_y", a.v.Y)
				rec.add(a.prefix+"_z", a.v.Z)
			}
		}
	}
	return rec, true
}
