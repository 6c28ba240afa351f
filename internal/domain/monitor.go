package domain

import "strconv"

// ValueKind is the numeric type of a monitorable value.
type ValueKind int

const (
	KindInteger ValueKind = iota
	KindReal
)

func (k ValueKind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	default:
		return "unknown"
	}
}

// Monitorable names, in /monitor field order.
const (
	MonDimmer          = "dimmer"
	MonServers         = "servers"
	MonActiveServers   = "active_servers"
	MonMaxServers      = "max_servers"
	MonUtilization     = "utilization"
	MonBasicRT         = "basic_rt"
	MonBasicThroughput = "basic_throughput"
	MonOptRT           = "opt_rt"
	MonOptThroughput   = "opt_throughput"
	MonArrivalRate     = "arrival_rate"
)

// UtilizationSample is the utilization of one server slot.
type UtilizationSample struct {
	ServerName string
	Value      float64 // always >= 0
}

// Reading is one scalar monitorable value captured in a Snapshot.
type Reading struct {
	Name  string
	Kind  ValueKind
	Value float64
}

// Snapshot holds every monitorable value read exactly once for one request.
// Readings preserve registry order; the utilization slot is carried separately.
type Snapshot struct {
	Readings    []Reading
	Utilization []UtilizationSample
}

// Lookup returns the reading with the given name.
func (s *Snapshot) Lookup(name string) (Reading, bool) {
	for _, r := range s.Readings {
		if r.Name == name {
			return r, true
		}
	}
	return Reading{}, false
}

// RoundSignificant rounds f to six significant digits. Reported reals and
// dimmer comparisons both use this precision.
func RoundSignificant(f float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(f, 'g', 6, 64), 64)
	if err != nil || r == 0 {
		return 0
	}
	return r
}
