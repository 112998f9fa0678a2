package sink

import (
	"net"

	log "github.com/sirupsen/logrus"

	"mspmon/telemetry"
)

// UDP sends every record as a text datagram. Delivery is best
// effort: send failures are logged, never returned.
type UDP struct {
	conn *net.UDPConn
	sep  string
}

// NewUDP returns a sink sending to addr (host:port).
func NewUDP(addr string, sep string) (*UDP, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, err
	}
	if sep == "" {
		sep = telemetry.DefaultSeparator
	}
	return &UDP{conn: conn, sep: sep}, nil
}

func (u *UDP) Emit(rec telemetry.Record) error {
	if _, err := u.conn.Write([]byte(rec.Format(u.sep))); err != nil {
		log.Debugf("UDP %s: %v", u.conn.RemoteAddr(), err)
	}
	return nil
}

func (u *UDP) Close() error {
	return u.conn.Close()
}
