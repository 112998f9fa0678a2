package msp

import (
	"errors"
	"io"
	"net"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

const (
	tcpPrefix = "tcp:"

	// DefaultBaudRate is the MultiWii default for the MSP port
	DefaultBaudRate = 115200
)

// Link is an open byte stream to a flight controller. Reads return
// (0, nil) once the configured read timeout expires without data.
type Link interface {
	io.Reader
	io.Writer
	io.Closer
}

// LinkOptions configures Open.
type LinkOptions struct {
	BaudRate    int
	ReadTimeout time.Duration
}

type tcpLink struct {
	net.Conn
	timeout time.Duration
}

func (l *tcpLink) Read(p []byte) (int, error) {
	if l.timeout > 0 {
		if err := l.SetReadDeadline(time.Now().Add(l.timeout)); err != nil {
			return 0, err
		}
	}
	n, err := l.Conn.Read(p)
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return n, nil
	}
	return n, err
}

func openTCPLink(addr string, opts LinkOptions) (Link, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &tcpLink{Conn: conn, timeout: opts.ReadTimeout}, nil
}

func openSerialLink(port string, opts LinkOptions) (Link, error) {
	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	if mode.BaudRate == 0 {
		mode.BaudRate = DefaultBaudRate
	}
	p, err := serial.Open(portName(port), mode)
	if err != nil {
		return nil, err
	}
	if opts.ReadTimeout > 0 {
		if err := p.SetReadTimeout(opts.ReadTimeout); err != nil {
			p.Close()
			return nil, err
		}
	}
	return p, nil
}

// Open opens the link with the given name. Names starting with "tcp:"
// dial a serial to TCP bridge, anything else is a serial port.
func Open(name string, opts LinkOptions) (Link, error) {
	log.Debugf("opening link %s (%d baud, read timeout %s)", name, opts.BaudRate, opts.ReadTimeout)
	if strings.HasPrefix(name, tcpPrefix) {
		return openTCPLink(name[len(tcpPrefix):], opts)
	}
	return openSerialLink(name, opts)
}

// Flush discards any unread input buffered by the link, when
// the link supports it.
func Flush(l io.Reader) error {
	if f, ok := l.(interface{ ResetInputBuffer() error }); ok {
		return f.ResetInputBuffer()
	}
	return nil
}

var (
	tcpPorts []string
)

// AvailablePorts returns the list of ports in the system
// that can be used to connect to a flight controller
func AvailablePorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		var pe *serial.PortError
		if errors.As(err, &pe) && pe.Code() == serial.ErrorEnumeratingPorts {
			// This happens on Windows when there are
			// no serial ports
			return tcpPorts, nil
		}
		return nil, err
	}
	filtered := filterPorts(ports)
	filtered = append(filtered, tcpPorts...)
	return filtered, nil
}

func init() {
	if tp := os.Getenv("MSPMON_TCP_PORTS"); tp != "" {
		for _, v := range strings.Split(tp, ",") {
			tcpPorts = append(tcpPorts, tcpPrefix+v)
		}
	}
}
