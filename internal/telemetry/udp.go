package telemetry

import (
	"fmt"
	"net"
)

// UDPSink sends every result line as one datagram.
type UDPSink struct {
	group string
	conn  *net.UDPConn
}

// NewUDPSink creates a UDP sender for addr. An empty addr yields a sink
// that drops everything.
func NewUDPSink(addr, group string) (*UDPSink, error) {
	if group == "" {
		group = DefaultGroup
	}
	if addr == "" {
		return &UDPSink{group: group}, nil
	}
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &UDPSink{group: group, conn: conn}, nil
}

// Write sends the line for s.
func (u *UDPSink) Write(s Sample) error {
	if u == nil || u.conn == nil {
		return nil
	}
	_, err := u.conn.Write([]byte(Line(u.group, s.TimestampUS, s.Angle)))
	return err
}

// Close releases the UDP socket.
func (u *UDPSink) Close() error {
	if u == nil || u.conn == nil {
		return nil
	}
	return u.conn.Close()
}
