package server

import (
	"net"
	"sync"

	"github.com/google/uuid"
)

// Conn represents a client connection on the server side.
type Conn struct {
	Conn    net.Conn   // underlying network connection.
	ID      string     // unique connection identifier.
	server  *Server    // reference to parent server.
	writeMu sync.Mutex // serializes concurrent writes.
}

// init assigns a connection ID and configures TCP keepalive settings.
func (sc *Conn) init() {
	sc.ID = uuid.NewString()

	if tcpConn, ok := sc.Conn.(*net.TCPConn); ok {
		if sc.server.config.KeepAliveInterval > 0 {
			_ = tcpConn.SetKeepAlive(true)
			_ = tcpConn.SetKeepAlivePeriod(sc.server.config.KeepAliveInterval)
		}
	}
}
