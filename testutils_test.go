// Package join_test provides tests for the join package.
package join_test

import (
	"errors"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"github.com/joinframework/join"
)

// waitGroupWithTimeout attempts to wait for a WaitGroup with a timeout.
// Returns true if the WaitGroup completed before timeout, false otherwise.
func waitGroupWithTimeout(wg *sync.WaitGroup, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// StartTestServer creates a TCP server for testing that echoes back any
// received framed messages. The returned cleanup function stops the server
// and waits for active connections.
func StartTestServer() (string, func() error, error) {
	quit := make(chan struct{})
	ready := make(chan struct{})

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, err
	}

	// Track active connections for clean shutdown
	var activeConnections sync.WaitGroup
	shutdownTimeout := 5 * time.Second

	var listenerMu sync.Mutex
	var listenerClosed bool

	go func() {
		close(ready)

		for {
			// Use a timeout on Accept to avoid blocking forever on shutdown
			listenerMu.Lock()
			if listenerClosed {
				listenerMu.Unlock()
				return
			}
			if tcpListener, ok := l.(*net.TCPListener); ok {
				_ = tcpListener.SetDeadline(time.Now().Add(500 * time.Millisecond))
			}
			listenerMu.Unlock()

			select {
			case <-quit:
				return
			default:
				conn, err := l.Accept()
				if err != nil {
					if errors.Is(err, net.ErrClosed) {
						return
					} else if os.IsTimeout(err) {
						continue
					}
					log.Printf("Test server accept error: %v", err)
					continue
				}

				activeConnections.Add(1)
				go func(conn net.Conn) {
					defer func() {
						_ = conn.Close()
						activeConnections.Done()
					}()

					if tcpConn, ok := conn.(*net.TCPConn); ok {
						_ = tcpConn.SetKeepAlive(true)
						_ = tcpConn.SetKeepAlivePeriod(2 * time.Second)
					}

					for {
						if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
							return
						}

						requestMsg, err := join.Read(conn)
						if err != nil {
							if err != io.EOF && !errors.Is(err, net.ErrClosed) &&
								!os.IsTimeout(err) {
								log.Printf("Test server read error: %v", err)
							}
							return
						}

						if err := conn.SetWriteDeadline(time.Now().Add(2 * time.Second)); err != nil {
							return
						}

						// Echo the message back
						if err := join.Write(conn, requestMsg); err != nil {
							if !errors.Is(err, net.ErrClosed) {
								log.Printf("Test server write error: %v", err)
							}
							return
						}

						if err := conn.SetDeadline(time.Time{}); err != nil {
							return
						}

						select {
						case <-quit:
							return
						default:
							continue
						}
					}
				}(conn)
			}
		}
	}()

	<-ready

	return l.Addr().String(), func() error {
		close(quit)

		listenerMu.Lock()
		listenerClosed = true
		err := l.Close()
		listenerMu.Unlock()

		if !waitGroupWithTimeout(&activeConnections, shutdownTimeout) {
			log.Printf("Timed out waiting for test server connections to close")
		}

		return err
	}, nil
}
