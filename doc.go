// Package join is the core of the join network framework: asynchronous,
// framed message delivery over TCP, connection pooling, and a
// high-throughput request/response broker.
//
// Features:
//   - Message framing: Read and Write automatically handle a 2-byte length
//     header and payload framing for byte slices.
//   - Connection Pool: NewPool creates a pool of reusable connections with
//     context-aware GetWithContext, health checks, and graceful shutdown.
//   - Broker: NewBroker coordinates concurrent request dispatch and response
//     matching by automatically prepending a 4-byte Task ID header.
//   - Logging: the Logger interface decouples the core from any particular
//     logging library; NewZerologAdapter bridges rs/zerolog.
//
// The framework's remaining modules live in subpackages: server (embeddable
// TCP/TLS server), fabric (interfaces, ARP, DNS resolution), crypto
// (digests, AEAD ciphers, signatures), data (JSON, MessagePack,
// compression), web (HTTP/HTTPS) and mail (SMTP/SMTPS).
//
// Basic Client Example:
//
//	factory := func(addr string) (join.PoolItem, error) {
//	    // create and configure net.Conn
//	}
//	pool := join.NewPool(5, factory, "localhost:9000", nil)
//	broker := join.NewBroker([]join.Pool{pool}, 3, nil, nil)
//	go broker.Start()
//	defer broker.Close()
//	req := []byte("hello")
//	resp, err := broker.Send(&req)
//	if err != nil {
//	    // handle error
//	}
//
// Basic Server Example:
//
//	handler := server.HandlerFunc(func(c *server.Conn, req []byte) ([]byte, error) {
//	    return req, nil
//	})
//	srv, err := server.New(":9000", handler, nil)
//	if err != nil {
//	    // handle error
//	}
//	go srv.Start()
//	defer srv.Stop()
package join
