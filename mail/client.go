package mail

import (
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"strings"
	"time"
)

const DefaultDialTimeout = 10 * time.Second

// ErrTLSRequired indicates the server does not advertise STARTTLS while
// the client configuration requires it.
var ErrTLSRequired = errors.New("server does not support starttls")

// ErrAuthUnsupported indicates an unknown authentication mechanism.
var ErrAuthUnsupported = errors.New("unsupported auth mechanism")

// Mechanism names an SMTP authentication mechanism.
type Mechanism string

const (
	AuthPlain Mechanism = "PLAIN"
	AuthLogin Mechanism = "LOGIN"
)

// Auth holds SMTP credentials.
type Auth struct {
	Mechanism Mechanism
	Username  string
	Password  string
}

// ClientConfig contains configuration options for an SMTP client.
type ClientConfig struct {
	// HeloName is the name announced in EHLO. Default is "localhost".
	HeloName string
	// DialTimeout bounds the TCP connect. Default is 10s.
	DialTimeout time.Duration
	// TLSConfig is used for STARTTLS and implicit TLS sessions.
	TLSConfig *tls.Config
	// RequireTLS fails the session before authentication when the server
	// does not offer STARTTLS. Ignored for implicit TLS connections.
	RequireTLS bool
	// Auth enables authentication when non-nil.
	Auth *Auth
}

func (c *ClientConfig) applyDefaults() {
	if c.HeloName == "" {
		c.HeloName = "localhost"
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
}

// ProtocolError is a non-2xx/3xx SMTP reply.
type ProtocolError struct {
	Code int
	Msg  string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("smtp: %d %s", e.Code, e.Msg)
}

// Client is an SMTP protocol client bound to a single session.
type Client struct {
	text       *textproto.Conn
	conn       net.Conn
	config     *ClientConfig
	serverName string
	ext        map[string]string
	tls        bool
}

// Dial opens a plaintext SMTP session to addr ("host:port"). Use
// StartTLS or RequireTLS to upgrade the session.
func Dial(addr string, config *ClientConfig) (*Client, error) {
	if config == nil {
		config = &ClientConfig{}
	}
	config.applyDefaults()

	conn, err := net.DialTimeout("tcp", addr, config.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}

	return newClient(conn, addr, config, false)
}

// DialTLS opens an implicit TLS (SMTPS) session to addr.
func DialTLS(addr string, config *ClientConfig) (*Client, error) {
	if config == nil {
		config = &ClientConfig{}
	}
	config.applyDefaults()

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address %s: %w", addr, err)
	}

	tlsConfig := config.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{ServerName: host}
	}

	d := &net.Dialer{Timeout: config.DialTimeout}
	conn, err := tls.DialWithDialer(d, "tcp", addr, tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}

	return newClient(conn, addr, config, true)
}

func newClient(conn net.Conn, addr string, config *ClientConfig, secured bool) (*Client, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	c := &Client{
		text:       textproto.NewConn(conn),
		conn:       conn,
		config:     config,
		serverName: host,
		tls:        secured,
	}

	// Greeting.
	if _, _, err := c.text.ReadResponse(220); err != nil {
		_ = conn.Close()
		return nil, wrapProtocol(err)
	}

	if err := c.hello(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	if !c.tls {
		if err := c.maybeStartTLS(); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	if config.Auth != nil {
		if err := c.auth(*config.Auth); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	return c, nil
}

// hello issues EHLO and records advertised extensions.
func (c *Client) hello() error {
	id, err := c.text.Cmd("EHLO %s", c.config.HeloName)
	if err != nil {
		return err
	}
	c.text.StartResponse(id)
	defer c.text.EndResponse(id)

	_, msg, err := c.text.ReadResponse(250)
	if err != nil {
		return wrapProtocol(err)
	}

	c.ext = make(map[string]string)
	lines := strings.Split(msg, "\n")
	for _, line := range lines[1:] {
		name, rest, _ := strings.Cut(line, " ")
		c.ext[strings.ToUpper(name)] = rest
	}

	return nil
}

// Extension reports whether the server advertises ext, returning its
// parameters.
func (c *Client) Extension(ext string) (bool, string) {
	if c.ext == nil {
		return false, ""
	}
	params, ok := c.ext[strings.ToUpper(ext)]

	return ok, params
}

func (c *Client) maybeStartTLS() error {
	ok, _ := c.Extension("STARTTLS")
	if !ok {
		if c.config.RequireTLS {
			return ErrTLSRequired
		}

		return nil
	}

	if err := c.cmd(220, "STARTTLS"); err != nil {
		return err
	}

	tlsConfig := c.config.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{ServerName: c.serverName}
	}

	tlsConn := tls.Client(c.conn, tlsConfig)
	if err := tlsConn.Handshake(); err != nil {
		return fmt.Errorf("starttls handshake: %w", err)
	}

	c.conn = tlsConn
	c.text = textproto.NewConn(tlsConn)
	c.tls = true

	// Extensions must be re-read on the secured channel.
	return c.hello()
}

func (c *Client) auth(a Auth) error {
	switch a.Mechanism {
	case AuthPlain:
		resp := base64.StdEncoding.EncodeToString(
			[]byte("\x00" + a.Username + "\x00" + a.Password),
		)

		return c.cmd(235, "AUTH PLAIN %s", resp)
	case AuthLogin:
		if err := c.cmd(334, "AUTH LOGIN"); err != nil {
			return err
		}
		if err := c.cmd(334, "%s", base64.StdEncoding.EncodeToString([]byte(a.Username))); err != nil {
			return err
		}

		return c.cmd(235, "%s", base64.StdEncoding.EncodeToString([]byte(a.Password)))
	default:
		return fmt.Errorf("%w: %s", ErrAuthUnsupported, a.Mechanism)
	}
}

// Send transmits msg in a single mail transaction.
func (c *Client) Send(msg *Message) error {
	encoded, err := msg.Encode()
	if err != nil {
		return err
	}

	if err := c.cmd(250, "MAIL FROM:<%s>", msg.From); err != nil {
		return err
	}

	for _, rcpt := range msg.Recipients() {
		if err := c.cmd(250, "RCPT TO:<%s>", rcpt); err != nil {
			return fmt.Errorf("recipient %s: %w", rcpt, err)
		}
	}

	if err := c.cmd(354, "DATA"); err != nil {
		return err
	}

	w := c.text.DotWriter()
	if _, err := w.Write([]byte(encoded)); err != nil {
		_ = w.Close()
		return fmt.Errorf("writing message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finishing message body: %w", err)
	}

	_, _, err = c.text.ReadResponse(250)

	return wrapProtocol(err)
}

// Noop sends a NOOP, useful as a session health check.
func (c *Client) Noop() error {
	return c.cmd(250, "NOOP")
}

// Quit ends the session and closes the connection.
func (c *Client) Quit() error {
	if err := c.cmd(221, "QUIT"); err != nil {
		_ = c.text.Close()
		return err
	}

	return c.text.Close()
}

// Close drops the connection without the QUIT exchange.
func (c *Client) Close() error {
	return c.text.Close()
}

// cmd sends a command and checks the reply against expectCode.
func (c *Client) cmd(expectCode int, format string, args ...any) error {
	id, err := c.text.Cmd(format, args...)
	if err != nil {
		return err
	}
	c.text.StartResponse(id)
	defer c.text.EndResponse(id)

	_, _, err = c.text.ReadResponse(expectCode)

	return wrapProtocol(err)
}

// wrapProtocol converts textproto errors to ProtocolError.
func wrapProtocol(err error) error {
	if err == nil {
		return nil
	}

	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		return &ProtocolError{Code: tpErr.Code, Msg: tpErr.Msg}
	}

	return err
}
