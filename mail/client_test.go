package mail

import (
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// smtpSession records what a fake server observed during one session.
type smtpSession struct {
	mu       sync.Mutex
	helo     string
	authLine string
	from     string
	rcpts    []string
	data     string
	quit     bool
}

// startFakeSMTP runs a minimal scripted SMTP server for one session.
// rejectRcpt causes every RCPT command to be refused with 550.
func startFakeSMTP(t *testing.T, rejectRcpt bool) (string, *smtpSession) {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	session := &smtpSession{}

	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()

		text := textproto.NewConn(conn)
		_ = text.PrintfLine("220 fake.example ESMTP ready")

		for {
			line, err := text.ReadLine()
			if err != nil {
				return
			}

			verb := strings.ToUpper(line)
			session.mu.Lock()
			switch {
			case strings.HasPrefix(verb, "EHLO"):
				session.helo = line
				session.mu.Unlock()
				_ = text.PrintfLine("250-fake.example")
				_ = text.PrintfLine("250-AUTH PLAIN LOGIN")
				_ = text.PrintfLine("250 SIZE 1048576")
				continue
			case strings.HasPrefix(verb, "AUTH PLAIN"):
				session.authLine = line
				session.mu.Unlock()
				_ = text.PrintfLine("235 authenticated")
				continue
			case verb == "AUTH LOGIN":
				session.mu.Unlock()
				_ = text.PrintfLine("334 VXNlcm5hbWU6")
				user, _ := text.ReadLine()
				_ = text.PrintfLine("334 UGFzc3dvcmQ6")
				pass, _ := text.ReadLine()
				session.mu.Lock()
				session.authLine = user + " " + pass
				session.mu.Unlock()
				_ = text.PrintfLine("235 authenticated")
				continue
			case strings.HasPrefix(verb, "MAIL FROM:"):
				session.from = line
				session.mu.Unlock()
				_ = text.PrintfLine("250 ok")
				continue
			case strings.HasPrefix(verb, "RCPT TO:"):
				session.rcpts = append(session.rcpts, line)
				session.mu.Unlock()
				if rejectRcpt {
					_ = text.PrintfLine("550 mailbox unavailable")
				} else {
					_ = text.PrintfLine("250 ok")
				}
				continue
			case verb == "DATA":
				session.mu.Unlock()
				_ = text.PrintfLine("354 end with <CRLF>.<CRLF>")
				body, err := text.ReadDotBytes()
				if err != nil {
					return
				}
				session.mu.Lock()
				session.data = string(body)
				session.mu.Unlock()
				_ = text.PrintfLine("250 queued")
				continue
			case verb == "NOOP":
				session.mu.Unlock()
				_ = text.PrintfLine("250 ok")
				continue
			case verb == "QUIT":
				session.quit = true
				session.mu.Unlock()
				_ = text.PrintfLine("221 bye")
				return
			default:
				session.mu.Unlock()
				_ = text.PrintfLine("502 command not implemented")
				continue
			}
		}
	}()

	return l.Addr().String(), session
}

func testMessage() *Message {
	m := NewMessage()
	m.From = "sender@example.com"
	m.To = []string{"to@example.com"}
	m.Bcc = []string{"hidden@example.com"}
	m.Subject = "test"
	m.Body = "body text"

	return m
}

func TestClientSend(t *testing.T) {
	addr, session := startFakeSMTP(t, false)

	c, err := Dial(addr, &ClientConfig{HeloName: "client.example"})
	require.NoError(t, err)

	ok, params := c.Extension("SIZE")
	require.True(t, ok)
	require.Equal(t, "1048576", params)

	require.NoError(t, c.Send(testMessage()))
	require.NoError(t, c.Quit())

	session.mu.Lock()
	defer session.mu.Unlock()

	require.Equal(t, "EHLO client.example", session.helo)
	require.Equal(t, "MAIL FROM:<sender@example.com>", session.from)
	require.Equal(t,
		[]string{"RCPT TO:<to@example.com>", "RCPT TO:<hidden@example.com>"},
		session.rcpts,
	)
	require.Contains(t, session.data, "Subject: test")
	require.Contains(t, session.data, "body text")
	require.NotContains(t, session.data, "hidden@example.com")
	require.True(t, session.quit)
}

func TestClientAuthPlain(t *testing.T) {
	addr, session := startFakeSMTP(t, false)

	c, err := Dial(addr, &ClientConfig{
		Auth: &Auth{Mechanism: AuthPlain, Username: "user", Password: "pass"},
	})
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	session.mu.Lock()
	defer session.mu.Unlock()
	require.Contains(t, session.authLine, "AUTH PLAIN ")
}

func TestClientAuthLogin(t *testing.T) {
	addr, session := startFakeSMTP(t, false)

	c, err := Dial(addr, &ClientConfig{
		Auth: &Auth{Mechanism: AuthLogin, Username: "user", Password: "pass"},
	})
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	session.mu.Lock()
	defer session.mu.Unlock()
	// Base64 of "user" and "pass".
	require.Equal(t, "dXNlcg== cGFzcw==", session.authLine)
}

func TestClientAuthUnsupportedMechanism(t *testing.T) {
	addr, _ := startFakeSMTP(t, false)

	_, err := Dial(addr, &ClientConfig{
		Auth: &Auth{Mechanism: "CRAM-MD5", Username: "u", Password: "p"},
	})
	require.ErrorIs(t, err, ErrAuthUnsupported)
}

func TestClientRcptRejected(t *testing.T) {
	addr, _ := startFakeSMTP(t, true)

	c, err := Dial(addr, nil)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	err = c.Send(testMessage())
	require.Error(t, err)

	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	require.Equal(t, 550, protoErr.Code)
	require.Contains(t, err.Error(), "to@example.com")
}

func TestClientRequireTLSUnsupported(t *testing.T) {
	addr, _ := startFakeSMTP(t, false)

	_, err := Dial(addr, &ClientConfig{RequireTLS: true})
	require.ErrorIs(t, err, ErrTLSRequired)
}

func TestClientNoop(t *testing.T) {
	addr, _ := startFakeSMTP(t, false)

	c, err := Dial(addr, nil)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	require.NoError(t, c.Noop())
}

func TestClientSendInvalidMessage(t *testing.T) {
	addr, _ := startFakeSMTP(t, false)

	c, err := Dial(addr, nil)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	require.ErrorIs(t, c.Send(NewMessage()), ErrNoSender)
}
