// Package mail implements the SMTP/SMTPS service of the join framework:
// a message builder and a protocol client supporting STARTTLS, implicit
// TLS and PLAIN/LOGIN authentication.
package mail

import (
	"errors"
	"fmt"
	"mime"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const crlf = "\r\n"

// ErrNoRecipients indicates a message without any recipient.
var ErrNoRecipients = errors.New("message has no recipients")

// ErrNoSender indicates a message without a From address.
var ErrNoSender = errors.New("message has no sender")

// Message is an outgoing mail message.
type Message struct {
	From    string
	To      []string
	Cc      []string
	Bcc     []string
	Subject string
	Body    string

	headers map[string]string
}

// NewMessage creates an empty message.
func NewMessage() *Message {
	return &Message{headers: make(map[string]string)}
}

// SetHeader sets a custom header, overriding any generated value of the
// same name.
func (m *Message) SetHeader(name, value string) {
	if m.headers == nil {
		m.headers = make(map[string]string)
	}
	m.headers[name] = value
}

// Recipients returns the complete envelope recipient list: To, Cc and Bcc.
func (m *Message) Recipients() []string {
	out := make([]string, 0, len(m.To)+len(m.Cc)+len(m.Bcc))
	out = append(out, m.To...)
	out = append(out, m.Cc...)
	out = append(out, m.Bcc...)

	return out
}

// Validate checks the message satisfies the minimal envelope requirements.
func (m *Message) Validate() error {
	if strings.TrimSpace(m.From) == "" {
		return ErrNoSender
	}
	if len(m.Recipients()) == 0 {
		return ErrNoRecipients
	}

	return nil
}

// Encode renders the message in wire format with CRLF line endings.
// Date and Message-ID headers are generated unless set explicitly.
// Bcc recipients appear in the envelope only, never in the headers.
func (m *Message) Encode() (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}

	var b strings.Builder

	writeHeader := func(name, value string) {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString(crlf)
	}

	writeHeader("From", m.From)
	if len(m.To) > 0 {
		writeHeader("To", strings.Join(m.To, ", "))
	}
	if len(m.Cc) > 0 {
		writeHeader("Cc", strings.Join(m.Cc, ", "))
	}
	writeHeader("Subject", mime.QEncoding.Encode("utf-8", m.Subject))

	if _, ok := m.headers["Date"]; !ok {
		writeHeader("Date", time.Now().Format(time.RFC1123Z))
	}
	if _, ok := m.headers["Message-ID"]; !ok {
		writeHeader("Message-ID", fmt.Sprintf("<%s@join>", uuid.NewString()))
	}
	if _, ok := m.headers["MIME-Version"]; !ok {
		writeHeader("MIME-Version", "1.0")
	}
	if _, ok := m.headers["Content-Type"]; !ok {
		writeHeader("Content-Type", `text/plain; charset="utf-8"`)
	}

	// Custom headers in deterministic order.
	names := make([]string, 0, len(m.headers))
	for name := range m.headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		writeHeader(name, m.headers[name])
	}

	b.WriteString(crlf)
	body := strings.ReplaceAll(m.Body, crlf, "\n")
	b.WriteString(strings.ReplaceAll(body, "\n", crlf))

	return b.String(), nil
}
