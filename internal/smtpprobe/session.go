package smtpprobe

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/textproto"
	"strings"
	"time"
)

// reply is one parsed SMTP server response.
type reply struct {
	code int
	text string
}

// session wraps a single TCP connection to one MX host as a textproto
// conversation, grounded on the teacher's CheckVRFY which drives
// net/textproto directly instead of net/smtp — the raw reply code and text
// are exactly what the Reply Classifier needs and net/smtp discards both
// behind an opaque error.
type session struct {
	conn net.Conn
	tp   *textproto.Conn
	caps map[string]string
}

func newSession(conn net.Conn) *session {
	return &session{conn: conn, tp: textproto.NewConn(conn)}
}

func (s *session) close() {
	s.tp.Close()
}

func (s *session) setDeadline(d time.Time) {
	s.conn.SetDeadline(d)
}

func (s *session) readReply() (reply, error) {
	line, err := s.tp.ReadLine()
	if err != nil {
		return reply{}, err
	}
	code, text, ok := splitReplyLine(line)
	if !ok {
		return reply{}, fmt.Errorf("smtpprobe: malformed reply line %q", line)
	}
	lines := []string{text}
	for len(line) > 3 && line[3] == '-' {
		line, err = s.tp.ReadLine()
		if err != nil {
			return reply{}, err
		}
		_, cont, ok := splitReplyLine(line)
		if !ok {
			break
		}
		lines = append(lines, cont)
	}
	return reply{code: code, text: strings.Join(lines, " ")}, nil
}

func splitReplyLine(line string) (code int, text string, ok bool) {
	if len(line) < 3 {
		return 0, "", false
	}
	n := 0
	for i := 0; i < 3; i++ {
		c := line[i]
		if c < '0' || c > '9' {
			return 0, "", false
		}
		n = n*10 + int(c-'0')
	}
	rest := ""
	if len(line) > 4 {
		rest = line[4:]
	}
	return n, rest, true
}

func (s *session) readBanner() (reply, error) {
	return s.readReply()
}

func (s *session) cmd(format string, args ...any) (reply, error) {
	if _, err := s.tp.Cmd(format, args...); err != nil {
		return reply{}, err
	}
	return s.readReply()
}

// ehlo sends EHLO and records the advertised capabilities (STARTTLS,
// PIPELINING) for the caller to branch on.
func (s *session) ehlo(helloName string) (reply, error) {
	r, err := s.cmd("EHLO %s", helloName)
	if err != nil || r.code/100 != 2 {
		return r, err
	}
	s.caps = parseCaps(r.text)
	return r, nil
}

func parseCaps(text string) map[string]string {
	caps := make(map[string]string)
	for _, line := range strings.Split(text, " ") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		caps[strings.ToUpper(fields[0])] = strings.Join(fields[1:], " ")
	}
	return caps
}

func (s *session) supportsStartTLS() bool {
	_, ok := s.caps["STARTTLS"]
	return ok
}

// startTLS issues STARTTLS and, on success, wraps the connection in a TLS
// client and re-issues EHLO as the state machine requires (spec §4.4
// "[STARTTLS → EHLO]?" transition).
func (s *session) startTLS(serverName, helloName string) error {
	r, err := s.cmd("STARTTLS")
	if err != nil {
		return err
	}
	if r.code/100 != 2 {
		return fmt.Errorf("smtpprobe: STARTTLS rejected: %d %s", r.code, r.text)
	}
	tlsConn := tls.Client(s.conn, &tls.Config{ServerName: serverName})
	if err := tlsConn.Handshake(); err != nil {
		return fmt.Errorf("smtpprobe: TLS handshake failed: %w", err)
	}
	s.conn = tlsConn
	s.tp = textproto.NewConn(tlsConn)
	if _, err := s.ehlo(helloName); err != nil {
		return err
	}
	return nil
}

func (s *session) mailFrom(from string) (reply, error) {
	if from == "" {
		return s.cmd("MAIL FROM:<>")
	}
	return s.cmd("MAIL FROM:<%s>", from)
}

func (s *session) rcptTo(addr string) (reply, error) {
	return s.cmd("RCPT TO:<%s>", addr)
}

func (s *session) quit() {
	_, _ = s.cmd("QUIT")
}
