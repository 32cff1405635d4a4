package mailbox

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-imap/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gmailHeader = "Message-ID: <gm-42@retailer.com>\r\n\r\n"

// gmailIMAPServer answers one session the way Gmail does for a mailbox
// holding a single unread message with UID 42. It records every command
// it receives without the tag.
type gmailIMAPServer struct {
	mu       sync.Mutex
	commands []string
}

func (s *gmailIMAPServer) recorded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

func (s *gmailIMAPServer) serve(conn net.Conn) {
	defer conn.Close()

	r := bufio.NewReader(conn)
	write := func(lines ...string) {
		for _, l := range lines {
			fmt.Fprintf(conn, "%s\r\n", l)
		}
	}

	write("* OK [CAPABILITY IMAP4rev1 X-GM-EXT-1] Gimap ready")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		parts := strings.SplitN(strings.TrimRight(line, "\r\n"), " ", 2)
		if len(parts) < 2 {
			return
		}
		tag, command := parts[0], parts[1]

		s.mu.Lock()
		s.commands = append(s.commands, command)
		s.mu.Unlock()

		name := strings.ToUpper(strings.Fields(command)[0])
		if name == "UID" {
			name += " " + strings.ToUpper(strings.Fields(command)[1])
		}

		switch name {
		case "CAPABILITY":
			write("* CAPABILITY IMAP4rev1 X-GM-EXT-1", tag+" OK Thats all she wrote!")
		case "LOGIN":
			write(tag + " OK desk@example.com authenticated (Success)")
		case "SELECT", "EXAMINE":
			access := "[READ-WRITE]"
			if name == "EXAMINE" {
				access = "[READ-ONLY]"
			}
			write(`* FLAGS (\Answered \Flagged \Draft \Deleted \Seen)`,
				"* 1 EXISTS",
				"* 0 RECENT",
				"* OK [UIDVALIDITY 3] UIDs valid.",
				tag+" OK "+access+" INBOX selected. (Success)")
		case "UID SEARCH":
			write("* SEARCH 42", tag+" OK SEARCH completed (Success)")
		case "UID FETCH":
			fmt.Fprintf(conn, "* 1 FETCH (UID 42 INTERNALDATE \"18-Oct-2026 08:00:00 +0000\" "+
				"ENVELOPE (\"Sun, 18 Oct 2026 08:00:00 +0000\" \"Repair request 42\" "+
				"((\"Service\" NIL \"service\" \"retailer.com\")) NIL NIL NIL NIL NIL NIL \"<gm-42@retailer.com>\") "+
				"BODY[HEADER.FIELDS (Message-ID)] {%d}\r\n%s)\r\n", len(gmailHeader), gmailHeader)
			write(tag + " OK Success")
		case "UID STORE":
			write(tag + " OK Success")
		case "LOGOUT":
			write("* BYE LOGOUT Requested", tag+" OK 73 good day (Success)")
			return
		default:
			write(tag + " BAD Unknown command")
		}
	}
}

func startGmailIMAPServer(t *testing.T) (string, *gmailIMAPServer) {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	srv := &gmailIMAPServer{}
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go srv.serve(conn)
		}
	}()

	return l.Addr().String(), srv
}

// findCommand returns the first recorded command starting with prefix
func findCommand(commands []string, prefix string) string {
	for _, c := range commands {
		if strings.HasPrefix(c, prefix) {
			return c
		}
	}
	return ""
}

func fixedNow() time.Time {
	return time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC)
}

func TestIMAPFetcherUsesGmailRawSearch(t *testing.T) {
	addr, srv := startGmailIMAPServer(t)

	fetcher := NewIMAPFetcher(testMailboxConfig(t, addr)).WithDialer(client.Dial)
	fetcher.now = fixedNow

	messages, err := fetcher.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 1)

	msg := messages[0]
	assert.Equal(t, "<gm-42@retailer.com>", msg.SourceID)
	assert.Equal(t, []string{"<gm-42@retailer.com>"}, msg.MessageIDs)
	assert.Equal(t, "42", msg.SeqKey)
	assert.Equal(t, "service@retailer.com", msg.From)
	assert.Equal(t, "Repair request 42", msg.Subject)
	assert.Equal(t, 2026, msg.Date.Year())

	commands := srv.recorded()
	assert.Contains(t, commands, `UID SEARCH X-GM-RAW "category:primary is:unread after:2026/10/12"`)
	assert.Contains(t, commands, "UID FETCH 42 (ENVELOPE UID INTERNALDATE BODY.PEEK[HEADER.FIELDS (Message-ID)])")
	assert.NotEmpty(t, findCommand(commands, "EXAMINE"), "mailbox must be opened read-only")
	for _, c := range commands {
		assert.False(t, strings.HasPrefix(c, "UID STORE"), "mailbox must not be modified: %s", c)
	}
}

func TestIMAPFetcherMarksSeenWhenEnabled(t *testing.T) {
	addr, srv := startGmailIMAPServer(t)

	cfg := testMailboxConfig(t, addr)
	cfg.MarkSeen = true
	fetcher := NewIMAPFetcher(cfg).WithDialer(client.Dial)
	fetcher.now = fixedNow

	messages, err := fetcher.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 1)

	commands := srv.recorded()
	assert.NotEmpty(t, findCommand(commands, "SELECT"))
	store := findCommand(commands, "UID STORE 42 +FLAGS.SILENT")
	assert.Contains(t, store, `\Seen`)
}
