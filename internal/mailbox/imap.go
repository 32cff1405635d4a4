package mailbox

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/commands"
	"github.com/emersion/go-imap/responses"
	"github.com/emersion/go-message/textproto"
	"github.com/sirupsen/logrus"

	"mail-job-intake/internal/config"
	"mail-job-intake/internal/model"
)

// gmailExtension is the capability advertised by Gmail's IMAP servers
const gmailExtension = "X-GM-EXT-1"

// DialFunc opens a connection to an IMAP server
type DialFunc func(addr string) (*client.Client, error)

// IMAPFetcher implements Fetcher over IMAP. A new session is opened for every
// Fetch so a dropped connection never outlives one cycle.
type IMAPFetcher struct {
	cfg  *config.MailboxConfig
	dial DialFunc
	now  func() time.Time
	log  *logrus.Entry
}

// NewIMAPFetcher creates a new IMAP fetcher that connects over TLS
func NewIMAPFetcher(cfg *config.MailboxConfig) *IMAPFetcher {
	return &IMAPFetcher{
		cfg: cfg,
		dial: func(addr string) (*client.Client, error) {
			return client.DialTLS(addr, nil)
		},
		now: time.Now,
		log: logrus.WithField("component", "imap"),
	}
}

// WithDialer replaces the TLS dialer, mainly for plain-text test servers
func (f *IMAPFetcher) WithDialer(dial DialFunc) *IMAPFetcher {
	f.dial = dial
	return f
}

// Fetch logs in, searches the configured mailbox and returns matching messages
func (f *IMAPFetcher) Fetch(ctx context.Context) ([]model.Message, error) {
	c, err := f.dial(f.cfg.Address())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}
	defer c.Logout()

	if f.cfg.IMAPTimeout > 0 {
		c.Timeout = f.cfg.IMAPTimeout
	}

	// Unblock pending commands if the caller goes away mid-session.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			c.Terminate()
		case <-stop:
		}
	}()

	if err := c.Login(f.cfg.IMAPUser, f.cfg.IMAPPassword); err != nil {
		return nil, fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	if _, err := c.Select(f.cfg.IMAPMailbox, !f.cfg.MarkSeen); err != nil {
		return nil, fmt.Errorf("failed to select %s: %w", f.cfg.IMAPMailbox, err)
	}

	uids, err := f.search(c)
	if err != nil {
		return nil, err
	}
	if len(uids) == 0 {
		f.log.Debug("No unread messages in lookback window")
		return []model.Message{}, nil
	}

	messages, err := f.fetch(c, uids)
	if err != nil {
		return nil, err
	}

	if f.cfg.MarkSeen {
		if err := markSeen(c, uids); err != nil {
			f.log.Warnf("Failed to mark messages as seen: %v", err)
		}
	}

	return messages, ctx.Err()
}

// search prefers Gmail's raw search so the primary-category filter applies;
// other servers get the portable UNSEEN SINCE criteria.
func (f *IMAPFetcher) search(c *client.Client) ([]uint32, error) {
	now := f.now()

	gmail, err := c.Support(gmailExtension)
	if err != nil {
		return nil, fmt.Errorf("failed to read capabilities: %w", err)
	}

	if gmail {
		query := GmailQuery(now, f.cfg.LookbackDays)
		f.log.Debugf("Searching with X-GM-RAW %q", query)
		uids, err := gmailRawSearch(c, query)
		if err != nil {
			return nil, fmt.Errorf("failed to search messages: %w", err)
		}
		return uids, nil
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	criteria.Since = WindowStart(now, f.cfg.LookbackDays)

	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	return uids, nil
}

func (f *IMAPFetcher) fetch(c *client.Client, uids []uint32) ([]model.Message, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{
		BodyPartName: imap.BodyPartName{
			Specifier: imap.HeaderSpecifier,
			Fields:    []string{"Message-ID"},
		},
		Peek: true,
	}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, imap.FetchInternalDate, section.FetchItem()}

	ch := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, ch)
	}()

	messages := make([]model.Message, 0, len(uids))
	for msg := range ch {
		messages = append(messages, f.toMessage(msg))
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return messages, nil
}

func (f *IMAPFetcher) toMessage(msg *imap.Message) model.Message {
	var (
		from    string
		subject string
		date    = msg.InternalDate
		ids     []string
	)

	// Only one body section is requested, so any literal is the header block.
	for _, literal := range msg.Body {
		values, err := messageIDValues(literal)
		if err != nil {
			f.log.Warnf("Failed to parse headers of UID %d: %v", msg.Uid, err)
			continue
		}
		ids = values
	}

	if env := msg.Envelope; env != nil {
		subject = env.Subject
		if len(env.From) > 0 && env.From[0] != nil {
			from = env.From[0].Address()
		}
		if !env.Date.IsZero() {
			date = env.Date
		}
		if len(ids) == 0 && env.MessageId != "" {
			ids = []string{env.MessageId}
		}
	}

	return newMessage(ids, UIDKey(msg.Uid), from, subject, date)
}

// messageIDValues returns every Message-ID header value in order
func messageIDValues(r io.Reader) ([]string, error) {
	h, err := textproto.ReadHeader(bufio.NewReader(r))
	if err != nil {
		return nil, err
	}
	var values []string
	fields := h.FieldsByKey("Message-Id")
	for fields.Next() {
		values = append(values, fields.Value())
	}
	return values, nil
}

func markSeen(c *client.Client, uids []uint32) error {
	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	return c.UidStore(seqset, item, []interface{}{imap.SeenFlag}, nil)
}

// rawSearch is Gmail's SEARCH X-GM-RAW extension
type rawSearch struct {
	query string
}

func (cmd *rawSearch) Command() *imap.Command {
	return &imap.Command{
		Name:      "SEARCH",
		Arguments: []interface{}{imap.RawString("X-GM-RAW"), cmd.query},
	}
}

func gmailRawSearch(c *client.Client, query string) ([]uint32, error) {
	res := new(responses.Search)
	status, err := c.Execute(&commands.Uid{Cmd: &rawSearch{query: query}}, res)
	if err != nil {
		return nil, err
	}
	if err := status.Err(); err != nil {
		return nil, err
	}
	return res.Ids, nil
}

// Close is a no-op; sessions are closed at the end of every Fetch
func (f *IMAPFetcher) Close() error {
	return nil
}
