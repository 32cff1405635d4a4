// Package mailbox fetches the unread messages that become draft jobs.
package mailbox

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"mail-job-intake/internal/model"
)

// Fetcher returns the messages matching the intake filter:
// unread, primary category and received inside the lookback window.
type Fetcher interface {
	Fetch(ctx context.Context) ([]model.Message, error)
	Close() error
}

// SourceID derives the deduplication key of a message. The first non-empty
// Message-ID header value wins; the mailbox sequence key is the fallback.
func SourceID(messageIDs []string, seqKey string) string {
	for _, id := range messageIDs {
		if id = strings.TrimSpace(id); id != "" {
			return id
		}
	}
	return seqKey
}

// UIDKey renders an IMAP UID as a sequence key
func UIDKey(uid uint32) string {
	return strconv.FormatUint(uint64(uid), 10)
}

// WindowStart returns the first day of the lookback window
func WindowStart(now time.Time, lookbackDays int) time.Time {
	return now.AddDate(0, 0, -lookbackDays)
}

// GmailQuery builds the Gmail search expression used by both the IMAP
// X-GM-RAW extension and the Gmail API.
func GmailQuery(now time.Time, lookbackDays int) string {
	after := WindowStart(now, lookbackDays).Format("2006/01/02")
	return fmt.Sprintf("category:primary is:unread after:%s", after)
}

func newMessage(messageIDs []string, seqKey, from, subject string, date time.Time) model.Message {
	return model.Message{
		SourceID:   SourceID(messageIDs, seqKey),
		MessageIDs: messageIDs,
		SeqKey:     seqKey,
		From:       from,
		Subject:    subject,
		Date:       date,
	}
}
