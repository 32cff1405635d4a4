package mailbox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"mail-job-intake/internal/config"
	"mail-job-intake/internal/model"
)

// GmailAPIFetcher implements Fetcher using the Gmail API
type GmailAPIFetcher struct {
	service      *gmail.Service
	userEmail    string
	lookbackDays int
	limiter      *rate.Limiter
	now          func() time.Time
	log          *logrus.Entry
}

// NewGmailAPIFetcher creates a new Gmail API fetcher from a refresh token
func NewGmailAPIFetcher(cfg *config.MailboxConfig) (*GmailAPIFetcher, error) {
	ctx := context.Background()

	oauth2Config := &oauth2.Config{
		ClientID:     cfg.GmailClientID,
		ClientSecret: cfg.GmailClientSecret,
		Scopes:       []string{gmail.GmailReadonlyScope},
		Endpoint:     google.Endpoint,
	}
	tokenSource := oauth2Config.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.GmailRefreshToken})

	service, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return newGmailAPIFetcher(service, cfg), nil
}

func newGmailAPIFetcher(service *gmail.Service, cfg *config.MailboxConfig) *GmailAPIFetcher {
	user := cfg.GmailUserEmail
	if user == "" {
		user = "me"
	}
	return &GmailAPIFetcher{
		service:      service,
		userEmail:    user,
		lookbackDays: cfg.LookbackDays,
		limiter:      newLimiter(cfg.GmailRateLimit),
		now:          time.Now,
		log:          logrus.WithField("component", "gmail"),
	}
}

// Fetch lists unread primary messages in the window and reads their headers
func (f *GmailAPIFetcher) Fetch(ctx context.Context) ([]model.Message, error) {
	query := GmailQuery(f.now(), f.lookbackDays)

	var ids []string
	err := f.service.Users.Messages.List(f.userEmail).Q(query).Pages(ctx, func(resp *gmail.ListMessagesResponse) error {
		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	messages := make([]model.Message, 0, len(ids))
	for _, id := range ids {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		msg, err := f.service.Users.Messages.Get(f.userEmail, id).
			Format("metadata").
			MetadataHeaders("Message-ID", "From", "Subject", "Date").
			Context(ctx).
			Do()
		if err != nil {
			return nil, fmt.Errorf("failed to get message %s: %w", id, err)
		}
		messages = append(messages, parseGmailMessage(msg))
	}

	return messages, nil
}

// newLimiter paces messages.get calls; a non-positive rate disables pacing.
func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(perSecond), int(perSecond)+1)
}

// parseGmailMessage maps a metadata-format Gmail message to a Message
func parseGmailMessage(msg *gmail.Message) model.Message {
	var (
		ids     []string
		from    string
		subject string
		date    time.Time
	)

	if msg.InternalDate > 0 {
		date = time.UnixMilli(msg.InternalDate)
	}

	if msg.Payload != nil {
		for _, header := range msg.Payload.Headers {
			switch strings.ToLower(header.Name) {
			case "message-id":
				ids = append(ids, header.Value)
			case "from":
				from = senderAddress(header.Value)
			case "subject":
				subject = header.Value
			case "date":
				if date.IsZero() {
					var h mail.Header
					h.Set("Date", header.Value)
					if t, err := h.Date(); err == nil {
						date = t
					}
				}
			}
		}
	}

	return newMessage(ids, msg.Id, from, subject, date)
}

// senderAddress strips the display name from a From header
func senderAddress(value string) string {
	addr, err := mail.ParseAddress(value)
	if err != nil {
		return strings.TrimSpace(value)
	}
	return addr.Address
}

// Close closes the Gmail API fetcher
func (f *GmailAPIFetcher) Close() error {
	// Gmail API service doesn't need explicit closing
	return nil
}
