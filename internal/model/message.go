package model

import "time"

// Message is the read-only view of a mailbox message used by the intake
type Message struct {
	// SourceID is the deduplication key, see mailbox.SourceID
	SourceID   string    `json:"source_id"`
	MessageIDs []string  `json:"message_ids,omitempty"`
	SeqKey     string    `json:"seq_key"`
	From       string    `json:"from"`
	Subject    string    `json:"subject"`
	Date       time.Time `json:"date"`
}
