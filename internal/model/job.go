package model

import (
	"strings"
	"time"
)

// JobStatus is the workflow state of a repair job
type JobStatus string

const (
	StatusDraftFromEmail  JobStatus = "DRAFT_FROM_EMAIL"
	StatusReceived        JobStatus = "RECEIVED"
	StatusAssigned        JobStatus = "ASSIGNED"
	StatusInDiagnosis     JobStatus = "IN_DIAGNOSIS"
	StatusWaitingForParts JobStatus = "WAITING_FOR_PARTS"
	StatusReadyForRepair  JobStatus = "READY_FOR_REPAIR"
	StatusInRepair        JobStatus = "IN_REPAIR"
	StatusTesting         JobStatus = "TESTING"
	StatusCompleted       JobStatus = "COMPLETED"
	StatusClosed          JobStatus = "CLOSED"
)

// UnknownRetailer is used when the sender address has no domain part
const UnknownRetailer = "Unknown"

// Job represents a row in the jobs table. Only the columns written by the
// mail intake are mapped; the rest of the row is owned by the front desk app.
type Job struct {
	ID            string    `json:"id,omitempty" gorm:"primaryKey;type:varchar(64)"`
	EmailSourceID string    `json:"email_source_id" gorm:"type:varchar(512);not null;index"`
	DateReceived  time.Time `json:"date_received"`
	SenderEmail   string    `json:"sender_email" gorm:"type:varchar(320)"`
	EmailSubject  string    `json:"email_subject" gorm:"type:text"`
	Status        JobStatus `json:"status" gorm:"type:varchar(50);not null"`
	RetailerName  string    `json:"retailer_name" gorm:"type:varchar(255)"`
	CreatedAt     time.Time `json:"created_at,omitempty" gorm:"autoCreateTime"`
}

// TableName specifies the table name for Job
func (Job) TableName() string {
	return "jobs"
}

// NewDraftJob builds the draft job created for a newly seen message
func NewDraftJob(msg Message) *Job {
	return &Job{
		EmailSourceID: msg.SourceID,
		DateReceived:  msg.Date,
		SenderEmail:   msg.From,
		EmailSubject:  msg.Subject,
		Status:        StatusDraftFromEmail,
		RetailerName:  RetailerFromSender(msg.From),
	}
}

// RetailerFromSender guesses the retailer from the sender's domain.
// "service@retailer.com" yields "retailer.com".
func RetailerFromSender(sender string) string {
	_, domain, found := strings.Cut(sender, "@")
	if !found {
		return UnknownRetailer
	}
	// Only the part between the first and second "@" is kept.
	domain, _, _ = strings.Cut(domain, "@")
	return domain
}
