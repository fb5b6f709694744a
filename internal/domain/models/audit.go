package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/turtacn/perimeter/pkg/constants"
)

// LoginAuditEvent records the outcome of a single login attempt.
type LoginAuditEvent struct {
	EventID   uuid.UUID              `json:"event_id"`
	Username  string                 `json:"username"`
	Subject   string                 `json:"subject,omitempty"`
	Outcome   constants.LoginOutcome `json:"outcome"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewLoginAuditEvent creates a new login audit entry.
func NewLoginAuditEvent(username string, outcome constants.LoginOutcome) *LoginAuditEvent {
	return &LoginAuditEvent{
		EventID:   uuid.New(),
		Username:  username,
		Outcome:   outcome,
		Timestamp: time.Now().UTC(),
	}
}

// WithSubject sets the authenticated subject.
func (e *LoginAuditEvent) WithSubject(subject string) *LoginAuditEvent {
	e.Subject = subject
	return e
}

// WithRequestID sets the correlation id of the login request.
func (e *LoginAuditEvent) WithRequestID(requestID string) *LoginAuditEvent {
	e.RequestID = requestID
	return e
}
