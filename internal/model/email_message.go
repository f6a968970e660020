package model

import "time"

// EmailMessage is an outgoing message addressed on behalf of a contact.
// It has no owner of its own; access follows the parent contact.
type EmailMessage struct {
	ID        string    `json:"id"`
	ContactID string    `json:"contact_id"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Sent      bool      `json:"sent"`
	CreatedAt time.Time `json:"created_at"`
}
