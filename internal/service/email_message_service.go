package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/minicrm/backend/internal/model"
	"github.com/minicrm/backend/internal/repository"
	"github.com/minicrm/backend/pkg/auth"
)

// Notifier delivers an email message. Implementations live in internal/notify.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// MessageInput is the client-supplied part of a new email message.
type MessageInput struct {
	ContactID string `json:"contact_id"`
	To        string `json:"to" validate:"required,email,max=256"`
	Subject   string `json:"subject" validate:"required,max=200"`
	Body      string `json:"body" validate:"required"`
}

// ContactMessages is a contact together with its messages, newest first.
type ContactMessages struct {
	Contact  *model.Contact        `json:"contact"`
	Messages []*model.EmailMessage `json:"messages"`
}

// EmailMessageService manages messages attached to contacts. Access to a
// message is always decided by its parent contact.
type EmailMessageService interface {
	ListForContact(ctx context.Context, caller auth.Principal, contactID string) (*ContactMessages, error)
	Draft(ctx context.Context, caller auth.Principal, contactID string) (*model.EmailMessage, error)
	// Create stores the message and attempts delivery. When delivery fails
	// the stored message is returned together with an error wrapping
	// ErrDeliveryFailed.
	Create(ctx context.Context, caller auth.Principal, in MessageInput) (*model.EmailMessage, error)
	// Delete removes the message and returns its contact id.
	Delete(ctx context.Context, caller auth.Principal, id string) (string, error)
}

type emailMessageService struct {
	contacts repository.ContactRepository
	messages repository.EmailMessageRepository
	notifier Notifier
	now      func() time.Time
}

// NewEmailMessageService creates an EmailMessageService.
func NewEmailMessageService(contacts repository.ContactRepository, messages repository.EmailMessageRepository, notifier Notifier) EmailMessageService {
	return &emailMessageService{
		contacts: contacts,
		messages: messages,
		notifier: notifier,
		now:      time.Now,
	}
}

func (s *emailMessageService) ListForContact(ctx context.Context, caller auth.Principal, contactID string) (*ContactMessages, error) {
	c, err := loadEditableContact(ctx, s.contacts, caller, contactID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByContact(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return &ContactMessages{Contact: c, Messages: msgs}, nil
}

func (s *emailMessageService) Draft(ctx context.Context, caller auth.Principal, contactID string) (*model.EmailMessage, error) {
	c, err := loadEditableContact(ctx, s.contacts, caller, contactID)
	if err != nil {
		return nil, err
	}
	return &model.EmailMessage{ContactID: c.ID, To: c.Email}, nil
}

func (s *emailMessageService) Create(ctx context.Context, caller auth.Principal, in MessageInput) (*model.EmailMessage, error) {
	c, err := loadEditableContact(ctx, s.contacts, caller, in.ContactID)
	if err != nil {
		return nil, err
	}
	in.To = strings.TrimSpace(in.To)
	in.Subject = strings.TrimSpace(in.Subject)
	if strings.TrimSpace(in.Body) == "" {
		in.Body = ""
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	m := &model.EmailMessage{
		ContactID: c.ID,
		To:        in.To,
		Subject:   in.Subject,
		Body:      in.Body,
		Sent:      false,
		CreatedAt: s.now().UTC(),
	}
	if err := s.messages.Create(ctx, m); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		slog.Error("create message failed", "contact_id", c.ID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrStoreWriteFailed, err)
	}

	if sendErr := s.notifier.Send(ctx, m.To, m.Subject, m.Body); sendErr != nil {
		slog.Warn("message delivery failed", "message_id", m.ID, "error", sendErr)
		return m, fmt.Errorf("%w: %w", ErrDeliveryFailed, sendErr)
	}

	if err := s.messages.UpdateSent(ctx, m.ID, true); err != nil {
		// delivered but the flag could not be recorded; the stored row keeps Sent=false
		slog.Error("mark message sent failed", "message_id", m.ID, "error", err)
		return m, fmt.Errorf("%w: %w", ErrStoreWriteFailed, err)
	}
	m.Sent = true
	slog.Info("message sent", "message_id", m.ID, "contact_id", c.ID)
	return m, nil
}

func (s *emailMessageService) Delete(ctx context.Context, caller auth.Principal, id string) (string, error) {
	if !caller.Authenticated() {
		return "", ErrUnauthenticated
	}
	m, err := s.messages.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("find message: %w", err)
	}
	if _, err := loadEditableContact(ctx, s.contacts, caller, m.ContactID); err != nil {
		return "", err
	}
	if err := s.messages.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNotFound
		}
		slog.Error("delete message failed", "message_id", id, "error", err)
		return "", fmt.Errorf("%w: %w", ErrStoreWriteFailed, err)
	}
	return m.ContactID, nil
}
