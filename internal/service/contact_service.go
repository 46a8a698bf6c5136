package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jobops/jobops-api/internal/crypto"
	"github.com/jobops/jobops-api/internal/models"
	"github.com/jobops/jobops-api/internal/repository"
)

// contactSourceAI marks rows materialized from a scoring run's
// potential_contacts, as opposed to ones the operator added by hand.
const contactSourceAI = "ai_score"

// ContactService manages outreach contacts and touchpoints per job. Handles
// (emails, profile URLs) are encrypted at rest when an encryptor is bound.
type ContactService struct {
	repos     *repository.Repositories
	features  repository.Features
	encryptor *crypto.Encryptor
	logger    *slog.Logger
}

// NewContactService creates a new contact service. encryptor may be nil, in
// which case handles are stored in plaintext.
func NewContactService(repos *repository.Repositories, features repository.Features, encryptor *crypto.Encryptor, logger *slog.Logger) *ContactService {
	return &ContactService{
		repos:     repos,
		features:  features,
		encryptor: encryptor,
		logger:    logger,
	}
}

// ContactWithTouchpoints is one contact plus its outreach history.
type ContactWithTouchpoints struct {
	Contact     *models.Contact      `json:"contact"`
	Touchpoints []*models.Touchpoint `json:"touchpoints"`
}

// ListForJob returns the job's contacts with touchpoints. Names the scorer
// suggested are materialized into rows on first read, so the list always
// includes them without a separate sync step.
func (s *ContactService) ListForJob(ctx context.Context, jobKey string) ([]ContactWithTouchpoints, error) {
	if !s.features.Contacts {
		return nil, fmt.Errorf("contacts: %w", ErrSchemaDisabled)
	}
	job, err := s.repos.Job.GetByKey(ctx, jobKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	if job == nil {
		return nil, fmt.Errorf("job %s: %w", jobKey, ErrNotFound)
	}

	s.materialize(ctx, job)

	contacts, err := s.repos.Contact.ListByJobKey(ctx, jobKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	tps, err := s.repos.Contact.ListTouchpoints(ctx, jobKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list touchpoints: %w", err)
	}
	byContact := make(map[string][]*models.Touchpoint, len(contacts))
	for _, tp := range tps {
		byContact[tp.ContactID] = append(byContact[tp.ContactID], tp)
	}
	out := make([]ContactWithTouchpoints, 0, len(contacts))
	for _, contact := range contacts {
		s.decryptHandle(contact)
		out = append(out, ContactWithTouchpoints{Contact: contact, Touchpoints: byContact[contact.ID]})
	}
	return out, nil
}

// ContactInput is an operator-supplied contact write.
type ContactInput struct {
	Name   string `json:"name"`
	Title  string `json:"title,omitempty"`
	Handle string `json:"handle,omitempty"`
	Source string `json:"source,omitempty"`
}

// Save upserts a contact by (job_key, name), encrypting the handle at rest
// when encryption is configured.
func (s *ContactService) Save(ctx context.Context, jobKey string, input ContactInput) (*models.Contact, error) {
	if !s.features.Contacts {
		return nil, fmt.Errorf("contacts: %w", ErrSchemaDisabled)
	}
	name := strings.TrimSpace(input.Name)
	if len(name) < 3 {
		return nil, fmt.Errorf("%w: contact name must be at least 3 characters", ErrInvalidInput)
	}
	job, err := s.repos.Job.GetByKey(ctx, jobKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	if job == nil {
		return nil, fmt.Errorf("job %s: %w", jobKey, ErrNotFound)
	}

	handle := strings.TrimSpace(input.Handle)
	stored := handle
	if s.encryptor != nil && handle != "" {
		stored, err = s.encryptor.Encrypt(handle)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt contact handle: %w", err)
		}
	}
	source := input.Source
	if source == "" {
		source = "manual"
	}
	contact := &models.Contact{
		JobKey: jobKey,
		Name:   name,
		Title:  strings.TrimSpace(input.Title),
		Handle: stored,
		Source: source,
	}
	if err := s.repos.Contact.UpsertByName(ctx, contact); err != nil {
		return nil, fmt.Errorf("failed to save contact: %w", err)
	}
	// Hand the caller back what they gave us, not the ciphertext.
	contact.Handle = handle
	return contact, nil
}

// TouchpointInput is one outreach attempt write.
type TouchpointInput struct {
	Channel models.TouchpointChannel `json:"channel"`
	Status  models.TouchpointStatus  `json:"status,omitempty"`
	Note    string                   `json:"note,omitempty"`
}

// AddTouchpoint records an outreach attempt. Writes are idempotent per
// (contact, job, channel): repeating a channel updates status and note.
func (s *ContactService) AddTouchpoint(ctx context.Context, jobKey, contactID string, input TouchpointInput) (*models.Touchpoint, error) {
	if !s.features.Contacts {
		return nil, fmt.Errorf("contacts: %w", ErrSchemaDisabled)
	}
	switch input.Channel {
	case models.TouchpointLinkedIn, models.TouchpointEmail, models.TouchpointOtherCh:
	case "":
		return nil, fmt.Errorf("%w: channel is required", ErrInvalidInput)
	default:
		return nil, fmt.Errorf("%w: unknown channel %q", ErrInvalidInput, input.Channel)
	}
	status := input.Status
	switch status {
	case "":
		status = models.TouchpointDraft
	case models.TouchpointDraft, models.TouchpointSent, models.TouchpointReplied:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	contact, err := s.repos.Contact.GetByID(ctx, contactID)
	if err != nil {
		return nil, fmt.Errorf("failed to load contact: %w", err)
	}
	if contact == nil || contact.JobKey != jobKey {
		return nil, fmt.Errorf("contact %s on job %s: %w", contactID, jobKey, ErrNotFound)
	}

	tp := &models.Touchpoint{
		ContactID: contactID,
		JobKey:    jobKey,
		Channel:   input.Channel,
		Status:    status,
		Note:      strings.TrimSpace(input.Note),
	}
	if err := s.repos.Contact.UpsertTouchpoint(ctx, tp); err != nil {
		return nil, fmt.Errorf("failed to save touchpoint: %w", err)
	}
	return tp, nil
}

// materialize turns the scorer's suggested names into contact rows. Upserts
// are keyed by name, so re-reads never duplicate and operator edits survive.
func (s *ContactService) materialize(ctx context.Context, job *models.Job) {
	for _, name := range job.PotentialContacts {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		contact := &models.Contact{
			JobKey: job.JobKey,
			Name:   name,
			Source: contactSourceAI,
		}
		if err := s.repos.Contact.UpsertByName(ctx, contact); err != nil {
			s.logger.Warn("failed to materialize contact", "job_key", job.JobKey, "name", name, "error", err)
		}
	}
}

// decryptHandle restores the plaintext handle in place. A handle that fails
// to decrypt (key rotation, legacy plaintext) is left as stored.
func (s *ContactService) decryptHandle(contact *models.Contact) {
	if s.encryptor == nil || contact.Handle == "" {
		return
	}
	plain, err := s.encryptor.Decrypt(contact.Handle)
	if err != nil {
		s.logger.Warn("failed to decrypt contact handle", "contact_id", contact.ID, "error", err)
		return
	}
	contact.Handle = plain
}
