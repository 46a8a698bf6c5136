package handlers

import (
	"context"

	"github.com/jobops/jobops-api/internal/models"
	"github.com/jobops/jobops-api/internal/service"
)

// ContactsHandler serves per-job contacts and outreach touchpoints.
type ContactsHandler struct {
	contacts *service.ContactService
}

// NewContactsHandler creates a contacts handler.
func NewContactsHandler(contacts *service.ContactService) *ContactsHandler {
	return &ContactsHandler{contacts: contacts}
}

// ListContactsInput identifies the job.
type ListContactsInput struct {
	JobKey string `path:"job_key"`
}

// ListContactsOutput is the job's contacts with their touchpoints.
type ListContactsOutput struct {
	Body struct {
		OK   bool `json:"ok"`
		Data struct {
			Contacts []service.ContactWithTouchpoints `json:"contacts"`
		} `json:"data"`
	}
}

// ListContacts returns contacts for a job, materializing scorer suggestions.
func (h *ContactsHandler) ListContacts(ctx context.Context, input *ListContactsInput) (*ListContactsOutput, error) {
	contacts, err := h.contacts.ListForJob(ctx, input.JobKey)
	if err != nil {
		return nil, serviceError(err)
	}
	out := &ListContactsOutput{}
	out.Body.OK = true
	out.Body.Data.Contacts = contacts
	if contacts == nil {
		out.Body.Data.Contacts = []service.ContactWithTouchpoints{}
	}
	return out, nil
}

// SaveContactInput adds or refreshes a contact on a job.
type SaveContactInput struct {
	JobKey string `path:"job_key"`
	Body   struct {
		Name   string `json:"name" doc:"Contact name, the upsert key within the job"`
		Title  string `json:"title,omitempty"`
		Handle string `json:"handle,omitempty" doc:"Email or profile link, encrypted at rest when a key is configured"`
		Source string `json:"source,omitempty" doc:"Where the contact came from (scoring, manual, referral)"`
	}
}

// ContactOutput wraps one saved contact.
type ContactOutput struct {
	Body struct {
		OK   bool            `json:"ok"`
		Data *models.Contact `json:"data"`
	}
}

// SaveContact upserts a contact by name.
func (h *ContactsHandler) SaveContact(ctx context.Context, input *SaveContactInput) (*ContactOutput, error) {
	contact, err := h.contacts.Save(ctx, input.JobKey, service.ContactInput{
		Name:   input.Body.Name,
		Title:  input.Body.Title,
		Handle: input.Body.Handle,
		Source: input.Body.Source,
	})
	if err != nil {
		return nil, serviceError(err)
	}
	out := &ContactOutput{}
	out.Body.OK = true
	out.Body.Data = contact
	return out, nil
}

// AddTouchpointInput records one outreach attempt.
type AddTouchpointInput struct {
	JobKey    string `path:"job_key"`
	ContactID string `path:"contact_id"`
	Body      struct {
		Channel string `json:"channel" doc:"LINKEDIN, EMAIL, or OTHER"`
		Status  string `json:"status,omitempty" doc:"DRAFT, SENT, or REPLIED; defaults to DRAFT"`
		Note    string `json:"note,omitempty"`
	}
}

// TouchpointOutput wraps one recorded touchpoint.
type TouchpointOutput struct {
	Body struct {
		OK   bool               `json:"ok"`
		Data *models.Touchpoint `json:"data"`
	}
}

// AddTouchpoint records outreach, idempotent per contact and channel.
func (h *ContactsHandler) AddTouchpoint(ctx context.Context, input *AddTouchpointInput) (*TouchpointOutput, error) {
	tp, err := h.contacts.AddTouchpoint(ctx, input.JobKey, input.ContactID, service.TouchpointInput{
		Channel: models.TouchpointChannel(input.Body.Channel),
		Status:  models.TouchpointStatus(input.Body.Status),
		Note:    input.Body.Note,
	})
	if err != nil {
		return nil, serviceError(err)
	}
	out := &TouchpointOutput{}
	out.Body.OK = true
	out.Body.Data = tp
	return out, nil
}
