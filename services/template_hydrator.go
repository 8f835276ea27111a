package services

import (
	"context"
	"errors"

	"campaign-messaging-api/models"
)

// TemplateHydrator loads a campaign's template and stored params and renders them.
// Missing template or params yield (nil, nil), never a partial document.
type TemplateHydrator struct {
	templates TemplateStore
	messages  MessageStore
}

func NewTemplateHydrator(templates TemplateStore, messages MessageStore) *TemplateHydrator {
	return &TemplateHydrator{templates: templates, messages: messages}
}

// HydratePreview renders the template with the first stored row of the campaign.
// Callers pass the same options the channel sends with so the preview matches delivery.
func (h *TemplateHydrator) HydratePreview(ctx context.Context, campaignID int, opts RenderOptions) (*RenderedMessage, error) {
	tmpl, err := h.templates.FindByCampaign(ctx, campaignID)
	if err != nil || tmpl == nil {
		return nil, err
	}
	row, err := h.messages.First(ctx, campaignID)
	if err != nil || row == nil {
		return nil, err
	}
	return renderOrNothing(tmpl, row.StringParams(), opts)
}

// HydrateForRecipient renders with the recipient's own row, falling back to the
// first stored row so test sends to arbitrary addresses still hydrate.
func (h *TemplateHydrator) HydrateForRecipient(ctx context.Context, campaignID int, recipient string, opts RenderOptions) (*RenderedMessage, error) {
	tmpl, err := h.templates.FindByCampaign(ctx, campaignID)
	if err != nil || tmpl == nil {
		return nil, err
	}

	row, err := h.messages.FindByRecipient(ctx, campaignID, recipient)
	if err != nil {
		return nil, err
	}
	if row == nil {
		if row, err = h.messages.First(ctx, campaignID); err != nil {
			return nil, err
		}
	}
	if row == nil {
		return nil, nil
	}

	params := row.StringParams()
	params[RecipientColumn] = recipient
	return renderOrNothing(tmpl, params, opts)
}

func renderOrNothing(tmpl *models.Template, params map[string]string, opts RenderOptions) (*RenderedMessage, error) {
	rendered, err := RenderWith(tmpl, params, opts)
	if errors.Is(err, ErrMissingTemplateOrParams) {
		return nil, nil
	}
	return rendered, err
}
