package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"campaign-messaging-api/models"
)

// Transport hands a message to the mail provider. An empty id means the
// provider did not accept it.
type Transport interface {
	Send(ctx context.Context, msg models.OutboundMessage) (string, error)
}

// CredentialRegistry maps credential names to configured transports.
type CredentialRegistry struct {
	mu         sync.RWMutex
	transports map[string]Transport
}

func NewCredentialRegistry() *CredentialRegistry {
	return &CredentialRegistry{transports: map[string]Transport{}}
}

func (r *CredentialRegistry) Register(name string, t Transport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transports[name] = t
}

func (r *CredentialRegistry) Resolve(name string) (Transport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transports[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCredential, name)
	}
	return t, nil
}

type Dispatcher struct {
	campaigns         CampaignStore
	messages          MessageStore
	hydrator          *TemplateHydrator
	credentials       *CredentialRegistry
	defaultCredential string
	layout            EmailLayout
}

func NewDispatcher(campaigns CampaignStore, templates TemplateStore, messages MessageStore, credentials *CredentialRegistry, defaultCredential string, layout EmailLayout) *Dispatcher {
	if credentials == nil {
		credentials = NewCredentialRegistry()
	}
	return &Dispatcher{
		campaigns:         campaigns,
		messages:          messages,
		hydrator:          NewTemplateHydrator(templates, messages),
		credentials:       credentials,
		defaultCredential: defaultCredential,
		layout:            layout,
	}
}

func (d *Dispatcher) DefaultCredential() string {
	return d.defaultCredential
}

// FindOwnedCampaign only returns email campaigns owned by userID.
func (d *Dispatcher) FindOwnedCampaign(ctx context.Context, campaignID, userID int) (*models.Campaign, error) {
	return d.campaigns.FindOwned(ctx, campaignID, userID, models.ChannelEmail)
}

// ComposeMessage returns nil without error when the campaign has no template
// or no stored params.
func (d *Dispatcher) ComposeMessage(ctx context.Context, campaignID int, recipient string) (*models.OutboundMessage, error) {
	recipient = NormalizeRecipient(recipient)
	rendered, err := d.hydrator.HydrateForRecipient(ctx, campaignID, recipient, RenderOptions{EscapeHTML: true})
	if err != nil || rendered == nil {
		return nil, err
	}

	return &models.OutboundMessage{
		Recipients: []string{recipient},
		Subject:    rendered.Subject,
		Body:       d.layout.Wrap(rendered.Subject, rendered.Body),
		ReplyTo:    rendered.ReplyTo,
	}, nil
}

// Dispatch sends one message using the named credential and returns the
// provider's message id. Nothing reaches the transport if composition fails.
func (d *Dispatcher) Dispatch(ctx context.Context, campaignID int, recipient, credential string) (string, error) {
	msg, err := d.ComposeMessage(ctx, campaignID, recipient)
	if err != nil {
		return "", err
	}
	if msg == nil {
		return "", ErrNoMessageToCompose
	}

	if strings.TrimSpace(credential) == "" {
		credential = d.defaultCredential
	}
	transport, err := d.credentials.Resolve(credential)
	if err != nil {
		return "", err
	}

	to := msg.Recipients[0]
	messageID, sendErr := transport.Send(ctx, *msg)
	if sendErr != nil || messageID == "" {
		if err := d.messages.MarkFailed(ctx, campaignID, to, "send_failed"); err != nil {
			log.Printf("dispatch: failed to record failure (campaign=%d to=%s): %v", campaignID, to, err)
		}
		if sendErr != nil {
			return "", fmt.Errorf("%w: %v", ErrSendFailed, sendErr)
		}
		return "", ErrSendFailed
	}

	if err := d.messages.MarkSent(ctx, campaignID, to, messageID); err != nil {
		log.Printf("dispatch: failed to record send (campaign=%d to=%s): %v", campaignID, to, err)
	}
	return messageID, nil
}

// BindDefaultCredential points the campaign at the shared default credential.
func (d *Dispatcher) BindDefaultCredential(ctx context.Context, campaignID int) error {
	return d.campaigns.UpdateCredential(ctx, campaignID, d.defaultCredential)
}
