package models

// OutboundMessage is what the transport receives for a single send.
type OutboundMessage struct {
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
	ReplyTo    *string  `json:"reply_to,omitempty"`
}
