package services

import (
	"strings"

	"campaign-messaging-api/models"
	"campaign-messaging-api/utils"
)

// NormalizeRecipient trims and lower-cases an address. Phone numbers lose their separators.
func NormalizeRecipient(raw string) string {
	r := strings.ToLower(utils.SanitizeInput(raw))
	if r != "" && !strings.Contains(r, "@") {
		return utils.StripPhoneSeparators(r)
	}
	return r
}

func validRecipient(channel, recipient string) bool {
	switch channel {
	case models.ChannelSMS:
		return utils.ValidatePhone(recipient)
	default:
		return utils.ValidateEmail(recipient)
	}
}
