package services

import (
	"html/template"
	"regexp"
	"sort"
	"strings"

	"campaign-messaging-api/models"
)

// RecipientColumn is the CSV column every upload must carry.
const RecipientColumn = "recipient"

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

type RenderedMessage struct {
	Subject string  `json:"subject"`
	Body    string  `json:"body"`
	ReplyTo *string `json:"reply_to,omitempty"`
}

// RenderOptions tunes substitution. Email bodies escape values as HTML.
type RenderOptions struct {
	EscapeHTML bool
}

// ExtractPlaceholders returns lower-cased placeholder names in order of first appearance.
func ExtractPlaceholders(texts ...string) []string {
	seen := map[string]bool{}
	out := make([]string, 0)
	for _, text := range texts {
		for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
			name := strings.ToLower(m[1])
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// RequiredPlaceholders prefers the template's declared params and falls back to scanning its text.
func RequiredPlaceholders(tmpl *models.Template) []string {
	if tmpl == nil {
		return nil
	}
	if declared := tmpl.DeclaredParams(); len(declared) > 0 {
		out := make([]string, 0, len(declared))
		seen := map[string]bool{}
		for _, p := range declared {
			name := strings.ToLower(strings.TrimSpace(p))
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
		return out
	}
	return ExtractPlaceholders(deref(tmpl.Subject), deref(tmpl.Body))
}

// ValidateHeaders checks that sampleRow carries a column for every required placeholder.
func ValidateHeaders(sampleRow map[string]string, requiredPlaceholders []string) error {
	present := make(map[string]bool, len(sampleRow))
	for k := range sampleRow {
		present[strings.ToLower(strings.TrimSpace(k))] = true
	}

	var missing []string
	for _, p := range requiredPlaceholders {
		if !present[strings.ToLower(p)] {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &HeaderMismatchError{Missing: missing}
	}
	return nil
}

// Render fills subject and body with params. A nil template or params produces nothing.
func Render(tmpl *models.Template, params map[string]string) (*RenderedMessage, error) {
	return RenderWith(tmpl, params, RenderOptions{})
}

func RenderWith(tmpl *models.Template, params map[string]string, opts RenderOptions) (*RenderedMessage, error) {
	if tmpl == nil || params == nil {
		return nil, ErrMissingTemplateOrParams
	}

	lowered := make(map[string]string, len(params))
	for k, v := range params {
		lowered[strings.ToLower(strings.TrimSpace(k))] = v
	}

	subject, err := applyTemplatePlaceholders(deref(tmpl.Subject), lowered, false)
	if err != nil {
		return nil, err
	}
	body, err := applyTemplatePlaceholders(deref(tmpl.Body), lowered, opts.EscapeHTML)
	if err != nil {
		return nil, err
	}

	msg := &RenderedMessage{Subject: subject, Body: body}
	if tmpl.ReplyTo != nil && strings.TrimSpace(*tmpl.ReplyTo) != "" {
		replyTo := strings.TrimSpace(*tmpl.ReplyTo)
		msg.ReplyTo = &replyTo
	}
	return msg, nil
}

func applyTemplatePlaceholders(text string, data map[string]string, escape bool) (string, error) {
	var missing string
	result := placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := strings.ToLower(placeholderPattern.FindStringSubmatch(match)[1])
		value, ok := data[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return match
		}
		if escape {
			return template.HTMLEscapeString(value)
		}
		return value
	})
	if missing != "" {
		return "", &HydrationError{Param: missing}
	}
	return result, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
