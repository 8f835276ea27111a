package services

import (
	"fmt"
	"html/template"
	"strings"
)

// EmailLayout wraps a rendered campaign body in the shared HTML shell.
type EmailLayout struct {
	Enabled    bool
	LogoURLs   []string
	FooterHTML string
}

func NewEmailLayout(enabled bool, rawLogoURLs, footerHTML string) EmailLayout {
	return EmailLayout{
		Enabled:    enabled,
		LogoURLs:   parseLogoList(rawLogoURLs),
		FooterHTML: strings.TrimSpace(footerHTML),
	}
}

// Wrap returns bodyHTML untouched when the layout is disabled. The body is
// trusted operator HTML; only subject and logo URLs are escaped here.
func (l EmailLayout) Wrap(subject, bodyHTML string) string {
	if !l.Enabled {
		return bodyHTML
	}

	footerSection := ""
	if l.FooterHTML != "" {
		footerSection = fmt.Sprintf(`<div style="margin-top:24px;color:#6b7280;font-size:13px;line-height:1.7;">%s</div>`, l.FooterHTML)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
</head>
<body style="margin:0;padding:0;background-color:#f9fafb;font-family:'Segoe UI',Tahoma,Arial,sans-serif;">
<div style="max-width:640px;margin:0 auto;padding:24px 20px;">
<div style="background-color:#ffffff;border:1px solid #e5e7eb;border-radius:12px;padding:24px 24px 28px 24px;">
%s
<div style="color:#1f2937;font-size:16px;line-height:1.75;word-break:break-word;">
%s
</div>
%s
</div>
</div>
</body>
</html>`, template.HTMLEscapeString(subject), l.logoHTML(), bodyHTML, footerSection)
}

func (l EmailLayout) logoHTML() string {
	snippets := make([]string, 0, len(l.LogoURLs))
	for _, url := range l.LogoURLs {
		if snippet := renderLogoURL(url); snippet != "" {
			snippets = append(snippets, snippet)
		}
	}
	if len(snippets) == 0 {
		return ""
	}
	return fmt.Sprintf(
		`<div style="text-align:center;margin:0 auto 18px auto;">%s</div>`,
		strings.Join(snippets, ""),
	)
}

func renderLogoURL(url string) string {
	escaped := template.HTMLEscapeString(strings.TrimSpace(url))
	if escaped == "" {
		return ""
	}
	return fmt.Sprintf("<span style=\"display:inline-block;margin:0 12px;\"><img src=\"%s\" alt=\"\" style=\"display:block;height:64px;width:auto;max-width:100%%;object-fit:contain;\" /></span>", escaped)
}

func parseLogoList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		switch r {
		case ',', ';', '\n', '\r':
			return true
		}
		return false
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
