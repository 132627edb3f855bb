package notifier

import (
	"fmt"
	"html"
	"strings"

	"github.com/amishk599/jobalert/internal/model"
)

const (
	descriptionPreview = 200
	noDescription      = "Click View Details to learn more!"
)

// summaryHTML renders the message announcing a batch of postings.
func summaryHTML(count int) string {
	return fmt.Sprintf("🔔 <b>New Job Alert!</b>\n\nFound %d new opportunities for you:\n", count)
}

// textHTML renders an operator broadcast.
func textHTML(text string) string {
	return "📢 <b>Admin Message:</b>\n\n" + html.EscapeString(text)
}

// postingHTML renders one posting for HTML-capable chat clients.
func postingHTML(p *model.Posting) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>💼 %s</b>\n\n", html.EscapeString(p.Title))
	fmt.Fprintf(&b, "🏢 Company: %s\n", html.EscapeString(p.Organization))
	fmt.Fprintf(&b, "📍 Location: %s\n", html.EscapeString(p.Location))
	fmt.Fprintf(&b, "📋 Type: %s\n", p.Category)
	fmt.Fprintf(&b, "💻 Mode: %s\n", p.Mode)
	fmt.Fprintf(&b, "🎯 Domain: %s\n", html.EscapeString(p.Topic))
	fmt.Fprintf(&b, "📅 Posted: %s\n", html.EscapeString(p.Freshness))
	fmt.Fprintf(&b, "🔗 Source: %s\n\n", html.EscapeString(p.Source))
	b.WriteString(html.EscapeString(preview(p.Description)))
	return b.String()
}

func preview(description string) string {
	if strings.TrimSpace(description) == "" {
		return noDescription
	}
	r := []rune(description)
	if len(r) > descriptionPreview {
		return string(r[:descriptionPreview])
	}
	return description
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
