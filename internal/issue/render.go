// Package issue assembles and runs the daily publication: harvesting each
// recipient's sources, consolidating the items, rendering the HTML issue,
// and committing the cache snapshot once the issue is safely produced.
package issue

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/cparmet/finite-news/internal/models"
)

// DefaultTemplate is the built-in issue layout. Block placeholders vanish
// when their section has no content, so an issue with nothing to alert on
// carries no alerts section at all.
const DefaultTemplate = `<html>
<body>
<h1>Finite News</h1>
<p>[[DATE]]</p>
[[ALERTS_BLOCK]]
[[HEADLINES_BLOCK]]
[[WARNINGS_BLOCK]]
</body>
</html>`

// Render populates the template with the consolidated content. A section
// with no items is removed rather than rendered empty.
func Render(result *models.ConsolidationResult, template string, date time.Time) string {
	out := strings.ReplaceAll(template, "[[DATE]]", date.Format("Monday, January 2, 2006"))

	var alertLines []string
	for _, alert := range result.Alerts {
		alertLines = append(alertLines, renderItem(alert))
	}
	out = populateTemplate(out, "[[ALERTS_BLOCK]]", "<h3>🚨 Alert</h3>", alertLines)

	var headlineBlocks []string
	for _, c := range result.Categories {
		var lines []string
		for _, item := range c.Items {
			lines = append(lines, renderItem(item))
		}
		headlineBlocks = append(headlineBlocks, renderList(fmt.Sprintf("<h3>%s</h3>", html.EscapeString(c.Category)), lines))
	}
	out = strings.ReplaceAll(out, "[[HEADLINES_BLOCK]]", strings.Join(headlineBlocks, "\n"))

	var warningLines []string
	for _, w := range result.Warnings {
		line := w.Reason
		if w.Source != "" {
			line = w.Source + ": " + w.Reason
		}
		warningLines = append(warningLines, html.EscapeString(line))
	}
	out = populateTemplate(out, "[[WARNINGS_BLOCK]]", "<h3>🛠️ Production notes</h3>", warningLines)

	return out
}

// renderItem formats one item as HTML: images become img tags, linked
// items become anchors, and everything else is escaped text.
func renderItem(item models.RawItem) string {
	switch item.Kind {
	case models.KindImage:
		if item.URL != "" {
			return fmt.Sprintf("<img src=%q alt=%q>", item.URL, item.Text)
		}
		return item.Text
	default:
		text := html.EscapeString(item.Text)
		if item.URL != "" {
			return fmt.Sprintf("<a href=%q>%s</a>", item.URL, text)
		}
		return text
	}
}

// populateTemplate replaces placeholder with heading plus an HTML list of
// items, or with nothing when the list is empty.
func populateTemplate(template, placeholder, heading string, items []string) string {
	replacement := ""
	if len(items) > 0 {
		replacement = renderList(heading, items)
	}
	return strings.ReplaceAll(template, placeholder, replacement)
}

// renderList renders a heading followed by its items as an HTML list.
func renderList(heading string, items []string) string {
	if len(items) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("<ul>")
	for _, item := range items {
		b.WriteString("<li>")
		b.WriteString(item)
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
	return b.String()
}
