package intel

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/deusflow/aznews/internal/news"
)

// InsufficientMarker is the sentence the digest prompt asks the model to
// answer with when the articles carry no banking news.
const InsufficientMarker = "Kifayət qədər xəbər tapılmadı"

var insufficientPhrases = []string{
	"kifayət qədər xəbər tapılmadı",
	"heç bir xəbər tapılmadı",
	"məlumat yoxdur",
	"no new articles",
}

// signalsInsufficient matches the marker only in short replies so a real
// digest quoting the phrase is not discarded.
func signalsInsufficient(reply string) bool {
	if utf8.RuneCountInString(reply) > 500 {
		return false
	}
	lower := strings.ToLower(reply)
	for _, p := range insufficientPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// FallbackDigest lists article titles grouped by source, in Telegram HTML.
func FallbackDigest(articles []news.Article) string {
	var b strings.Builder
	b.WriteString("<b>📋 Yeni xəbərlərin siyahısı</b>\n\n")
	b.WriteString("<i>AI təhlili bu dəfə aparılmadı. Yeni xəbərlərin başlıqları mənbələr üzrə verilir.</i>\n")

	for _, g := range news.GroupBySource(articles) {
		fmt.Fprintf(&b, "\n<b>%s</b> (%d)\n", escape(g.Source), len(g.Articles))
		for _, a := range g.Articles {
			if a.URL != "" {
				fmt.Fprintf(&b, "• <a href=\"%s\">%s</a>\n", html.EscapeString(a.URL), escape(a.Title))
			} else {
				fmt.Fprintf(&b, "• %s\n", escape(a.Title))
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// escape makes s safe inside Telegram HTML text.
func escape(s string) string {
	return escaper.Replace(s)
}

var (
	boldMarkdown  = regexp.MustCompile(`\*\*(.+?)\*\*`)
	heading       = regexp.MustCompile(`^#{1,6}\s*(.+?)\s*#*$`)
	bullet        = regexp.MustCompile(`^[*\-]\s+`)
	inlineNote    = regexp.MustCompile(`(?i)[(\[]\s*note:[^)\]]*[)\]]\s*`)
	noteLine      = regexp.MustCompile(`(?i)^note:`)
	extraNewlines = regexp.MustCompile(`\n{3,}`)
)

// Sanitize converts a markdown-flavoured model reply into Telegram HTML.
func Sanitize(text string) string {
	text = strings.ReplaceAll(text, "\r", "")
	text = inlineNote.ReplaceAllString(text, "")

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, raw := range lines {
		line := strings.TrimRight(raw, " \t")
		trimmed := strings.TrimSpace(line)
		if noteLine.MatchString(trimmed) {
			continue
		}

		line = escape(line)
		trimmed = escape(trimmed)
		switch {
		case heading.MatchString(trimmed):
			title := heading.FindStringSubmatch(trimmed)[1]
			line = "<b>" + strings.Trim(title, "*") + "</b>"
		case bullet.MatchString(trimmed):
			line = "• " + bullet.ReplaceAllString(trimmed, "")
		}
		line = boldMarkdown.ReplaceAllString(line, "<b>$1</b>")
		out = append(out, line)
	}

	text = strings.Join(out, "\n")
	text = extraNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
