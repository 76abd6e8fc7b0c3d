package telegram

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// labelReserve is kept free in every part for the "(i/n)\n" prefix.
const labelReserve = 16

// Split cuts text into parts that fit limit once labelled. Cuts fall on
// line ends where possible, then on spaces, and only then inside a word.
// Joining the parts gives back text exactly.
func Split(text string, limit int) []string {
	if units(text) <= limit {
		return []string{text}
	}
	budget := limit - labelReserve
	if budget < 1 {
		budget = 1
	}

	var parts []string
	var cur strings.Builder
	curUnits := 0
	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
			curUnits = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" {
			continue
		}
		n := units(line)
		if curUnits+n <= budget {
			cur.WriteString(line)
			curUnits += n
			continue
		}
		flush()
		for units(line) > budget {
			head := cutWords(line, budget)
			parts = append(parts, head)
			line = line[len(head):]
		}
		cur.WriteString(line)
		curUnits = units(line)
	}
	flush()
	return parts
}

// cutWords returns the longest prefix of s within budget that ends after a
// space, or a hard cut when s has no space in range.
func cutWords(s string, budget int) string {
	used, end, lastSpace := 0, 0, -1
	for i, r := range s {
		w := runeUnits(r)
		if used+w > budget {
			break
		}
		used += w
		end = i + utf8.RuneLen(r)
		if unicode.IsSpace(r) {
			lastSpace = end
		}
	}
	if lastSpace > 0 {
		return s[:lastSpace]
	}
	if end == 0 {
		_, size := utf8.DecodeRuneInString(s)
		return s[:size]
	}
	return s[:end]
}

// Label prefixes each part with "(i/n)" when there is more than one.
func Label(parts []string) []string {
	if len(parts) < 2 {
		return parts
	}
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = fmt.Sprintf("(%d/%d)\n%s", i+1, len(parts), p)
	}
	return out
}

// units counts UTF-16 code units, which is how Telegram measures length.
func units(s string) int {
	n := 0
	for _, r := range s {
		n += runeUnits(r)
	}
	return n
}

func runeUnits(r rune) int {
	if r > 0xFFFF {
		return 2
	}
	return 1
}
