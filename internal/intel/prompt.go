package intel

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/deusflow/aznews/internal/news"
)

func filterPrompt(batch []news.Article, snippet int) string {
	var b strings.Builder
	b.WriteString(`Aşağıda nömrələnmiş xəbərlər var. Bank sektoru, maliyyə bazarları, kreditlər, depozitlər, valyuta məzənnələri, sığorta, investisiyalar, Mərkəzi Bankın qərarları və pul-kredit siyasəti ilə birbaşa bağlı olanları seç.

Cavabı YALNIZ vergüllə ayrılmış nömrələr şəklində ver, məsələn: 1, 4, 7
Heç bir uyğun xəbər yoxdursa, yalnız 0 yaz.

XƏBƏRLƏR:
`)
	for i, a := range batch {
		fmt.Fprintf(&b, "%d. [%s] %s\n   %s\n", i+1, a.Source, a.Title, a.Snippet(snippet))
	}
	return b.String()
}

func digestPrompt(articles []news.Article, stats []news.SourceStats, maxArticles, snippet int) string {
	var overview strings.Builder
	for _, s := range stats {
		if s.New() > 0 {
			fmt.Fprintf(&overview, "- %s: %d xəbər\n", s.Name, s.New())
		}
	}

	var list strings.Builder
	for i, a := range articles {
		if i >= maxArticles {
			break
		}
		fmt.Fprintf(&list, "%d. [%s] %s\n   %s...\n\n", i+1, a.Source, a.Title, a.Snippet(snippet))
	}

	return fmt.Sprintf(`Aşağıdakı bank və maliyyə xəbərlərindən kəşfiyyat icmalı hazırla.

MƏNBƏLƏR:
%s
TOPLAM: %d yeni xəbər

XƏBƏRLƏR:
%s
GÖSTƏRİŞLƏR:
1. İcmal Azərbaycan dilində olmalıdır
2. Yalnız bank, maliyyə və pul-kredit siyasəti ilə bağlı mühüm xəbərləri əhatə et
3. Xəbərləri mövzulara görə qruplaşdır (məsələn: Banklar, Mərkəzi Bank, Valyuta, Sığorta)
4. Hər mövzu üzrə 3-5 qısa bənd ver
5. Qısa giriş və yekun əlavə et
6. Əgər bank və maliyyə ilə bağlı kifayət qədər xəbər yoxdursa, yalnız bu cümləni yaz: %s

İCMAL:`, overview.String(), len(articles), list.String(), InsufficientMarker)
}

var digits = regexp.MustCompile(`\d+`)

// parseIndices reads 1-based indices from a filter reply. It returns
// ok=false when the reply carries no usable number, which callers treat
// as "keep everything". A lone 0 means nothing matched.
func parseIndices(reply string, n int) ([]int, bool) {
	matches := digits.FindAllString(reply, -1)
	if len(matches) == 0 {
		return nil, false
	}

	seen := make(map[int]bool)
	var out []int
	zero := false
	for _, m := range matches {
		i, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		if i == 0 {
			zero = true
			continue
		}
		if i > n || seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, i)
	}
	if len(out) == 0 {
		if zero {
			return []int{}, true
		}
		return nil, false
	}
	slices.Sort(out)
	return out, true
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
