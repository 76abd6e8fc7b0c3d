package news

import "testing"

func TestSnippet(t *testing.T) {
	t.Parallel()

	a := Article{Content: "Mərkəzi   Bank\n\nuçot dərəcəsini dəyişmədi"}
	if got := a.Snippet(100); got != "Mərkəzi Bank uçot dərəcəsini dəyişmədi" {
		t.Errorf("Snippet(100) = %q", got)
	}
	if got := a.Snippet(7); got != "Mərkəzi" {
		t.Errorf("Snippet(7) = %q", got)
	}
}

func TestLangDefault(t *testing.T) {
	t.Parallel()

	if got := (Article{}).Lang(); got != "az" {
		t.Errorf("Lang() = %q", got)
	}
	if got := (Article{Language: "en"}).Lang(); got != "en" {
		t.Errorf("Lang() = %q", got)
	}
}

func TestGroupBySourceKeepsOrder(t *testing.T) {
	t.Parallel()

	articles := []Article{
		{Title: "a", Source: "APA.az"},
		{Title: "b", Source: "Fed.az"},
		{Title: "c", Source: "APA.az"},
	}
	groups := GroupBySource(articles)
	if len(groups) != 2 {
		t.Fatalf("got %d groups", len(groups))
	}
	if groups[0].Source != "APA.az" || len(groups[0].Articles) != 2 || groups[0].Articles[1].Title != "c" {
		t.Errorf("unexpected first group: %+v", groups[0])
	}
	counts := CountBySource(articles)
	if counts[1].Name != "Fed.az" || counts[1].New() != 1 {
		t.Errorf("unexpected counts: %+v", counts)
	}
}

func TestTotals(t *testing.T) {
	t.Parallel()

	got := Totals([]SourceStats{
		{TotalFound: 20, ScrapedOK: 15, SkippedDuplicate: 3, Failed: 2},
		{TotalFound: 15, ScrapedOK: 13, SkippedDuplicate: 2},
		{},
	})
	want := SourceStats{TotalFound: 35, ScrapedOK: 28, SkippedDuplicate: 5, Failed: 2}
	if got != want {
		t.Errorf("Totals = %+v, want %+v", got, want)
	}
}
