package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/deusflow/aznews/internal/config"
	"github.com/deusflow/aznews/internal/metrics"
	"github.com/deusflow/aznews/internal/report"
)

type nopFetcher struct{}

func (nopFetcher) FetchWith(context.Context, string, http.Header) *goquery.Document { return nil }

func TestBuildJobs(t *testing.T) {
	list := []config.Source{
		{Name: "Banker.az", Enabled: true, Pages: 2},
		{Name: "Report.az", Enabled: false, Pages: 1},
		{Name: "Oxu.az", Enabled: true, Pages: 3},
	}

	tests := []struct {
		name  string
		ov    Overrides
		want  []string
		pages []int
	}{
		{"enabled only", Overrides{}, []string{"Banker.az", "Oxu.az"}, []int{2, 3}},
		{"pages override", Overrides{Pages: 1}, []string{"Banker.az", "Oxu.az"}, []int{1, 1}},
		{"explicit selection enables", Overrides{Sources: []string{"report", "oxu.az"}}, []string{"Report.az", "Oxu.az"}, []int{1, 3}},
		{"unlisted source", Overrides{Sources: []string{"apa"}}, []string{"APA.az"}, []int{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs, err := BuildJobs(nopFetcher{}, list, tt.ov)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(jobs) != len(tt.want) {
				t.Fatalf("got %d jobs, want %d", len(jobs), len(tt.want))
			}
			for i, j := range jobs {
				if j.Adapter.Name() != tt.want[i] || j.Pages != tt.pages[i] {
					t.Errorf("job %d = %s/%d, want %s/%d", i, j.Adapter.Name(), j.Pages, tt.want[i], tt.pages[i])
				}
			}
		})
	}
}

func TestBuildJobsErrors(t *testing.T) {
	if _, err := BuildJobs(nopFetcher{}, []config.Source{{Name: "Banker.az"}}, Overrides{}); err == nil {
		t.Error("expected an error when nothing is enabled")
	}
	if _, err := BuildJobs(nopFetcher{}, config.DefaultSources(), Overrides{Sources: []string{"example.com"}}); err == nil {
		t.Error("expected an error for an unknown source")
	}
	if _, err := BuildJobs(nopFetcher{}, []config.Source{{Name: "Nowhere.az", Enabled: true, Pages: 1}}, Overrides{}); err == nil {
		t.Error("expected an error for a source without an adapter")
	}
}

func TestAbortStartupInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep := &fakeReporter{}
	m := metrics.New()

	err := abortStartup(ctx, rep, m, time.Now(), "Failed to connect to database", context.Canceled)
	if err != nil {
		t.Fatalf("interrupt during startup returned %v, want nil", err)
	}
	if len(rep.alerts) != 0 {
		t.Errorf("unexpected alerts: %v", rep.alerts)
	}
	if len(rep.operational) != 1 || rep.operational[0].Status != report.StatusInterrupted {
		t.Fatalf("operational reports = %+v, want one interrupted", rep.operational)
	}
	if rep.cancelled {
		t.Error("report sent with a cancelled context")
	}
	if !m.Healthy() {
		t.Error("interrupt marked the process unhealthy")
	}
}

func TestAbortStartupFailure(t *testing.T) {
	rep := &fakeReporter{}
	m := metrics.New()

	err := abortStartup(context.Background(), rep, m, time.Now(), "Failed to connect to database", errors.New("connection refused"))
	if err == nil || !strings.Contains(err.Error(), "Failed to connect to database: connection refused") {
		t.Fatalf("err = %v", err)
	}
	if len(rep.alerts) != 1 || len(rep.operational) != 0 {
		t.Errorf("alerts = %v, operational = %d", rep.alerts, len(rep.operational))
	}
	if m.Healthy() {
		t.Error("startup failure should mark the process unhealthy")
	}
}
