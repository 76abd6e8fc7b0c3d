package sources

import (
	"fmt"
	"strings"
)

type constructor func(Fetcher, ...Option) Adapter

// registry lists the adapters in reporting order.
var registry = []struct {
	name string
	new  constructor
}{
	{"Banker.az", func(f Fetcher, o ...Option) Adapter { return NewBanker(f, o...) }},
	{"Marja.az", func(f Fetcher, o ...Option) Adapter { return NewMarja(f, o...) }},
	{"Report.az", func(f Fetcher, o ...Option) Adapter { return NewReport(f, o...) }},
	{"Fed.az", func(f Fetcher, o ...Option) Adapter { return NewFed(f, o...) }},
	{"Sonxeber.az", func(f Fetcher, o ...Option) Adapter { return NewSonxeber(f, o...) }},
	{"Iqtisadiyyat.az", func(f Fetcher, o ...Option) Adapter { return NewIqtisadiyyat(f, o...) }},
	{"Trend.az", func(f Fetcher, o ...Option) Adapter { return NewTrend(f, o...) }},
	{"APA.az", func(f Fetcher, o ...Option) Adapter { return NewAPA(f, o...) }},
	{"Qafqazinfo.az", func(f Fetcher, o ...Option) Adapter { return NewQafqazinfo(f, o...) }},
	{"Oxu.az", func(f Fetcher, o ...Option) Adapter { return NewOxu(f, o...) }},
}

// Names returns every adapter name in reporting order.
func Names() []string {
	names := make([]string, len(registry))
	for i, r := range registry {
		names[i] = r.name
	}
	return names
}

// All builds every adapter over f.
func All(f Fetcher, opts ...Option) []Adapter {
	adapters := make([]Adapter, len(registry))
	for i, r := range registry {
		adapters[i] = r.new(f, opts...)
	}
	return adapters
}

// ByName builds the adapter called name, ignoring case and an optional
// ".az" suffix.
func ByName(f Fetcher, name string, opts ...Option) (Adapter, error) {
	want := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".az")
	for _, r := range registry {
		if strings.TrimSuffix(strings.ToLower(r.name), ".az") == want {
			return r.new(f, opts...), nil
		}
	}
	return nil, fmt.Errorf("unknown source %q", name)
}
