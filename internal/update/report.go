package update

import (
	"github.com/sudosubin/nix-chrome-extensions/internal/model"
	"github.com/sudosubin/nix-chrome-extensions/internal/shard"
)

// SiteStats counts item outcomes for one site.
type SiteStats struct {
	Checked   int
	Skipped   int
	New       int
	Changed   int
	Unchanged int
	Failed    int
}

// Report summarizes one shard run.
type Report struct {
	Shard      shard.Spec
	Items      int
	Downloaded int64
	Sites      map[string]*SiteStats
	Failures   []model.Failure
}

func newReport(spec shard.Spec, items int) *Report {
	return &Report{
		Shard: spec,
		Items: items,
		Sites: make(map[string]*SiteStats),
	}
}

func (r *Report) site(site string) *SiteStats {
	stats, ok := r.Sites[site]
	if !ok {
		stats = &SiteStats{}
		r.Sites[site] = stats
	}
	stats.Checked++
	return stats
}

func (r *Report) add(site string, result *Result) {
	stats := r.site(site)
	r.Downloaded += result.Size

	switch result.Outcome {
	case OutcomeSkipped:
		stats.Skipped++
	case OutcomeNew:
		stats.New++
	case OutcomeChanged:
		stats.Changed++
	case OutcomeUnchanged:
		stats.Unchanged++
	case OutcomeFailed:
		stats.Failed++
	}
}

// Totals sums the per-site counters.
func (r *Report) Totals() SiteStats {
	var total SiteStats
	for _, s := range r.Sites {
		total.Checked += s.Checked
		total.Skipped += s.Skipped
		total.New += s.New
		total.Changed += s.Changed
		total.Unchanged += s.Unchanged
		total.Failed += s.Failed
	}
	return total
}
