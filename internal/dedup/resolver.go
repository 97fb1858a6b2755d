package dedup

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/jobsight/jobtracker/internal/jobs"
	"github.com/jobsight/jobtracker/internal/metrics"
	"github.com/jobsight/jobtracker/internal/normalize"
)

// Config holds the similarity thresholds and score weights. The combined
// threshold is arithmetically implied by the other two under the default
// weights; it stays a separately checkable knob in case the weights are ever
// decoupled.
type Config struct {
	TitleSimilarityMin    float64
	LocationSimilarityMin float64
	CombinedSimilarityMin float64
	TitleWeight           float64
	LocationWeight        float64
}

// DefaultConfig returns the standard thresholds and weights.
func DefaultConfig() Config {
	return Config{
		TitleSimilarityMin:    0.85,
		LocationSimilarityMin: 0.90,
		CombinedSimilarityMin: 0.80,
		TitleWeight:           0.7,
		LocationWeight:        0.3,
	}
}

// Resolver clusters one company's active postings at a time. Company scopes
// never share keys, so resolution across companies has no shared mutable
// state.
type Resolver struct {
	repo   jobs.PostingRepository
	cfg    Config
	logger *zap.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(repo jobs.PostingRepository, cfg Config, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{repo: repo, cfg: cfg, logger: logger}
}

// Report is the outcome of resolving every company: the groups found and
// applied, plus per-company failures. A failure in one company never aborts
// the others.
type Report struct {
	Groups     []jobs.DuplicateGroup
	Superseded int
	Failures   map[string]error
}

// view caches the derived normalized fields of one posting. Derived, never
// persisted.
type view struct {
	posting  jobs.JobPosting
	title    string
	location string
	terms    map[string]struct{}
	level    int
	hasLevel bool
}

func newView(p jobs.JobPosting) view {
	level, ok := normalize.Seniority(p.Title)
	return view{
		posting:  p,
		title:    normalize.Title(p.Title),
		location: normalize.Location(p.Location),
		terms:    normalize.KeyTerms(p.Title),
		level:    level,
		hasLevel: ok,
	}
}

type pairScore struct {
	title    float64
	location float64
	combined float64
}

func (r *Resolver) score(a, b view) pairScore {
	titleScore := SequenceSimilarity(a.title, b.title)
	if j := Jaccard(a.terms, b.terms); j > titleScore {
		titleScore = j
	}
	locationScore := SequenceSimilarity(a.location, b.location)
	if a.location == normalize.RemoteSentinel && b.location == normalize.RemoteSentinel {
		locationScore = 1.0
	}
	combined := r.cfg.TitleWeight*titleScore + r.cfg.LocationWeight*locationScore
	return pairScore{title: titleScore, location: locationScore, combined: combined}
}

// isDuplicate applies the three thresholds plus the seniority guard: two
// postings whose titles carry different recognizable levels ("Engineer I"
// vs "Engineer II") are never duplicates, however similar the text.
func (r *Resolver) isDuplicate(a, b view, s pairScore) bool {
	if a.hasLevel && b.hasLevel && a.level != b.level {
		return false
	}
	return s.title >= r.cfg.TitleSimilarityMin &&
		s.location >= r.cfg.LocationSimilarityMin &&
		s.combined >= r.cfg.CombinedSimilarityMin
}

// ResolveCompany clusters the company's active postings, applies the result,
// and returns the groups. Re-running on an unchanged active set is a no-op:
// superseded postings are no longer active, so they drop out of the input.
func (r *Resolver) ResolveCompany(ctx context.Context, company string) ([]jobs.DuplicateGroup, error) {
	postings, err := r.repo.ListByCompany(ctx, company, jobs.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("list active postings for %s: %w", company, err)
	}
	if len(postings) < 2 {
		return nil, nil
	}

	sort.Slice(postings, func(i, j int) bool { return postings[i].URL < postings[j].URL })

	views := make([]view, len(postings))
	for i, p := range postings {
		views[i] = newView(p)
	}

	// Duplicate edges form a graph; connected components give the groups.
	// Chaining through an intermediate posting is intentional.
	uf := newUnionFind(len(views))
	for i := 0; i < len(views); i++ {
		for j := i + 1; j < len(views); j++ {
			if r.isDuplicate(views[i], views[j], r.score(views[i], views[j])) {
				uf.union(i, j)
			}
		}
	}

	components := make(map[int][]int)
	for i := range views {
		root := uf.find(i)
		components[root] = append(components[root], i)
	}

	roots := make([]int, 0, len(components))
	for root, members := range components {
		if len(members) > 1 {
			roots = append(roots, root)
		}
	}
	sort.Ints(roots)

	var groups []jobs.DuplicateGroup
	for _, root := range roots {
		group, err := r.applyGroup(ctx, company, views, components[root])
		if err != nil {
			return groups, err
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// applyGroup picks the canonical member (earliest firstSeen, ties broken by
// smallest URL) and supersedes the rest.
func (r *Resolver) applyGroup(ctx context.Context, company string, views []view, member []int) (jobs.DuplicateGroup, error) {
	canonical := member[0]
	for _, idx := range member[1:] {
		a, b := views[idx].posting, views[canonical].posting
		if a.FirstSeen.Before(b.FirstSeen) || (a.FirstSeen.Equal(b.FirstSeen) && a.URL < b.URL) {
			canonical = idx
		}
	}

	group := jobs.DuplicateGroup{
		Company:      company,
		CanonicalURL: views[canonical].posting.URL,
	}
	for _, idx := range member {
		if idx == canonical {
			continue
		}
		s := r.score(views[canonical], views[idx])
		group.Members = append(group.Members, jobs.GroupMember{
			URL:   views[idx].posting.URL,
			Score: s.combined,
		})

		p := views[idx].posting
		p.Status = jobs.StatusSuperseded
		p.DuplicateOf = group.CanonicalURL
		if err := r.repo.Put(ctx, p); err != nil {
			return group, fmt.Errorf("supersede %s: %w", p.URL, err)
		}
	}
	sort.Slice(group.Members, func(i, j int) bool { return group.Members[i].URL < group.Members[j].URL })
	return group, nil
}

// ResolveAll runs resolution for every known company. Failures are recorded
// per company and never abort the remaining companies.
func (r *Resolver) ResolveAll(ctx context.Context) (Report, error) {
	companies, err := r.repo.ListCompanies(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list companies: %w", err)
	}

	report := Report{Failures: make(map[string]error)}
	for _, company := range companies {
		groups, err := r.ResolveCompany(ctx, company)
		if err != nil {
			report.Failures[company] = err
			r.logger.Error("duplicate resolution failed",
				zap.String("company", company),
				zap.Error(err),
			)
			continue
		}
		for _, g := range groups {
			report.Superseded += len(g.Members)
			metrics.ObserveDuplicateGroup(len(g.Members))
			r.logger.Info("duplicate group resolved",
				zap.String("company", company),
				zap.String("canonical", g.CanonicalURL),
				zap.Int("members", len(g.Members)),
			)
		}
		report.Groups = append(report.Groups, groups...)
	}
	return report, nil
}

// unionFind is a plain disjoint-set with path compression.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
}
