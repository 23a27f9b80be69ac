package issue

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cparmet/finite-news/internal/config"
	"github.com/cparmet/finite-news/internal/digest"
	"github.com/cparmet/finite-news/internal/harvest"
	"github.com/cparmet/finite-news/internal/models"
)

// maxConcurrentIssues bounds how many recipients are produced at once.
const maxConcurrentIssues = 4

// SnapshotStore is the cache persistence boundary.
type SnapshotStore interface {
	LoadSnapshot(ctx context.Context, recipient string) (models.Snapshot, error)
	CommitSnapshot(ctx context.Context, recipient string, snap models.Snapshot) error
}

// Harvester retrieves raw items for a set of sources.
type Harvester interface {
	FetchAll(ctx context.Context, sources []config.Source) (*harvest.Result, error)
}

// Issue is one produced edition for one recipient.
type Issue struct {
	Recipient string    `json:"recipient"`
	Date      time.Time `json:"date"`
	HTML      string    `json:"-"`
	Alerts    int       `json:"alerts"`
	Headlines int       `json:"headlines"`
	Warnings  int       `json:"warnings"`
}

// Runner produces the daily issues. Each recipient is an independent
// transaction: their snapshot is loaded once at the start and committed
// once after their issue is fully produced, so a failure for one recipient
// never blocks or corrupts another's.
type Runner struct {
	cfg     *config.Config
	store   SnapshotStore
	fetcher Harvester
	engine  *digest.Engine

	// DryRun produces issues without committing snapshots, so the next
	// real run still sees yesterday's cache.
	DryRun bool

	// Template overrides DefaultTemplate when set.
	Template string

	// OutputDir, when set, receives each rendered issue as
	// <recipient>.html.
	OutputDir string

	// Now supplies the issue date. Defaults to time.Now; tests pin it.
	Now func() time.Time

	mu     sync.RWMutex
	issues map[string]Issue
}

// NewRunner creates a Runner over the given collaborators.
func NewRunner(cfg *config.Config, store SnapshotStore, fetcher Harvester, engine *digest.Engine) *Runner {
	return &Runner{
		cfg:     cfg,
		store:   store,
		fetcher: fetcher,
		engine:  engine,
		issues:  make(map[string]Issue),
	}
}

// RunAll produces an issue for every configured recipient, at most four at
// a time. One recipient's failure does not stop the others; the first
// error is returned after all finish.
func (r *Runner) RunAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentIssues)

	for _, recipient := range r.cfg.Recipients {
		g.Go(func() error {
			if err := r.runOne(ctx, recipient); err != nil {
				slog.Error("issue production failed", "recipient", recipient.Name, "error", err)
				return fmt.Errorf("producing issue for %q: %w", recipient.Name, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// runOne produces a single recipient's issue end to end.
func (r *Runner) runOne(ctx context.Context, recipient config.Recipient) error {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	date := now()

	// A missing or unreadable cache degrades to "everything is new"; it
	// must never block the issue.
	prior, err := r.store.LoadSnapshot(ctx, recipient.Name)
	cacheWarnings := []models.Warning(nil)
	if err != nil {
		slog.Warn("cache snapshot unavailable, treating all items as new",
			"recipient", recipient.Name, "error", err)
		prior = models.Snapshot{}
		cacheWarnings = append(cacheWarnings, models.Warning{Reason: "cache unavailable, repeats may appear"})
	}

	sources := r.cfg.SourcesFor(recipient)
	harvested, err := r.fetcher.FetchAll(ctx, sources)
	if err != nil {
		return fmt.Errorf("harvesting: %w", err)
	}

	policies := make([]digest.SourcePolicy, len(sources))
	for i, src := range sources {
		policies[i] = policyFor(src)
	}

	result := r.engine.Consolidate(ctx, policies, harvested.Items, prior)
	result.Warnings = append(cacheWarnings, result.Warnings...)
	for _, f := range harvested.Failed {
		result.Warnings = append(result.Warnings, models.Warning{Source: f.Source, Reason: "harvest failed: " + f.Error})
	}

	// Production notes are opt-in per recipient.
	warningCount := len(result.Warnings)
	if !recipient.Diagnostics {
		result.Warnings = nil
	}

	template := r.Template
	if template == "" {
		template = DefaultTemplate
	}
	html := Render(result, template, date)

	headlineCount := 0
	for _, c := range result.Categories {
		headlineCount += len(c.Items)
	}

	r.mu.Lock()
	r.issues[recipient.Name] = Issue{
		Recipient: recipient.Name,
		Date:      date,
		HTML:      html,
		Alerts:    len(result.Alerts),
		Headlines: headlineCount,
		Warnings:  warningCount,
	}
	r.mu.Unlock()

	slog.Info("produced issue",
		"recipient", recipient.Name,
		"headlines", headlineCount,
		"alerts", len(result.Alerts),
		"warnings", warningCount,
	)

	if r.OutputDir != "" {
		path := filepath.Join(r.OutputDir, recipient.Name+".html")
		if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
			return fmt.Errorf("writing issue file: %w", err)
		}
	}

	if r.DryRun {
		slog.Info("dry run, snapshot not committed", "recipient", recipient.Name)
		return nil
	}

	// Commit only now: a failure anywhere above leaves the previous
	// snapshot in place, so tomorrow's run sees the same cache state.
	if err := r.store.CommitSnapshot(ctx, recipient.Name, result.NextSnapshot); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	return nil
}

// Issues returns the produced issues sorted by recipient name.
func (r *Runner) Issues() []Issue {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Issue, 0, len(r.issues))
	for _, issue := range r.issues {
		out = append(out, issue)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Recipient < out[j].Recipient })
	return out
}

// Issue returns the produced issue for the named recipient.
func (r *Runner) Issue(recipient string) (Issue, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	issue, ok := r.issues[recipient]
	return issue, ok
}

// policyFor converts a source's configuration into its filter policy.
func policyFor(src config.Source) digest.SourcePolicy {
	return digest.SourcePolicy{
		Name:                src.Name,
		Kind:                models.Kind(src.Kind),
		MinWords:            src.MinWords,
		MustContain:         src.MustContain,
		CantContain:         src.CantContain,
		CantBeginWith:       src.CantBeginWith,
		CantEndWith:         src.CantEndWith,
		RemoveText:          src.RemoveText,
		Preface:             src.Preface,
		MaxItems:            src.MaxItems,
		AllowedValues:       src.AllowedValues,
		SkipCrossDay:        src.SkipCrossDay,
		DailyUnique:         src.DailyUnique,
		SuppressZeroWarning: src.SuppressZeroWarning,
	}
}
