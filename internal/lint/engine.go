package lint

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pavanpakhare/javanotes/internal/errors"
	"github.com/pavanpakhare/javanotes/internal/logging"
	"github.com/pavanpakhare/javanotes/internal/registry"
	"github.com/pavanpakhare/javanotes/internal/types"
)

// Rule checks one document against one policy. Implementations must be safe
// for concurrent use; the engine applies them from multiple goroutines.
type Rule interface {
	// ID is the stable rule identifier used in config and output.
	ID() string
	// DefaultSeverity is the severity applied when config does not override it.
	DefaultSeverity() Severity
	// Check returns the rule's diagnostics for one document.
	Check(doc *types.DocumentInfo, corpus *Corpus) []Diagnostic
}

// Engine applies the enabled rules to every registered document.
type Engine struct {
	registry  *registry.DocumentRegistry
	rules     map[string]Rule
	disabled  map[string]bool
	enabled   map[string]bool // non-nil restricts the run to these rules
	overrides map[string]Severity
	logger    logging.Logger
}

// NewEngine creates a lint engine with the default rule set.
func NewEngine(reg *registry.DocumentRegistry, logger logging.Logger) *Engine {
	e := &Engine{
		registry:  reg,
		rules:     make(map[string]Rule),
		disabled:  make(map[string]bool),
		overrides: make(map[string]Severity),
		logger:    logger.WithComponent("lint"),
	}
	for _, r := range defaultRules() {
		e.rules[r.ID()] = r
	}
	return e
}

// RuleIDs returns the sorted IDs of all registered rules.
func (e *Engine) RuleIDs() []string {
	ids := make([]string, 0, len(e.rules))
	for id := range e.rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Disable turns rules off by ID. Unknown IDs are an error so typos in config
// do not silently disable nothing.
func (e *Engine) Disable(ids ...string) error {
	for _, id := range ids {
		if _, ok := e.rules[id]; !ok {
			return fmt.Errorf("unknown lint rule %q", id)
		}
		e.disabled[id] = true
	}
	return nil
}

// EnableOnly restricts the run to the given rules. An empty list clears the
// restriction.
func (e *Engine) EnableOnly(ids []string) error {
	if len(ids) == 0 {
		e.enabled = nil
		return nil
	}
	enabled := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := e.rules[id]; !ok {
			return fmt.Errorf("unknown lint rule %q", id)
		}
		enabled[id] = true
	}
	e.enabled = enabled
	return nil
}

// SetSeverity overrides the severity of every diagnostic a rule produces.
func (e *Engine) SetSeverity(id string, sev Severity) error {
	if _, ok := e.rules[id]; !ok {
		return fmt.Errorf("unknown lint rule %q", id)
	}
	e.overrides[id] = sev
	return nil
}

// active returns the rules that will run, in stable ID order.
func (e *Engine) active() []Rule {
	var out []Rule
	for _, id := range e.RuleIDs() {
		if e.disabled[id] {
			continue
		}
		if e.enabled != nil && !e.enabled[id] {
			continue
		}
		out = append(out, e.rules[id])
	}
	return out
}

// Lint checks every document in the registry.
func (e *Engine) Lint(ctx context.Context) (*Report, error) {
	all := e.registry.GetAll()
	docs := make([]*types.DocumentInfo, 0, len(all))
	for _, rel := range e.registry.Paths() {
		docs = append(docs, all[rel])
	}
	return e.LintDocuments(ctx, docs)
}

// LintDocuments checks the given documents. Cross-file rules still resolve
// against the full registry, so a partial run (one changed file in watch
// mode) sees the whole corpus.
func (e *Engine) LintDocuments(ctx context.Context, docs []*types.DocumentInfo) (*Report, error) {
	start := time.Now()
	rules := e.active()
	corpus := &Corpus{registry: e.registry}

	var mu sync.Mutex
	var diags []Diagnostic

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for _, doc := range docs {
		doc := doc
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var local []Diagnostic
			for _, rule := range rules {
				found := rule.Check(doc, corpus)
				for i := range found {
					if sev, ok := e.overrides[rule.ID()]; ok {
						found[i].Severity = sev
					}
				}
				local = append(local, found...)
			}
			if len(local) > 0 {
				mu.Lock()
				diags = append(diags, local...)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortDiagnostics(diags)
	report := &Report{
		ID:          uuid.NewString(),
		GeneratedAt: time.Now(),
		Diagnostics: diags,
		Summary:     summarize(diags, len(docs), time.Since(start)),
	}

	e.logger.Info(ctx, "lint completed",
		"files", report.Summary.FilesChecked,
		"errors", report.Summary.Errors,
		"warnings", report.Summary.Warnings,
		"duration", report.Summary.Duration.String(),
	)

	return report, nil
}

// FromBuildErrors converts collected scan failures (unreadable files, broken
// front matter) into diagnostics so they surface next to rule findings.
func FromBuildErrors(buildErrs []errors.BuildError) []Diagnostic {
	diags := make([]Diagnostic, 0, len(buildErrs))
	for _, be := range buildErrs {
		sev := SeverityError
		if be.Severity == errors.ErrorSeverityWarning {
			sev = SeverityWarning
		}
		diags = append(diags, Diagnostic{
			Rule:     "parse",
			Severity: sev,
			Path:     be.Document,
			Line:     be.Line,
			Message:  be.Message,
		})
	}
	sortDiagnostics(diags)
	return diags
}

// MergeReports combines diagnostics from several sources into one report,
// recomputing the summary. filesChecked should be the corpus size.
func MergeReports(filesChecked int, duration time.Duration, sets ...[]Diagnostic) *Report {
	var diags []Diagnostic
	for _, set := range sets {
		diags = append(diags, set...)
	}
	sortDiagnostics(diags)
	return &Report{
		ID:          uuid.NewString(),
		GeneratedAt: time.Now(),
		Diagnostics: diags,
		Summary:     summarize(diags, filesChecked, duration),
	}
}
