package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"StudyPlanner/internal/domain"
	"StudyPlanner/internal/ports"
)

// fallbackMinutes are the fixed per-kind defaults used when the batch holds
// no oracle-derived observation for a kind.
var fallbackMinutes = map[domain.Kind]int{
	domain.KindLecture:    0,
	domain.KindAssignment: 120,
	domain.KindExam:       240,
	domain.KindOther:      30,
}

// EffortConfig bounds how much run latency the oracle may consume.
type EffortConfig struct {
	CallTimeout time.Duration
	RunDeadline time.Duration
	Workers     int
	CacheSize   int
}

func (c EffortConfig) withDefaults() EffortConfig {
	if c.CallTimeout <= 0 {
		c.CallTimeout = 10 * time.Second
	}
	if c.RunDeadline <= 0 {
		c.RunDeadline = 30 * time.Second
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.CacheSize <= 0 {
		c.CacheSize = 1024
	}
	return c
}

// EffortEnricher attaches an effort estimate to every task in a batch. Oracle
// calls run concurrently up to a bounded worker count, each under its own
// timeout and all under a run-level deadline; any call that fails or misses
// the deadline degrades to a deterministic fallback, never a retry. The
// estimate cache is keyed by task content and shared across runs, so the
// oracle is never queried twice for identical-looking tasks.
type EffortEnricher struct {
	oracle ports.EffortOracle
	cache  *lru.Cache[string, int]
	cfg    EffortConfig
	logger *slog.Logger
}

// NewEffortEnricher builds the enricher around an oracle port.
func NewEffortEnricher(oracle ports.EffortOracle, cfg EffortConfig, logger *slog.Logger) (*EffortEnricher, error) {
	cfg = cfg.withDefaults()
	cache, err := lru.New[string, int](cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EffortEnricher{oracle: oracle, cache: cache, cfg: cfg, logger: logger}, nil
}

// Enrich returns a new task slice with effort fields populated. The input is
// never mutated.
func (e *EffortEnricher) Enrich(ctx context.Context, tasks []domain.CanonicalTask) []domain.CanonicalTask {
	out := make([]domain.CanonicalTask, len(tasks))
	copy(out, tasks)

	minutes := make([]int, len(tasks))
	fromOracle := make([]bool, len(tasks))
	failures := make([]error, len(tasks))

	var pending []int
	for i, t := range out {
		if t.Enriched() {
			minutes[i] = t.EstimatedEffortMinutes
			fromOracle[i] = t.EffortSource == domain.EffortFromOracle
			continue
		}
		if m, ok := e.cache.Get(cacheKey(queryFor(t))); ok {
			minutes[i] = m
			fromOracle[i] = true
			continue
		}
		pending = append(pending, i)
	}

	if len(pending) > 0 {
		// One oracle call per distinct content hash; expanded instances of a
		// recurring event share a single call and its result.
		groups := make(map[string][]int)
		for _, i := range pending {
			key := cacheKey(queryFor(out[i]))
			groups[key] = append(groups[key], i)
		}

		runCtx, cancel := context.WithTimeout(ctx, e.cfg.RunDeadline)
		defer cancel()

		var g errgroup.Group
		g.SetLimit(e.cfg.Workers)
		for key, idxs := range groups {
			key, idxs := key, idxs
			q := queryFor(out[idxs[0]])
			g.Go(func() error {
				callCtx, cancelCall := context.WithTimeout(runCtx, e.cfg.CallTimeout)
				defer cancelCall()

				m, err := e.oracle.EstimateEffort(callCtx, q)
				if err != nil {
					for _, i := range idxs {
						failures[i] = err
					}
					return nil
				}
				for _, i := range idxs {
					minutes[i] = m
					fromOracle[i] = true
				}
				e.cache.Add(key, m)
				return nil
			})
		}
		_ = g.Wait()
	}

	medians := kindMedians(out, minutes, fromOracle)

	fallbacks := 0
	for i, t := range out {
		if fromOracle[i] {
			out[i] = t.WithEffort(minutes[i], domain.EffortFromOracle)
			continue
		}
		m, ok := medians[t.Kind]
		if !ok {
			m = fallbackMinutes[t.Kind]
		}
		out[i] = t.WithEffort(m, domain.EffortFromFallback)
		fallbacks++
		if failures[i] != nil {
			e.logger.Warn("oracle call failed, using fallback",
				"task", t.TaskID, "kind", t.Kind,
				"tag", string(domain.OracleTag(failures[i])), "error", failures[i])
		}
	}

	e.logger.Info("effort enrichment complete",
		"tasks", len(out), "fallbacks", fallbacks)

	return out
}

func queryFor(t domain.CanonicalTask) ports.EffortQuery {
	return ports.EffortQuery{Kind: t.Kind, Title: t.Title, CourseCode: t.CourseCode}
}

// cacheKey hashes the estimate-relevant content so identical-looking tasks
// across runs share an entry.
func cacheKey(q ports.EffortQuery) string {
	sum := sha256.Sum256([]byte(string(q.Kind) + "\x00" + q.Title + "\x00" + q.CourseCode))
	return hex.EncodeToString(sum[:])
}

// kindMedians computes the median oracle-derived effort per kind in the
// batch. Lower-median on even counts keeps the result integral and
// deterministic.
func kindMedians(tasks []domain.CanonicalTask, minutes []int, fromOracle []bool) map[domain.Kind]int {
	byKind := make(map[domain.Kind][]int)
	for i, t := range tasks {
		if fromOracle[i] {
			byKind[t.Kind] = append(byKind[t.Kind], minutes[i])
		}
	}

	medians := make(map[domain.Kind]int, len(byKind))
	for kind, vals := range byKind {
		sort.Ints(vals)
		medians[kind] = vals[(len(vals)-1)/2]
	}
	return medians
}
