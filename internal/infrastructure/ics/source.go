// Package ics implements the calendar normalizer: it fetches iCalendar feeds,
// parses them, expands recurrences within the horizon window, and emits a
// deduplicated occurrence sequence. Normalization is idempotent for a fixed
// feed body, clock, and horizon.
package ics

import (
	"context"
	"log/slog"
	"time"

	"StudyPlanner/internal/domain"
	"StudyPlanner/internal/ports"
)

// SourceConfig fixes the normalization window and zone assumptions.
type SourceConfig struct {
	Feeds []Feed
	// Horizon is the forward window within which recurring events are
	// expanded and tasks considered.
	Horizon time.Duration
	// DefaultZone interprets zone-less local times in the feed.
	DefaultZone *time.Location
}

// Source combines fetching, parsing, and recurrence expansion behind the
// OccurrenceSource port. One instance serves multiple feeds (one per course
// portal); results are merged before expansion.
type Source struct {
	fetcher *Fetcher
	cfg     SourceConfig
	logger  *slog.Logger
}

var _ ports.OccurrenceSource = (*Source)(nil)

// NewSource builds the normalizer source.
func NewSource(fetcher *Fetcher, cfg SourceConfig, logger *slog.Logger) *Source {
	if cfg.Horizon <= 0 {
		cfg.Horizon = 60 * 24 * time.Hour
	}
	if cfg.DefaultZone == nil {
		cfg.DefaultZone = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{fetcher: fetcher, cfg: cfg, logger: logger}
}

// FetchOccurrences downloads every configured feed and normalizes the merged
// event set. A failed download aborts the run; per-event parse failures are
// collected and returned alongside the survivors.
func (s *Source) FetchOccurrences(ctx context.Context, now time.Time) ([]domain.RawOccurrence, []domain.ParseError, error) {
	var events []parsedEvent
	var parseErrs []domain.ParseError

	for _, feed := range s.cfg.Feeds {
		body, err := s.fetcher.Fetch(ctx, feed)
		if err != nil {
			return nil, nil, err
		}

		evs, errs := parseCalendar(feed.ID, body, s.cfg.DefaultZone)
		for _, ev := range evs {
			if ev.ZoneAssumed {
				s.logger.Warn("floating time interpreted in default zone",
					"feed", feed.ID, "uid", ev.UID, "zone", s.cfg.DefaultZone.String())
			}
		}
		events = append(events, evs...)
		parseErrs = append(parseErrs, errs...)

		s.logger.Info("feed parsed", "feed", feed.ID, "events", len(evs), "skipped", len(errs))
	}

	occs, expandErrs := expand(events, now, s.cfg.Horizon)
	parseErrs = append(parseErrs, expandErrs...)

	s.logger.Info("normalization complete",
		"occurrences", len(occs), "parse_errors", len(parseErrs))

	return occs, parseErrs, nil
}
