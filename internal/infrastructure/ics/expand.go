package ics

import (
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"StudyPlanner/internal/domain"
)

// recurrenceIDLayout is the canonical textual form of an instance identity:
// the instance start in UTC. Generated instances and RECURRENCE-ID overrides
// are both rendered through it so key-addressed patching lines up.
const recurrenceIDLayout = "20060102T150405Z"

// maxInstancesPerEvent caps runaway RRULEs.
const maxInstancesPerEvent = 1000

// expand turns parsed events into a deduplicated occurrence sequence within
// [now, now+horizon]. Two passes: masters are expanded into a flat instance
// map keyed by (UID, recurrence id), then overrides and cancellations are
// applied as key-addressed patches. For a contested key the higher SEQUENCE
// wins; cancelled instances are dropped. The result is sorted so identical
// input always yields an identical sequence.
func expand(events []parsedEvent, now time.Time, horizon time.Duration) ([]domain.RawOccurrence, []domain.ParseError) {
	var parseErrs []domain.ParseError
	windowEnd := now.Add(horizon)

	var masters, overrides []parsedEvent
	for _, ev := range events {
		if ev.RecurrenceID != nil {
			overrides = append(overrides, ev)
		} else {
			masters = append(masters, ev)
		}
	}

	instances := make(map[domain.OccurrenceKey]domain.RawOccurrence)
	upsert := func(occ domain.RawOccurrence) {
		if prev, ok := instances[occ.Key()]; ok && prev.Sequence > occ.Sequence {
			return
		}
		instances[occ.Key()] = occ
	}

	for _, ev := range masters {
		if ev.RawRRule == "" {
			upsert(makeOccurrence(ev, ev.Start, ev.End, ""))
			continue
		}

		starts, err := recurrenceStarts(ev, now, windowEnd)
		if err != nil {
			parseErrs = append(parseErrs, domain.ParseError{
				SourceID: ev.SourceID,
				UID:      ev.UID,
				Reason:   "bad RRULE: " + err.Error(),
			})
			continue
		}

		duration := ev.End.Sub(ev.Start)
		for _, start := range starts {
			recID := start.UTC().Format(recurrenceIDLayout)
			upsert(makeOccurrence(ev, start, start.Add(duration), recID))
		}
	}

	for _, ov := range overrides {
		recID := ov.RecurrenceID.UTC().Format(recurrenceIDLayout)
		upsert(makeOccurrence(ov, ov.Start, ov.End, recID))
	}

	occs := make([]domain.RawOccurrence, 0, len(instances))
	for _, occ := range instances {
		if occ.Cancelled {
			continue
		}
		if occ.StartUTC.Before(now) || occ.StartUTC.After(windowEnd) {
			continue
		}
		occs = append(occs, occ)
	}

	sort.Slice(occs, func(i, j int) bool {
		a, b := occs[i], occs[j]
		if !a.StartUTC.Equal(b.StartUTC) {
			return a.StartUTC.Before(b.StartUTC)
		}
		if a.SourceUID != b.SourceUID {
			return a.SourceUID < b.SourceUID
		}
		return a.RecurrenceID < b.RecurrenceID
	})

	return occs, parseErrs
}

// recurrenceStarts expands an RRULE within the window, honoring EXDATE.
func recurrenceStarts(ev parsedEvent, now, windowEnd time.Time) ([]time.Time, error) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		return nil, err
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	loc := ev.Start.Location()
	starts := set.Between(now.In(loc), windowEnd.In(loc), true)
	if len(starts) > maxInstancesPerEvent {
		starts = starts[:maxInstancesPerEvent]
	}
	return starts, nil
}

func makeOccurrence(ev parsedEvent, start, end time.Time, recurrenceID string) domain.RawOccurrence {
	return domain.RawOccurrence{
		SourceUID:    ev.UID,
		RecurrenceID: recurrenceID,
		Summary:      ev.Summary,
		Description:  ev.Description,
		Location:     ev.Location,
		Categories:   ev.Categories,
		StartUTC:     start.UTC(),
		EndUTC:       end.UTC(),
		Sequence:     ev.Sequence,
		Cancelled:    ev.Cancelled,
	}
}
