package ics

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	ical "github.com/arran4/golang-ical"

	"StudyPlanner/internal/domain"
)

// parsedEvent is one VEVENT as read from the feed, before recurrence
// expansion. Overrides carry a RecurrenceID; masters do not.
type parsedEvent struct {
	SourceID string

	UID      string
	Sequence int

	Summary     string
	Description string
	Location    string
	Categories  []string

	Start time.Time
	End   time.Time

	RawRRule     string
	ExDates      []time.Time
	RecurrenceID *time.Time

	Cancelled bool
	// ZoneAssumed is set when a zone-less local time was interpreted in the
	// feed's declared default zone. The source logs the assumption.
	ZoneAssumed bool
}

// parseCalendar parses one ICS payload into events. Per-event failures are
// collected as ParseError and the offending entry is skipped; only a payload
// that cannot be read as a calendar at all yields zero events.
func parseCalendar(sourceID string, body []byte, defaultZone *time.Location) ([]parsedEvent, []domain.ParseError) {
	var parseErrs []domain.ParseError

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		parseErrs = append(parseErrs, domain.ParseError{
			SourceID: sourceID,
			Reason:   "unreadable calendar: " + err.Error(),
		})
		return nil, parseErrs
	}

	events := make([]parsedEvent, 0, len(cal.Events()))
	for _, ve := range cal.Events() {
		ev, perr := parseVEvent(sourceID, ve, defaultZone)
		if perr != nil {
			parseErrs = append(parseErrs, *perr)
			continue
		}
		events = append(events, ev)
	}

	return events, parseErrs
}

func parseVEvent(sourceID string, ve *ical.VEvent, defaultZone *time.Location) (parsedEvent, *domain.ParseError) {
	out := parsedEvent{SourceID: sourceID}

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, &domain.ParseError{SourceID: sourceID, Reason: "missing UID"}
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySequence); p != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(p.Value)); err == nil {
			out.Sequence = n
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = stripHTML(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}

	// CATEGORIES is comma-separated and may repeat. Raw property name keeps
	// us independent of library constant variants.
	for _, p := range ve.GetProperties("CATEGORIES") {
		for _, cat := range strings.Split(p.Value, ",") {
			if cat = strings.TrimSpace(cat); cat != "" {
				out.Categories = append(out.Categories, cat)
			}
		}
	}

	if p := ve.GetProperty("STATUS"); p != nil {
		out.Cancelled = strings.EqualFold(strings.TrimSpace(p.Value), "CANCELLED")
	}

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return out, &domain.ParseError{SourceID: sourceID, UID: out.UID, Reason: "missing DTSTART"}
	}
	start, assumed, err := parseTimeProp(startProp, defaultZone)
	if err != nil {
		return out, &domain.ParseError{SourceID: sourceID, UID: out.UID, Reason: "bad DTSTART: " + err.Error()}
	}
	out.Start = start
	out.ZoneAssumed = assumed

	out.End = out.Start
	if endProp := ve.GetProperty(ical.ComponentPropertyDtEnd); endProp != nil {
		end, endAssumed, err := parseTimeProp(endProp, defaultZone)
		if err != nil {
			return out, &domain.ParseError{SourceID: sourceID, UID: out.UID, Reason: "bad DTEND: " + err.Error()}
		}
		out.End = end
		out.ZoneAssumed = out.ZoneAssumed || endAssumed
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, _, err := parseTimeValue(part, tzidOf(p), defaultZone); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	if p := ve.GetProperty("RECURRENCE-ID"); p != nil {
		t, _, err := parseTimeValue(p.Value, tzidOf(p), defaultZone)
		if err != nil {
			return out, &domain.ParseError{SourceID: sourceID, UID: out.UID, Reason: "bad RECURRENCE-ID: " + err.Error()}
		}
		out.RecurrenceID = &t
	}

	return out, nil
}

func parseTimeProp(p *ical.IANAProperty, defaultZone *time.Location) (time.Time, bool, error) {
	return parseTimeValue(p.Value, tzidOf(p), defaultZone)
}

func tzidOf(p *ical.IANAProperty) string {
	if p.ICalParameters == nil {
		return ""
	}
	if tzs, ok := p.ICalParameters["TZID"]; ok && len(tzs) > 0 {
		return tzs[0]
	}
	return ""
}

// parseTimeValue handles the three DATE-TIME shapes an ICS feed produces:
// UTC ("...Z"), zoned (TZID param), and floating local time. Floating times
// and date-only values are interpreted in defaultZone; the second return
// reports that assumption.
func parseTimeValue(v, tzid string, defaultZone *time.Location) (time.Time, bool, error) {
	v = strings.TrimSpace(v)

	if strings.HasSuffix(v, "Z") {
		t, err := time.Parse("20060102T150405Z", v)
		return t, false, err
	}

	if tzid != "" {
		if loc, err := time.LoadLocation(tzid); err == nil {
			t, err := time.ParseInLocation("20060102T150405", v, loc)
			return t, false, err
		}
		// Unknown TZID: fall through and treat as floating.
	}

	if strings.Contains(v, "T") {
		t, err := time.ParseInLocation("20060102T150405", v, defaultZone)
		return t, true, err
	}

	// Date-only (all-day) value.
	t, err := time.ParseInLocation("20060102", v, defaultZone)
	return t, true, err
}

// stripHTML reduces Moodle's HTML-laden DESCRIPTION values to plain text.
// Plain-text descriptions pass through untouched.
func stripHTML(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	text := strings.Join(strings.Fields(doc.Text()), " ")
	if text == "" {
		return s
	}
	return text
}
