package aggregate

import (
	"fmt"
	"sort"
	"time"

	"duel-tracker/internal/domain"
)

// The all-time segment runs from the Unix epoch (not the zero time, which
// serializes as a garbage negative millisecond value) to a date far enough
// out to be effectively unbounded. Match timestamps are epoch milliseconds
// on the wire, so nothing representable falls before the epoch.
var (
	allTimeStart = time.Unix(0, 0).UTC()
	allTimeEnd   = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)
)

// Segments derives the selectable aggregation windows from a match set:
// one all-time segment, one per calendar year covered by the set's
// timestamp range (newest first), and one per calendar month that actually
// contains a match (newest first). An empty set yields only the all-time
// segment.
func Segments(records []domain.MatchRecord) []domain.TimeSegment {
	segments := []domain.TimeSegment{{
		ID:    "all",
		Label: "All time",
		Start: allTimeStart,
		End:   allTimeEnd,
		Kind:  domain.SegmentAll,
	}}
	if len(records) == 0 {
		return segments
	}

	minTS, maxTS := records[0].Timestamp, records[0].Timestamp
	months := make(map[string]time.Time)
	for _, m := range records {
		ts := m.Timestamp
		if ts.Before(minTS) {
			minTS = ts
		}
		if ts.After(maxTS) {
			maxTS = ts
		}
		monthStart := time.Date(ts.UTC().Year(), ts.UTC().Month(), 1, 0, 0, 0, 0, time.UTC)
		months[monthStart.Format("2006-01")] = monthStart
	}

	for year := maxTS.UTC().Year(); year >= minTS.UTC().Year(); year-- {
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		segments = append(segments, domain.TimeSegment{
			ID:    fmt.Sprintf("year-%d", year),
			Label: fmt.Sprintf("%d", year),
			Start: start,
			End:   start.AddDate(1, 0, 0).Add(-time.Nanosecond),
			Kind:  domain.SegmentYear,
		})
	}

	starts := make([]time.Time, 0, len(months))
	for _, start := range months {
		starts = append(starts, start)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].After(starts[j]) })
	for _, start := range starts {
		segments = append(segments, domain.TimeSegment{
			ID:    "month-" + start.Format("2006-01"),
			Label: start.Format("January 2006"),
			Start: start,
			End:   start.AddDate(0, 1, 0).Add(-time.Nanosecond),
			Kind:  domain.SegmentMonth,
		})
	}

	return segments
}

// FindSegment returns the segment with the given id, falling back to the
// all-time segment when id is empty or unknown.
func FindSegment(segments []domain.TimeSegment, id string) domain.TimeSegment {
	for _, s := range segments {
		if s.ID == id {
			return s
		}
	}
	return segments[0]
}
