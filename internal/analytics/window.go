package analytics

import (
	"fmt"
	"strings"
	"time"

	"live-auction/internal/biddingerrors"
	"live-auction/internal/models"
)

// Window is the closed interval [Start, End] in unix millis that a report
// covers
type Window struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Contains reports whether ts falls inside the window, both ends included
func (w Window) Contains(ts int64) bool {
	return ts >= w.Start && ts <= w.End
}

// Minutes returns the window length in minutes
func (w Window) Minutes() float64 {
	return float64(w.End-w.Start) / float64(time.Minute/time.Millisecond)
}

// localLayouts are date-times without a zone, read as wall clock time in the
// caller's location
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
}

// dateOnly is read as UTC midnight, the way ISO date forms are
const dateOnly = "2006-01-02"

// ParseTime reads an ISO-8601 timestamp. A date-time without a zone is wall
// clock time in loc (time.Local when nil); a bare date is UTC midnight.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(dateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("analytics: %w - cannot parse %q as ISO-8601", biddingerrors.ErrInvalidWindow, s)
}

// ParseWindow builds an explicit window from two ISO-8601 strings, reading
// zone-less date-times in loc
func ParseWindow(start, end string, loc *time.Location) (Window, error) {
	s, err := ParseTime(start, loc)
	if err != nil {
		return Window{}, err
	}
	e, err := ParseTime(end, loc)
	if err != nil {
		return Window{}, err
	}
	w := Window{Start: s.UnixMilli(), End: e.UnixMilli()}
	if w.End < w.Start {
		return Window{}, fmt.Errorf("analytics: %w - end %s is before start %s", biddingerrors.ErrInvalidWindow, end, start)
	}
	return w, nil
}

// ResolveWindow picks the report window. The first source present wins:
// explicit, then room metadata, then the global event config, then [0, now].
// Zone-less config times are read in loc.
func ResolveWindow(explicit *Window, metadata *models.RoomMetadata, config *models.EventConfig, now time.Time, loc *time.Location) (Window, error) {
	switch {
	case explicit != nil:
		if explicit.End < explicit.Start {
			return Window{}, fmt.Errorf("analytics: %w - end before start", biddingerrors.ErrInvalidWindow)
		}
		return *explicit, nil

	case metadata != nil:
		w := Window{Start: metadata.StartTime, End: metadata.EndTime}
		if w.End == 0 {
			w.End = now.UnixMilli()
		}
		return w, nil

	case config != nil:
		w := Window{Start: 0, End: now.UnixMilli()}
		if config.StartTime != "" {
			t, err := ParseTime(config.StartTime, loc)
			if err != nil {
				return Window{}, err
			}
			w.Start = t.UnixMilli()
		}
		if config.EndTime != "" {
			t, err := ParseTime(config.EndTime, loc)
			if err != nil {
				return Window{}, err
			}
			w.End = t.UnixMilli()
		}
		return w, nil
	}

	return Window{Start: 0, End: now.UnixMilli()}, nil
}
