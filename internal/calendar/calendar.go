package calendar

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"gradticket-bot/pkg/apperrors"
)

// Calendar is the ordered, deduplicated set of canonical ceremony dates for
// the current season, rebuilt from the scraped page every cycle. Keys keep
// the raw text of the first line that introduced the day; insertion order
// follows scrape order.
type Calendar struct {
	keys  []string
	slots map[string]map[string]struct{}
	days  map[string]time.Time
}

// Entry is one ceremony day with its time-slot variants, used by the admin
// API and the rendered listing.
type Entry struct {
	Date  string   `json:"date"`
	Slots []string `json:"slots"`
}

var weekdayPrefix = regexp.MustCompile(`(?i)^(monday|tuesday|wednesday|thursday|friday|saturday|sunday),?\s+`)

var meridiemReplacer = strings.NewReplacer(
	"a.m.", "AM", "A.M.", "AM",
	"p.m.", "PM", "P.M.", "PM",
	" at ", " ",
)

// ParseDate parses free-form date text the way users and the ceremony page
// write it. The weekday prefix and "a.m./p.m." spellings are normalised
// before handing off to dateparse.
func ParseDate(text string) (time.Time, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = weekdayPrefix.ReplaceAllString(cleaned, "")
	cleaned = meridiemReplacer.Replace(cleaned)
	if cleaned == "" {
		return time.Time{}, apperrors.ErrUnparseableDate
	}
	t, err := dateparse.ParseAny(cleaned)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", apperrors.ErrUnparseableDate, text)
	}
	return t, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Build folds the scraped lines into a calendar. A line that parses as a
// date-time opens a new ceremony day unless that day already has a key, in
// which case it only re-points the current day; a line that parses to
// midnight is page noise and is skipped; an unparseable line is a time-slot
// variant of the current day.
func Build(rawLines []string) *Calendar {
	cal := &Calendar{
		slots: make(map[string]map[string]struct{}),
		days:  make(map[string]time.Time),
	}

	currentDate := ""
	for _, line := range rawLines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		dt, err := ParseDate(line)
		if err != nil {
			if currentDate != "" {
				cal.slots[currentDate][line] = struct{}{}
			}
			continue
		}

		// Midnight means the line carried no time component; the page
		// repeats plain dates as section headers.
		if dt.Hour() == 0 {
			continue
		}

		day := truncateToDay(dt)
		key, ok := cal.keyForDay(day)
		if !ok {
			key = line
			cal.keys = append(cal.keys, key)
			cal.slots[key] = make(map[string]struct{})
			cal.days[key] = day
		}
		currentDate = key
	}

	return cal
}

// NewCalendar builds a calendar from explicit entries, bypassing the page
// parsing rules. Entries with unparseable dates are dropped.
func NewCalendar(entries []Entry) *Calendar {
	cal := &Calendar{
		slots: make(map[string]map[string]struct{}),
		days:  make(map[string]time.Time),
	}
	for _, e := range entries {
		dt, err := ParseDate(e.Date)
		if err != nil {
			continue
		}
		if _, ok := cal.days[e.Date]; ok {
			continue
		}
		cal.keys = append(cal.keys, e.Date)
		cal.days[e.Date] = truncateToDay(dt)
		cal.slots[e.Date] = make(map[string]struct{})
		for _, s := range e.Slots {
			cal.slots[e.Date][s] = struct{}{}
		}
	}
	return cal
}

func (c *Calendar) keyForDay(day time.Time) (string, bool) {
	for _, key := range c.keys {
		if c.days[key].Equal(day) {
			return key, true
		}
	}
	return "", false
}

// Resolve maps raw date text onto a canonical key by parsed-date equality,
// so "December 16, 2016" and "Dec 16 2016" land on the same key. It returns
// ErrUnparseableDate when the text does not parse at all, and
// ErrCeremonyNotFound when it parses to a day with no ceremony.
func (c *Calendar) Resolve(rawDateText string) (string, error) {
	dt, err := ParseDate(rawDateText)
	if err != nil {
		return "", err
	}
	if key, ok := c.keyForDay(truncateToDay(dt)); ok {
		return key, nil
	}
	return "", fmt.Errorf("%w: %q", apperrors.ErrCeremonyNotFound, rawDateText)
}

// Keys returns the canonical ceremony dates in scrape order.
func (c *Calendar) Keys() []string {
	keys := make([]string, len(c.keys))
	copy(keys, c.keys)
	return keys
}

// Slots returns the time-slot variants recorded for a canonical key.
func (c *Calendar) Slots(key string) []string {
	set, ok := c.slots[key]
	if !ok {
		return nil
	}
	slots := make([]string, 0, len(set))
	for s := range set {
		slots = append(slots, s)
	}
	return slots
}

func (c *Calendar) Entries() []Entry {
	entries := make([]Entry, 0, len(c.keys))
	for _, key := range c.keys {
		entries = append(entries, Entry{Date: key, Slots: c.Slots(key)})
	}
	return entries
}

func (c *Calendar) Len() int {
	return len(c.keys)
}

// CurrentSeason derives the season label for the megathread title. The
// season word comes from the first ceremony's month; only the year is read
// from now, so a Fall thread titled in November carries the current year
// even when its ceremonies fall in January.
func (c *Calendar) CurrentSeason(now time.Time) (string, error) {
	if len(c.keys) == 0 {
		return "", apperrors.ErrCalendarEmpty
	}
	month := c.days[c.keys[0]].Month()
	var season string
	switch month {
	case time.December, time.November, time.January:
		season = "Fall"
	case time.May, time.April, time.June:
		season = "Spring"
	default:
		season = "Summer"
	}
	return fmt.Sprintf("%s %d", season, now.Year()), nil
}
