package reminder

import (
	"sort"
	"strings"
	"time"

	"github.com/christophergentle/ratingchart-bsky/internal/client"
	"github.com/christophergentle/ratingchart-bsky/internal/source"
)

// Kind says what a reminder does when it comes due
type Kind string

const (
	// Announce posts the day's contests 12 hours before they start
	Announce Kind = "announce"
	// Starting posts a last call 15 minutes before the start
	Starting Kind = "starting"
	// Results runs the rating chart post once the contests finish
	Results Kind = "results"
)

const (
	// Horizon is how close to its start a contest must be before it is
	// planned. Listings change, so contests further out are left alone.
	Horizon         = 24 * time.Hour
	AnnounceBefore  = 12 * time.Hour
	StartingBefore  = 15 * time.Minute
	ResultsAfterEnd = 30 * time.Second
)

// Reminder is one planned action for the contests sharing a start (or,
// for results, an end) time
type Reminder struct {
	Kind     Kind             `yaml:"kind"`
	At       time.Time        `yaml:"at"`
	Contests []source.Contest `yaml:"contests"`
	Attempts int              `yaml:"attempts,omitempty"`
}

// Plan picks the contests starting within Horizon of now that are not in
// registered and returns their reminders ordered by due time, along with
// the newly planned contests. Results are only planned for rated contests.
func Plan(contests []source.Contest, registered map[string]time.Time, now time.Time) ([]Reminder, []source.Contest) {
	var fresh []source.Contest
	for _, c := range contests {
		if _, ok := registered[c.ID]; ok {
			continue
		}
		if !c.Start.After(now) || c.Start.Sub(now) >= Horizon {
			continue
		}
		fresh = append(fresh, c)
	}

	var reminders []Reminder
	for _, group := range groupBy(fresh, func(c source.Contest) time.Time { return c.Start }) {
		start := group[0].Start
		// An announcement planned inside the last call window would
		// post right next to it.
		if start.Sub(now) > StartingBefore {
			reminders = append(reminders, Reminder{Kind: Announce, At: start.Add(-AnnounceBefore), Contests: group})
		}
		reminders = append(reminders, Reminder{Kind: Starting, At: start.Add(-StartingBefore), Contests: group})
	}

	var rated []source.Contest
	for _, c := range fresh {
		if c.Rated() {
			rated = append(rated, c)
		}
	}
	for _, group := range groupBy(rated, source.Contest.End) {
		reminders = append(reminders, Reminder{Kind: Results, At: group[0].End().Add(ResultsAfterEnd), Contests: group})
	}

	sort.SliceStable(reminders, func(i, j int) bool {
		return reminders[i].At.Before(reminders[j].At)
	})
	return reminders, fresh
}

// groupBy splits contests into groups sharing key, ordered by key
func groupBy(contests []source.Contest, key func(source.Contest) time.Time) [][]source.Contest {
	byKey := make(map[int64][]source.Contest)
	var keys []int64
	for _, c := range contests {
		k := key(c).Unix()
		if _, ok := byKey[k]; !ok {
			keys = append(keys, k)
		}
		byKey[k] = append(byKey[k], c)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	groups := make([][]source.Contest, 0, len(keys))
	for _, k := range keys {
		groups = append(groups, byKey[k])
	}
	return groups
}

// Message formats the post for an Announce or Starting reminder, with
// links over each contest title. loc sets the clock shown for the start.
func Message(r Reminder, loc *time.Location) (string, []client.Link) {
	titles := make([]string, 0, len(r.Contests))
	links := make([]client.Link, 0, len(r.Contests))
	for _, c := range r.Contests {
		title := c.Title
		if title == "" {
			title = c.ID
		}
		links = append(links, client.Link{Text: title, URL: c.URL})
		if !c.Rated() {
			title += " (unrated)"
		}
		titles = append(titles, title)
	}
	list := strings.Join(titles, " · ")

	if r.Kind == Starting {
		return "⏰ Starting in 15 minutes: " + list, links
	}
	if loc == nil {
		loc = time.UTC
	}
	start := r.Contests[0].Start.In(loc)
	return "📅 Today at " + start.Format("15:04 MST") + ": " + list, links
}
