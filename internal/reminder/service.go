package reminder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/bluesky-social/indigo/api/bsky"
	"github.com/christophergentle/ratingchart-bsky/internal/client"
	"github.com/christophergentle/ratingchart-bsky/internal/source"
	"gopkg.in/yaml.v3"
)

// ContestSource lists contests
type ContestSource interface {
	FetchContests(ctx context.Context) ([]source.Contest, error)
}

// Poster publishes reminder posts
type Poster interface {
	Authenticate() error
	PostWithFacets(ctx context.Context, text string, facets []*bsky.RichtextFacet) error
}

// ResultsFunc posts contest results, reporting false when the results are
// not out yet
type ResultsFunc func(ctx context.Context) (bool, error)

// Options configures a Service
type Options struct {
	// Location is the zone start times are shown in
	Location *time.Location
	// CheckInterval is how often the contest list is fetched
	CheckInterval time.Duration
	// RetryInterval spaces retries of a reminder that failed or whose
	// results were not out yet
	RetryInterval time.Duration
	MaxAttempts   int
	// StatePath keeps planned reminders across restarts when set
	StatePath string
	DryRun    bool
	Now       func() time.Time
}

// Service plans reminders from the contest list and dispatches them as
// they come due. It is safe for concurrent use.
type Service struct {
	contests ContestSource
	poster   Poster
	results  ResultsFunc
	options  Options

	mu         sync.Mutex
	registered map[string]time.Time
	pending    []Reminder
	lastCheck  time.Time
}

// state is the file layout of Options.StatePath
type state struct {
	Registered map[string]time.Time `yaml:"registered"`
	Pending    []Reminder           `yaml:"pending"`
}

// NewService creates a service, loading saved state when StatePath
// exists. results may be nil to skip results reminders.
func NewService(contests ContestSource, poster Poster, results ResultsFunc, options Options) (*Service, error) {
	if options.Location == nil {
		options.Location = time.UTC
	}
	if options.CheckInterval <= 0 {
		options.CheckInterval = time.Hour
	}
	if options.RetryInterval <= 0 {
		options.RetryInterval = 10 * time.Minute
	}
	if options.MaxAttempts <= 0 {
		options.MaxAttempts = 12
	}
	if options.Now == nil {
		options.Now = time.Now
	}

	s := &Service{
		contests:   contests,
		poster:     poster,
		results:    results,
		options:    options,
		registered: make(map[string]time.Time),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Run is the scheduled job: it refreshes the plan when CheckInterval has
// passed and then dispatches whatever is due
func (s *Service) Run(ctx context.Context) error {
	s.mu.Lock()
	due := s.lastCheck.IsZero() || s.options.Now().Sub(s.lastCheck) >= s.options.CheckInterval
	s.mu.Unlock()

	var checkErr error
	if due {
		checkErr = s.Check(ctx)
	}
	return errors.Join(checkErr, s.Dispatch(ctx))
}

// Check fetches the contest list and plans reminders for new contests
func (s *Service) Check(ctx context.Context) error {
	contests, err := s.contests.FetchContests(ctx)
	if err != nil {
		return fmt.Errorf("failed to check contests: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.options.Now()
	s.lastCheck = now
	reminders, fresh := Plan(contests, s.registered, now)
	if len(fresh) == 0 {
		log.Println("There is no new contest")
		return nil
	}

	for _, c := range fresh {
		s.registered[c.ID] = c.Start
		log.Printf("Planned reminders for %s starting %s", c.ID, c.Start.In(s.options.Location).Format(time.RFC3339))
	}
	// Contests long past can never be planned again.
	for id, start := range s.registered {
		if now.Sub(start) > 7*24*time.Hour {
			delete(s.registered, id)
		}
	}
	s.pending = append(s.pending, reminders...)
	s.sortPending()
	return s.save()
}

// Dispatch runs every reminder that is due. Failed reminders, and results
// not out yet, are retried after RetryInterval until MaxAttempts.
func (s *Service) Dispatch(ctx context.Context) error {
	s.mu.Lock()
	now := s.options.Now()
	var due, later []Reminder
	for _, r := range s.pending {
		if r.At.After(now) {
			later = append(later, r)
		} else {
			due = append(due, r)
		}
	}
	s.pending = later
	s.mu.Unlock()

	if len(due) == 0 {
		return nil
	}

	var errs []error
	var retry []Reminder
	for _, r := range due {
		done, err := s.fire(ctx, r)
		if err != nil {
			errs = append(errs, err)
		}
		if done {
			continue
		}
		r.Attempts++
		if r.Attempts >= s.options.MaxAttempts {
			log.Printf("Giving up on %s reminder for %s after %d attempts", r.Kind, contestIDs(r), r.Attempts)
			continue
		}
		r.At = now.Add(s.options.RetryInterval)
		retry = append(retry, r)
	}

	s.mu.Lock()
	s.pending = append(s.pending, retry...)
	s.sortPending()
	if err := s.save(); err != nil {
		errs = append(errs, err)
	}
	s.mu.Unlock()
	return errors.Join(errs...)
}

// fire runs one reminder and reports whether it is finished with
func (s *Service) fire(ctx context.Context, r Reminder) (bool, error) {
	if r.Kind == Results {
		if s.results == nil {
			return true, nil
		}
		posted, err := s.results(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to post results for %s: %w", contestIDs(r), err)
		}
		if !posted {
			log.Printf("Results for %s are not out yet", contestIDs(r))
		}
		return posted, nil
	}

	text, links := Message(r, s.options.Location)
	if s.options.DryRun || s.poster == nil {
		log.Printf("Dry run mode: Skipping reminder post\n%s", text)
		return true, nil
	}
	if err := s.poster.Authenticate(); err != nil {
		return false, fmt.Errorf("failed to authenticate with Bluesky: %w", err)
	}
	text = client.TruncateText(text, client.MaxPostLength)
	facets := client.FacetsWithin(client.CreateLinkFacets(text, links), len(text))
	if err := s.poster.PostWithFacets(ctx, text, facets); err != nil {
		return false, fmt.Errorf("failed to post %s reminder for %s: %w", r.Kind, contestIDs(r), err)
	}
	log.Printf("Posted %s reminder for %s", r.Kind, contestIDs(r))
	return true, nil
}

// Pending returns a copy of the planned reminders in due order
func (s *Service) Pending() []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Reminder(nil), s.pending...)
}

func (s *Service) sortPending() {
	sort.SliceStable(s.pending, func(i, j int) bool {
		return s.pending[i].At.Before(s.pending[j].At)
	})
}

func (s *Service) load() error {
	if s.options.StatePath == "" {
		return nil
	}
	data, err := os.ReadFile(s.options.StatePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read reminder state: %w", err)
	}

	var st state
	if err := yaml.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("failed to parse reminder state: %w", err)
	}
	if st.Registered != nil {
		s.registered = st.Registered
	}
	s.pending = st.Pending
	s.sortPending()
	log.Printf("Loaded reminder state: %d contests, %d pending reminders", len(s.registered), len(s.pending))
	return nil
}

// save writes the state file; callers hold mu
func (s *Service) save() error {
	if s.options.StatePath == "" {
		return nil
	}
	data, err := yaml.Marshal(state{Registered: s.registered, Pending: s.pending})
	if err != nil {
		return fmt.Errorf("failed to encode reminder state: %w", err)
	}
	if err := os.WriteFile(s.options.StatePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write reminder state: %w", err)
	}
	return nil
}

func contestIDs(r Reminder) string {
	ids := ""
	for i, c := range r.Contests {
		if i > 0 {
			ids += ","
		}
		ids += c.ID
	}
	return ids
}
