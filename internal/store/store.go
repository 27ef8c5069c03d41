// Package store holds the shared client-side view of the user's cloud
// resources. It polls the API on a fixed interval, supports manual
// refresh after mutating actions, and computes the derived display
// values the views need. Consistency is eventual: the store is the only
// writer, everything else reads snapshots.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/UCCNetsoc/cloud/internal/cloud"
	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// initialRetries bounds how often the initial fetch is re-attempted when
// the API returns a null collection.
const initialRetries = 2

// Fetcher is the slice of the API client the store needs.
type Fetcher interface {
	Instances(ctx context.Context, typ cloud.Type) ([]cloud.Instance, error)
	AllTemplates(ctx context.Context) ([]cloud.Template, error)
}

// Store is the resource polling store. All fields behind mu; reads are
// served from copies so callers never share the underlying slices.
type Store struct {
	mu         sync.RWMutex
	instances  []cloud.Instance
	derived    []Derived
	templates  []cloud.Template
	generation uuid.UUID
	lastErr    error

	fetcher   Fetcher
	scheduler *gocron.Scheduler
	interval  time.Duration
	log       *zap.SugaredLogger

	subscribers []chan struct{}

	// now is swappable for tests of derived values.
	now func() time.Time
}

// New builds a store polling at the given interval.
func New(fetcher Fetcher, interval time.Duration, log *zap.SugaredLogger) *Store {
	return &Store{
		fetcher:  fetcher,
		interval: interval,
		log:      log,
		now:      time.Now,
	}
}

// Start performs the initial fetch (with a small bounded number of
// retries if the instance collection comes back null) and begins the
// periodic refresh.
func (s *Store) Start(ctx context.Context) {
	for attempt := 0; attempt <= initialRetries; attempt++ {
		s.Refresh(ctx)
		s.mu.RLock()
		fetched := s.instances != nil
		s.mu.RUnlock()
		if fetched {
			break
		}
	}

	s.scheduler = gocron.NewScheduler(time.UTC)
	s.scheduler.Every(s.interval).Do(func() {
		s.Refresh(context.Background())
	})
	s.scheduler.StartAsync()
}

// Stop cancels the periodic refresh. In-flight fetches finish but their
// results are discarded by the generation check.
func (s *Store) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	s.mu.Lock()
	s.generation = uuid.New()
	s.mu.Unlock()
}

// Subscribe returns a channel that receives a tick whenever the store
// contents change. The channel is buffered and never blocks the store.
func (s *Store) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subscribers = append(s.subscribers, ch)
	s.mu.Unlock()
	return ch
}

// Refresh fetches the instance lists (and the template catalog, if not
// yet loaded) and replaces the store contents. Starting a refresh
// invalidates any fetch still in flight: a completion whose generation
// is no longer current is dropped rather than racing the newer data.
func (s *Store) Refresh(ctx context.Context) {
	generation := uuid.New()
	s.mu.Lock()
	s.generation = generation
	templatesLoaded := s.templates != nil
	s.mu.Unlock()

	var errs error
	var instances []cloud.Instance
	for _, typ := range cloud.Types {
		fetched, err := s.fetcher.Instances(ctx, typ)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		instances = append(instances, fetched...)
	}

	var templates []cloud.Template
	if !templatesLoaded {
		fetched, err := s.fetcher.AllTemplates(ctx)
		if err != nil {
			errs = multierror.Append(errs, err)
		} else {
			templates = fetched
		}
	}

	s.mu.Lock()
	if s.generation != generation {
		s.mu.Unlock()
		s.log.Debugw("discarded stale refresh", "generation", generation)
		return
	}
	s.lastErr = errs
	if errs == nil {
		s.instances = instances
		s.derived = deriveAll(instances, s.now())
	}
	if templates != nil {
		s.templates = templates
	}
	s.mu.Unlock()

	if errs != nil {
		s.log.Warnw("refresh failed", "error", errs)
	}
	s.notify()
}

// Instances returns a copy of the current instance list with the
// derived display values, index-aligned.
func (s *Store) Instances() ([]cloud.Instance, []Derived) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	instances := append([]cloud.Instance(nil), s.instances...)
	derived := append([]Derived(nil), s.derived...)
	return instances, derived
}

// Instance looks up a single instance by its correlation key.
func (s *Store) Instance(key string) (cloud.Instance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, instance := range s.instances {
		if instance.Key() == key {
			return instance, true
		}
	}
	return cloud.Instance{}, false
}

// Templates returns a copy of the template catalog.
func (s *Store) Templates() []cloud.Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]cloud.Template(nil), s.templates...)
}

// LastError returns the error of the most recent refresh, nil if it
// succeeded.
func (s *Store) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *Store) notify() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
