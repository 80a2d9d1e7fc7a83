// Package session keeps per-operator report state for the HTTP server.
//
// A session holds the most recent report results, replaced on every run, and
// the maturity run the NPA report is derived from. NPA may only run once a
// maturity report exists in the same session. Sessions expire after a TTL
// and a cron job sweeps them.
package session

import (
	"context"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"growth-analyzer/internal/analyzer"
	"growth-analyzer/pkg/errors"
	"growth-analyzer/pkg/logger"
)

// State is where a session is in the maturity to NPA sequence
type State int

const (
	// StateIdle has no maturity report
	StateIdle State = iota
	// StateMaturityComputed holds a maturity run NPA can be derived from
	StateMaturityComputed
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateMaturityComputed:
		return "maturity_computed"
	default:
		return "idle"
	}
}

// MarshalText renders the state name in JSON
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Config holds configuration options for the session store
type Config struct {
	TTL time.Duration `mapstructure:"ttl"`
	// SweepSchedule is a cron spec such as "@every 5m"
	SweepSchedule string `mapstructure:"sweep_schedule"`
	TimeZone      string `mapstructure:"time_zone"`
}

// DefaultConfig returns a default configuration for the session store
func DefaultConfig() *Config {
	return &Config{
		TTL:           2 * time.Hour,
		SweepSchedule: "@every 5m",
		TimeZone:      "Asia/Kolkata",
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.TTL <= 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "session.ttl", c.TTL, nil)
	}
	if _, err := cron.ParseStandard(c.SweepSchedule); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "session.sweep_schedule", c.SweepSchedule, err)
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "session.time_zone", c.TimeZone, err)
	}
	return nil
}

// Info describes a session without its results
type Info struct {
	ID        string    `json:"id"`
	State     State     `json:"state"`
	Results   int       `json:"results"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type session struct {
	id        string
	state     State
	results   []*analyzer.Result
	maturity  *analyzer.MaturityRun
	createdAt time.Time
	expiresAt time.Time
}

func (s *session) info() Info {
	return Info{
		ID:        s.id,
		State:     s.state,
		Results:   len(s.results),
		CreatedAt: s.createdAt,
		ExpiresAt: s.expiresAt,
	}
}

// Store is a mutex-guarded in-memory session map
type Store struct {
	mu       sync.Mutex
	sessions map[string]*session
	config   *Config
	now      func() time.Time
	cron     *cron.Cron
	logger   logger.Logger
}

// NewStore creates a session store
func NewStore(config *Config) (*Store, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Store{
		sessions: make(map[string]*session),
		config:   config,
		now:      time.Now,
		logger:   logger.GetGlobalLogger().WithComponent("session"),
	}, nil
}

// Create opens a new idle session
func (st *Store) Create() Info {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	s := &session{
		id:        uuid.New().String(),
		state:     StateIdle,
		createdAt: now,
		expiresAt: now.Add(st.config.TTL),
	}
	st.sessions[s.id] = s

	st.logger.WithField("session_id", s.id).Debug("Session created")
	return s.info()
}

// Get returns the session and extends its expiry
func (st *Store) Get(id string) (Info, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, err := st.lookup(id)
	if err != nil {
		return Info{}, err
	}
	return s.info(), nil
}

// Delete removes the session
func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	delete(st.sessions, id)
}

// SetResults replaces the session's last results. The maturity run, if any,
// is kept so NPA stays available.
func (st *Store) SetResults(id string, results ...*analyzer.Result) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, err := st.lookup(id)
	if err != nil {
		return err
	}
	s.results = results
	return nil
}

// SetMaturity stores a maturity run, makes its results the last results and
// moves the session to StateMaturityComputed
func (st *Store) SetMaturity(id string, run *analyzer.MaturityRun) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, err := st.lookup(id)
	if err != nil {
		return err
	}
	s.maturity = run
	s.results = run.Results()
	s.state = StateMaturityComputed
	return nil
}

// MaturityRun returns the run NPA is derived from. Without one the error is
// a missing-prerequisite warning.
func (st *Store) MaturityRun(id string) (*analyzer.MaturityRun, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, err := st.lookup(id)
	if err != nil {
		return nil, err
	}
	if s.state != StateMaturityComputed || s.maturity == nil {
		return nil, errors.StateError(errors.CodeMissingPrerequisite, "npa")
	}
	return s.maturity, nil
}

// Results returns the last results, primary first
func (st *Store) Results(id string) ([]*analyzer.Result, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, err := st.lookup(id)
	if err != nil {
		return nil, err
	}
	if len(s.results) == 0 {
		return nil, errors.StateError(errors.CodeNoResult, "session "+id)
	}
	return append([]*analyzer.Result(nil), s.results...), nil
}

// Result returns the last result of kind, or the primary one when kind is empty
func (st *Store) Result(id string, kind analyzer.ReportKind) (*analyzer.Result, error) {
	results, err := st.Results(id)
	if err != nil {
		return nil, err
	}
	if kind == "" {
		return results[0], nil
	}
	for _, r := range results {
		if r.Kind == kind {
			return r, nil
		}
	}
	return nil, errors.StateError(errors.CodeNoResult, string(kind))
}

// Len returns the number of live sessions
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	return len(st.sessions)
}

// Sweep removes expired sessions and returns how many were removed
func (st *Store) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	removed := 0
	for id, s := range st.sessions {
		if now.After(s.expiresAt) {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// Start schedules the expiry sweep
func (st *Store) Start() error {
	loc, err := time.LoadLocation(st.config.TimeZone)
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "session.time_zone", st.config.TimeZone, err)
	}

	c := cron.New(cron.WithLocation(loc))
	_, err = c.AddFunc(st.config.SweepSchedule, func() {
		if removed := st.Sweep(); removed > 0 {
			st.logger.WithField("removed", removed).Info("Expired sessions swept")
		}
	})
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "session.sweep_schedule", st.config.SweepSchedule, err)
	}

	c.Start()
	st.cron = c
	st.logger.WithField("schedule", st.config.SweepSchedule).Info("Session sweep started")
	return nil
}

// Stop halts the sweep and waits for a running sweep to finish or ctx to end
func (st *Store) Stop(ctx context.Context) {
	if st.cron == nil {
		return
	}
	done := st.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// lookup finds a live session and extends it; callers hold mu
func (st *Store) lookup(id string) (*session, error) {
	s, ok := st.sessions[id]
	now := st.now()
	if !ok || now.After(s.expiresAt) {
		delete(st.sessions, id)
		return nil, errors.StateError(errors.CodeSessionNotFound, id)
	}
	s.expiresAt = now.Add(st.config.TTL)
	return s, nil
}
