// Package pipeline wires the stages into runs.
//
//	extract:  Source -> Flattener -> table files
//	validate: table files -> rule pipelines -> table files (overwritten)
//	publish:  table files -> downstream targets
//
// Every run gets a uuid run id that tags its log lines. Runs read and write
// whole tables; a failed table never leaves a partial file.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/recipeflow/internal/core"
	"github.com/JonMunkholm/recipeflow/internal/flatten"
	"github.com/JonMunkholm/recipeflow/internal/publish"
	"github.com/JonMunkholm/recipeflow/internal/quality"
	"github.com/JonMunkholm/recipeflow/internal/source"
	"github.com/JonMunkholm/recipeflow/internal/tablefile"
)

// Service runs extract, validate and publish against one table store.
type Service struct {
	store      *tablefile.Store
	source     source.Source
	plan       quality.Plan
	publishers []publish.Publisher
	flattener  *flatten.Flattener
	newRunID   func() string
	gate       *runGate
	runWait    time.Duration

	mu     sync.RWMutex
	latest *ValidateResult
}

// Option configures a Service.
type Option func(*Service)

// WithSource sets the document source used by Extract.
func WithSource(src source.Source) Option {
	return func(s *Service) { s.source = src }
}

// WithPlan sets the rule plan used by Validate. Defaults to quality.DefaultPlan.
func WithPlan(p quality.Plan) Option {
	return func(s *Service) { s.plan = p }
}

// WithPublishers sets the targets used by Publish.
func WithPublishers(pubs ...publish.Publisher) Option {
	return func(s *Service) { s.publishers = pubs }
}

// WithClock sets the clock used for missing created_at values.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.flattener = &flatten.Flattener{Now: now} }
}

// WithRunIDs overrides run id generation.
func WithRunIDs(next func() string) Option {
	return func(s *Service) { s.newRunID = next }
}

// WithRunWait sets how long a run waits for another to finish before
// failing with core.ErrRunInProgress. Defaults to DefaultRunWait.
func WithRunWait(d time.Duration) Option {
	return func(s *Service) { s.runWait = d }
}

// NewService creates a Service over store.
func NewService(store *tablefile.Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		plan:      quality.DefaultPlan(),
		flattener: flatten.New(),
		newRunID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.gate = newRunGate(s.runWait)
	return s
}

// WaitForRuns blocks until the current run, if any, finishes or ctx is done.
func (s *Service) WaitForRuns(ctx context.Context) error {
	return s.gate.waitForDrain(ctx)
}

// Plan returns the rule plan in effect.
func (s *Service) Plan() quality.Plan {
	return s.plan
}

// Store returns the table store.
func (s *Service) Store() *tablefile.Store {
	return s.store
}

// TableStatus describes a registered table and whether its file exists.
type TableStatus struct {
	Key      string   `json:"key"`
	Group    string   `json:"group"`
	Label    string   `json:"label"`
	FileName string   `json:"file_name"`
	Columns  []string `json:"columns"`
	Parent   string   `json:"parent,omitempty"`
	Present  bool     `json:"present"`
}

// ListTables returns information about all registered tables.
func (s *Service) ListTables() []TableStatus {
	defs := core.All()
	out := make([]TableStatus, len(defs))
	for i, def := range defs {
		out[i] = TableStatus{
			Key:      def.Info.Key,
			Group:    def.Info.Group,
			Label:    def.Info.Label,
			FileName: def.Info.FileName,
			Columns:  def.Info.Columns,
			Parent:   def.Info.Parent,
			Present:  s.store.Exists(def.Info.Key),
		}
	}
	return out
}

// LatestValidation returns the most recent validation result, if any.
func (s *Service) LatestValidation() (ValidateResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return ValidateResult{}, false
	}
	return *s.latest, true
}

// Table loads a registered table's current file.
func (s *Service) Table(key string) (*core.Table, error) {
	if _, ok := core.Get(key); !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownTable, key)
	}
	return s.store.Load(key)
}
