// Package lifecycle manages the two physical catalog indices behind the
// read alias: initialization, document import into the standby index and
// the alias swap that promotes it.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/engine"
	apperrors "github.com/utafrali/catalog-search/pkg/errors"
	"github.com/utafrali/catalog-search/pkg/logger"
	"github.com/utafrali/catalog-search/pkg/tracing"
)

const tracerName = "github.com/utafrali/catalog-search/internal/lifecycle"

// IndexLifecycle is the write side of the catalog index.
type IndexLifecycle interface {
	Init(ctx context.Context, cfg *domain.IndexConfig) error
	InsertDocument(ctx context.Context, doc domain.Document) (domain.Ack, error)
	Commit(ctx context.Context) error
}

// PhysicalIndex is one of the two slots.
type PhysicalIndex struct {
	Name   string `json:"name"`
	Exists bool   `json:"exists"`
}

// State is a snapshot of the lifecycle.
type State struct {
	Initialized bool          `json:"initialized"`
	Alias       string        `json:"alias,omitempty"`
	Live        PhysicalIndex `json:"live"`
	Standby     PhysicalIndex `json:"standby"`
	Accepted    int64         `json:"accepted"`
}

// Manager implements IndexLifecycle. Init and Commit are meant to be driven
// by a single writer; InsertDocument may be called concurrently between them.
type Manager struct {
	engine    engine.EngineClient
	synonyms  SynonymStore
	wordLists WordListStore
	logger    *slog.Logger

	// mu guards cfg and state. InsertDocument holds the read lock for the
	// duration of a submission so Commit never swaps under an in-flight insert.
	mu       sync.RWMutex
	cfg      *domain.IndexConfig
	state    State
	accepted atomic.Int64
}

var _ IndexLifecycle = (*Manager)(nil)

// NewManager creates a lifecycle manager. synonyms and wordLists may be nil.
func NewManager(eng engine.EngineClient, synonyms SynonymStore, wordLists WordListStore, logger *slog.Logger) *Manager {
	return &Manager{
		engine:    eng,
		synonyms:  synonyms,
		wordLists: wordLists,
		logger:    logger,
	}
}

// State returns a snapshot of the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.state
	s.Accepted = m.accepted.Load()
	return s
}

// Init binds the alias to the live slot and prepares an empty standby slot.
// Slot one is live if it exists, otherwise slot two if it exists, otherwise
// slot one is created fresh. The other slot is always rebuilt empty.
func (m *Manager) Init(ctx context.Context, cfg *domain.IndexConfig) (err error) {
	ctx, span := tracing.Start(ctx, tracing.Tracer(tracerName), "lifecycle.Init",
		"index.prefix", cfg.IndexNamePrefix)
	defer func() { tracing.End(span, err) }()

	log := logger.WithContext(ctx, m.logger)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.Initialized = false

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	enriched, err := Enrich(ctx, cfg, m.synonyms, m.wordLists)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}

	one, two := enriched.SlotNames()
	alias := enriched.AliasName()

	oneExists, err := m.engine.IndexExists(ctx, one)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	twoExists, err := m.engine.IndexExists(ctx, two)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}

	var live, standby PhysicalIndex
	switch {
	case oneExists:
		live, standby = PhysicalIndex{Name: one, Exists: true}, PhysicalIndex{Name: two, Exists: twoExists}
	case twoExists:
		live, standby = PhysicalIndex{Name: two, Exists: true}, PhysicalIndex{Name: one}
	default:
		if err := m.buildIndex(ctx, enriched, one); err != nil {
			return fmt.Errorf("init: %w", err)
		}
		live, standby = PhysicalIndex{Name: one, Exists: true}, PhysicalIndex{Name: two}
		log.Info("created live index", slog.String("index", one))
	}

	if standby.Exists {
		if err := m.engine.DeleteIndex(ctx, standby.Name); err != nil {
			return fmt.Errorf("init: delete stale standby: %w", err)
		}
	}
	if err := m.buildIndex(ctx, enriched, standby.Name); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	standby.Exists = true

	if err := m.engine.BindAlias(ctx, alias, live.Name); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	m.cfg = enriched
	m.state = State{Initialized: true, Alias: alias, Live: live, Standby: standby}
	m.accepted.Store(0)

	log.Info("index lifecycle initialized",
		slog.String("alias", alias),
		slog.String("live", live.Name),
		slog.String("standby", standby.Name),
	)
	return nil
}

// buildIndex creates name with the configured settings and mapping. A
// rejected mapping removes the half-created index again.
func (m *Manager) buildIndex(ctx context.Context, cfg *domain.IndexConfig, name string) error {
	if err := m.engine.CreateIndex(ctx, name, engine.SettingsFor(cfg)); err != nil {
		return err
	}
	if err := m.engine.ApplyMapping(ctx, name, cfg.DataTypeName, cfg.FieldMappings, engine.DefaultsFor(cfg)); err != nil {
		if delErr := m.engine.DeleteIndex(ctx, name); delErr != nil {
			m.logger.Warn("failed to remove index after rejected mapping",
				slog.String("index", name),
				slog.String("error", delErr.Error()),
			)
		}
		return err
	}
	return nil
}

// InsertDocument validates doc and submits it to the standby index.
func (m *Manager) InsertDocument(ctx context.Context, doc domain.Document) (domain.Ack, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.state.Initialized {
		DocumentsTotal.WithLabelValues("rejected").Inc()
		return domain.Ack{}, fmt.Errorf("insert document: %w", apperrors.ErrNotInitialized)
	}
	if err := doc.Validate(m.cfg); err != nil {
		DocumentsTotal.WithLabelValues("invalid").Inc()
		return domain.Ack{}, err
	}

	standby := m.state.Standby.Name
	filled := doc.WithContextDefaults(m.cfg)
	if err := m.engine.SubmitDocument(ctx, standby, m.cfg.DataTypeName, doc.ID, filled.Fields); err != nil {
		DocumentsTotal.WithLabelValues("failed").Inc()
		return domain.Ack{}, fmt.Errorf("insert document %s: %w", doc.ID, err)
	}

	m.accepted.Add(1)
	DocumentsTotal.WithLabelValues("accepted").Inc()
	return domain.Ack{Index: standby, ID: doc.ID}, nil
}

// Commit promotes the standby index: the alias moves onto it in one atomic
// update, the previous live index is deleted and the new one is optimized
// and refreshed. Commit does nothing unless documents were accepted into an
// existing standby since Init. If the alias update fails nothing changes.
// Failures after the swap are returned but the swap stands.
func (m *Manager) Commit(ctx context.Context) (err error) {
	ctx, span := tracing.Start(ctx, tracing.Tracer(tracerName), "lifecycle.Commit")
	defer func() { tracing.End(span, err) }()

	log := logger.WithContext(ctx, m.logger)

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.state.Initialized {
		log.Info("commit skipped: lifecycle not initialized")
		CommitsTotal.WithLabelValues("skipped").Inc()
		return nil
	}
	accepted := m.accepted.Load()
	if accepted == 0 {
		log.Info("commit skipped: standby index is empty", slog.String("standby", m.state.Standby.Name))
		CommitsTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	live, standby := m.state.Live, m.state.Standby
	exists, err := m.engine.IndexExists(ctx, standby.Name)
	if err != nil {
		CommitsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("commit: %w", err)
	}
	if !exists {
		log.Warn("commit skipped: standby index is gone", slog.String("standby", standby.Name))
		CommitsTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	if err := m.engine.BindAlias(ctx, m.state.Alias, standby.Name); err != nil {
		CommitsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("commit: %w", err)
	}

	m.state.Live = PhysicalIndex{Name: standby.Name, Exists: true}
	m.state.Standby = PhysicalIndex{Name: live.Name, Exists: true}
	m.state.Initialized = false

	log.Info("alias swapped",
		slog.String("alias", m.state.Alias),
		slog.String("live", standby.Name),
		slog.String("previous", live.Name),
		slog.Int64("documents", accepted),
	)

	var errs []error
	if err := m.engine.DeleteIndex(ctx, live.Name); err != nil {
		errs = append(errs, err)
	} else {
		m.state.Standby.Exists = false
	}
	if err := m.engine.Optimize(ctx, standby.Name); err != nil {
		errs = append(errs, err)
	}
	if err := m.engine.Refresh(ctx, standby.Name); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		CommitsTotal.WithLabelValues("partial").Inc()
		return fmt.Errorf("commit: alias swapped to %s but cleanup failed: %w", standby.Name, errors.Join(errs...))
	}
	CommitsTotal.WithLabelValues("promoted").Inc()
	return nil
}
