// Package core owns the canonical places dataset: it loads it from a durable
// slot (seeding on first use), applies validated mutations and writes the
// whole dataset back after every change.
package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"placesdir/internal/seed"
	"placesdir/pkg/domain"
)

// Operation names reported to metrics, tracing and audit.
const (
	OpLoadAll    = "load_all"
	OpReset      = "reset"
	OpExportJSON = "export_json"
	OpImportJSON = "import_json"
	OpRegions    = "regions"
	OpRegion     = "region"
	OpAddSite    = "add_site"
	OpUpdateSite = "update_site"
	OpDeleteSite = "delete_site"
)

// Store serializes every load, mutate and persist sequence behind a mutex.
type Store struct {
	mu     sync.Mutex
	slot   domain.Slot
	source seed.Source

	logger  Logger
	clock   Clock
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
}

// NewStore constructs a Store over slot, seeding from source when the slot
// is empty or unreadable as JSON.
func NewStore(slot domain.Slot, source seed.Source, opts ...Option) *Store {
	s := &Store{
		slot:    slot,
		source:  source,
		logger:  noopLogger{},
		clock:   systemClock{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		audit:   noopAudit{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// RunInTransaction loads the current dataset, hands a working copy to fn and
// persists it when fn returns nil. The returned dataset is the committed state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx *Transaction) error) (domain.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, err := s.load(ctx)
	if err != nil {
		return domain.Dataset{}, err
	}
	tx := &Transaction{data: current}
	if err := fn(tx); err != nil {
		return domain.Dataset{}, err
	}
	if err := s.persist(ctx, tx.data); err != nil {
		return domain.Dataset{}, err
	}
	return tx.data.Clone(), nil
}

// View loads the current dataset and exposes it read-only to fn.
func (s *Store) View(ctx context.Context, fn func(TransactionView) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, err := s.load(ctx)
	if err != nil {
		return err
	}
	return fn(&Transaction{data: current})
}

// LoadAll returns the stored dataset, seeding the slot first when needed.
func (s *Store) LoadAll(ctx context.Context) (d domain.Dataset, err error) {
	ctx, end := s.observe(ctx, OpLoadAll)
	defer func() { end(err) }()
	err = s.View(ctx, func(v TransactionView) error {
		d = v.Dataset()
		return nil
	})
	return d, err
}

// Reset replaces the stored dataset with the seed. The seed is fetched and
// parsed before the slot is touched, so a failing seed leaves it intact.
func (s *Store) Reset(ctx context.Context) (d domain.Dataset, err error) {
	ctx, end := s.observe(ctx, OpReset)
	defer func() {
		end(err)
		s.record(ctx, OpReset, "", 0, err)
	}()
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, err = s.fetchSeed(ctx); err != nil {
		return domain.Dataset{}, err
	}
	if err = s.slot.Clear(ctx); err != nil {
		return domain.Dataset{}, fmt.Errorf("clear slot: %w", err)
	}
	if err = s.persist(ctx, d); err != nil {
		return domain.Dataset{}, err
	}
	s.logger.Info("dataset reset to seed", "source", s.source.Describe(), "regions", len(d.Regions))
	return d.Clone(), nil
}

// ExportJSON renders the current dataset indented by two spaces.
func (s *Store) ExportJSON(ctx context.Context) (out string, err error) {
	ctx, end := s.observe(ctx, OpExportJSON)
	defer func() { end(err) }()
	err = s.View(ctx, func(v TransactionView) error {
		b, encErr := domain.EncodeDataset(v.Dataset(), true)
		if encErr != nil {
			return fmt.Errorf("encode dataset: %w", encErr)
		}
		out = string(b)
		return nil
	})
	return out, err
}

// ImportJSON replaces the stored dataset with the parsed text. Invalid JSON
// returns a *domain.ParseError and leaves the slot untouched.
func (s *Store) ImportJSON(ctx context.Context, text string) (d domain.Dataset, err error) {
	ctx, end := s.observe(ctx, OpImportJSON)
	defer func() {
		end(err)
		s.record(ctx, OpImportJSON, "", 0, err)
	}()
	parsed, err := domain.ParseDataset([]byte(text))
	if err != nil {
		return domain.Dataset{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err = s.persist(ctx, parsed); err != nil {
		return domain.Dataset{}, err
	}
	return parsed.Clone(), nil
}

// Regions lists region names in dataset order.
func (s *Store) Regions(ctx context.Context) (names []string, err error) {
	ctx, end := s.observe(ctx, OpRegions)
	defer func() { end(err) }()
	err = s.View(ctx, func(v TransactionView) error {
		names = v.Regions()
		return nil
	})
	return names, err
}

// Region returns a copy of the first region named name. A missing region
// reports ok=false without an error.
func (s *Store) Region(ctx context.Context, name string) (r domain.Region, ok bool, err error) {
	ctx, end := s.observe(ctx, OpRegion)
	defer func() { end(err) }()
	err = s.View(ctx, func(v TransactionView) error {
		r, ok = v.Region(name)
		return nil
	})
	return r, ok, err
}

// AddSite appends a site to region and persists the dataset.
func (s *Store) AddSite(ctx context.Context, region string, raw domain.RawSite) (site domain.Site, err error) {
	ctx, end := s.observe(ctx, OpAddSite)
	defer func() {
		end(err)
		s.record(ctx, OpAddSite, region, site.Number, err)
	}()
	_, err = s.RunInTransaction(ctx, func(tx *Transaction) error {
		var txErr error
		site, txErr = tx.AddSite(region, raw)
		return txErr
	})
	if err != nil {
		return domain.Site{}, err
	}
	return site, nil
}

// UpdateSite overlays patch onto the site numbered number and persists.
func (s *Store) UpdateSite(ctx context.Context, region string, number int, patch domain.RawSite) (site domain.Site, err error) {
	ctx, end := s.observe(ctx, OpUpdateSite)
	defer func() {
		end(err)
		s.record(ctx, OpUpdateSite, region, number, err)
	}()
	_, err = s.RunInTransaction(ctx, func(tx *Transaction) error {
		var txErr error
		site, txErr = tx.UpdateSite(region, number, patch)
		return txErr
	})
	if err != nil {
		return domain.Site{}, err
	}
	return site, nil
}

// DeleteSite removes the site numbered number from region and persists.
func (s *Store) DeleteSite(ctx context.Context, region string, number int) (deleted bool, err error) {
	ctx, end := s.observe(ctx, OpDeleteSite)
	defer func() {
		end(err)
		s.record(ctx, OpDeleteSite, region, number, err)
	}()
	_, err = s.RunInTransaction(ctx, func(tx *Transaction) error {
		return tx.DeleteSite(region, number)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// load must be called with mu held.
func (s *Store) load(ctx context.Context) (domain.Dataset, error) {
	data, ok, err := s.slot.Read(ctx)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("read slot: %w", err)
	}
	if ok {
		d, parseErr := domain.ParseDataset(data)
		if parseErr == nil {
			return d, nil
		}
		s.logger.Warn("stored dataset is corrupt, reseeding", "error", parseErr, "bytes", len(data))
	}
	return s.seed(ctx)
}

// seed fetches the seed document and persists it. Must be called with mu held.
func (s *Store) seed(ctx context.Context) (domain.Dataset, error) {
	d, err := s.fetchSeed(ctx)
	if err != nil {
		return domain.Dataset{}, err
	}
	if err := s.persist(ctx, d); err != nil {
		return domain.Dataset{}, err
	}
	s.logger.Info("seeded dataset", "source", s.source.Describe(), "regions", len(d.Regions))
	return d, nil
}

// fetchSeed reads and parses the seed document without touching the slot.
func (s *Store) fetchSeed(ctx context.Context) (domain.Dataset, error) {
	if s.source == nil {
		return domain.Dataset{}, &domain.LoadError{Source: "<none>", Err: errors.New("no seed source configured")}
	}
	from := s.source.Describe()
	data, err := s.source.Fetch(ctx)
	if err != nil {
		return domain.Dataset{}, &domain.LoadError{Source: from, Err: err}
	}
	d, err := domain.ParseDataset(data)
	if err != nil {
		return domain.Dataset{}, &domain.LoadError{Source: from, Err: err}
	}
	return d, nil
}

func (s *Store) persist(ctx context.Context, d domain.Dataset) error {
	b, err := domain.EncodeDataset(d, false)
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}
	if err := s.slot.Write(ctx, b); err != nil {
		return fmt.Errorf("write slot: %w", err)
	}
	return nil
}

func (s *Store) observe(ctx context.Context, op string) (context.Context, func(error)) {
	ctx, span := s.tracer.Start(ctx, op)
	started := s.clock.Now()
	return ctx, func(err error) {
		elapsed := s.clock.Now().Sub(started)
		s.metrics.Observe(ctx, op, err == nil, elapsed)
		if err != nil {
			s.logger.Error("store operation failed", "operation", op, "error", err, "duration", elapsed)
		} else {
			s.logger.Debug("store operation", "operation", op, "duration", elapsed)
		}
		span.End(err)
	}
}

func (s *Store) record(ctx context.Context, op, region string, number int, err error) {
	entry := AuditEntry{
		Operation: op,
		Status:    AuditStatusSuccess,
		Region:    region,
		Number:    number,
		Timestamp: s.clock.Now().UTC(),
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
}
