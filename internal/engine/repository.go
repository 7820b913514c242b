package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/MikhailWahib/diarydb/internal/record"
)

// Entity is anything with a persistent object id.
type Entity interface {
	ID() record.ObjectID
}

// Codec flattens entities of one kind into records and back. The field
// order is the codec's own convention.
type Codec[T Entity] interface {
	Encode(v T, r *record.Record) error
	Decode(id record.ObjectID, r *record.Record) (T, error)
}

// Repository caches the entities of one kind created or loaded in this
// session and persists them to the kind's shared table. Within a session
// every Get of the same id returns the same value.
type Repository[T Entity] struct {
	engine *Engine
	table  *Table
	codec  Codec[T]
	logger *slog.Logger

	cache map[record.ObjectID]T
	order []record.ObjectID
}

// NewRepository acquires the table called name. Close releases it.
func NewRepository[T Entity](e *Engine, name string, codec Codec[T]) (*Repository[T], error) {
	t, err := e.Acquire(name)
	if err != nil {
		return nil, err
	}
	return &Repository[T]{
		engine: e,
		table:  t,
		codec:  codec,
		logger: e.logger.With(slog.String("table", name)),
		cache:  make(map[record.ObjectID]T),
	}, nil
}

// Table returns the repository's shared table
func (r *Repository[T]) Table() *Table {
	return r.table
}

// CreateNew allocates a fresh id, builds the entity with it and caches it.
// Nothing is written until Save. If build fails the id stays burned.
func (r *Repository[T]) CreateNew(build func(id record.ObjectID) (T, error)) (T, error) {
	var zero T
	if r.table == nil {
		return zero, ErrReleased
	}
	id, err := r.engine.NextID()
	if err != nil {
		return zero, err
	}
	v, err := build(id)
	if err != nil {
		return zero, err
	}
	if v.ID() != id {
		return zero, fmt.Errorf("built entity has id %d, allocated %d", v.ID(), id)
	}
	r.put(v)
	return v, nil
}

func (r *Repository[T]) put(v T) {
	id := v.ID()
	if _, ok := r.cache[id]; !ok {
		r.order = append(r.order, id)
	}
	r.cache[id] = v
}

// Get returns the entity with id from the session cache, loading it from
// disk on a miss. A missing or unreadable record is reported as not found;
// read failures are logged.
func (r *Repository[T]) Get(id record.ObjectID) (T, bool) {
	if v, ok := r.cache[id]; ok {
		return v, true
	}
	var zero T
	v, ok, err := r.load(id)
	if err != nil {
		r.logger.Warn("engine: failed to load entity", slog.Int64("id", int64(id)), slog.Any("err", err))
		return zero, false
	}
	if !ok {
		return zero, false
	}
	r.put(v)
	return v, true
}

func (r *Repository[T]) load(id record.ObjectID) (T, bool, error) {
	var zero T
	if r.table == nil {
		return zero, false, ErrReleased
	}
	rec, found, err := r.table.Read(id)
	if err != nil || !found {
		return zero, false, err
	}
	v, err := r.codec.Decode(id, rec)
	if err != nil {
		return zero, false, fmt.Errorf("decode id %d: %w", id, err)
	}
	if v.ID() != id {
		return zero, false, fmt.Errorf("decode id %d: got entity %d", id, v.ID())
	}
	return v, true, nil
}

// LoadAll loads every persisted entity that isn't cached yet. It keeps
// going past unreadable records and returns their errors joined.
func (r *Repository[T]) LoadAll() error {
	if r.table == nil {
		return ErrReleased
	}
	var errs []error
	for _, id := range r.table.IDs() {
		if _, ok := r.cache[id]; ok {
			continue
		}
		v, ok, err := r.load(id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			r.put(v)
		}
	}
	return errors.Join(errs...)
}

// All returns the cached entities in the order they entered the cache.
func (r *Repository[T]) All() []T {
	res := make([]T, 0, len(r.order))
	for _, id := range r.order {
		res = append(res, r.cache[id])
	}
	return res
}

// Len returns the number of cached entities.
func (r *Repository[T]) Len() int {
	return len(r.order)
}

// Save appends a fresh record for every cached entity, changed or not, and
// persists the index. An entity that fails to encode or append is skipped;
// the others are still saved and all failures are returned joined.
func (r *Repository[T]) Save() error {
	if r.table == nil {
		return ErrReleased
	}
	var errs []error
	saved := 0
	rec := record.New()
	for _, id := range r.order {
		rec.Reset()
		if err := r.codec.Encode(r.cache[id], rec); err != nil {
			r.logger.Warn("engine: failed to encode entity", slog.Int64("id", int64(id)), slog.Any("err", err))
			errs = append(errs, fmt.Errorf("encode id %d: %w", id, err))
			continue
		}
		if err := r.table.Put(id, rec); err != nil {
			r.logger.Warn("engine: failed to save entity", slog.Int64("id", int64(id)), slog.Any("err", err))
			errs = append(errs, err)
			continue
		}
		saved++
	}
	if err := r.table.Flush(); err != nil {
		errs = append(errs, err)
	}
	r.logger.Debug("engine: saved", slog.Int("saved", saved), slog.Int("failed", len(errs)))
	return errors.Join(errs...)
}

// Close releases the repository's table. It can be called multiple times.
func (r *Repository[T]) Close() error {
	if r.table == nil {
		return nil
	}
	t := r.table
	r.table = nil
	return t.Release()
}
