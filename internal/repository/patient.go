package repository

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/haniscreator/patient-portal/internal/patient"
)

// ErrNotFound is returned when no patient has the requested id.
var ErrNotFound = errors.New("patient not found")

// PatientStore is the storage the stub API handlers need.
type PatientStore interface {
	List(ctx context.Context) ([]patient.Record, error)
	GetByID(ctx context.Context, id patient.ID) (*patient.Record, error)
	Create(ctx context.Context, in patient.Input) (*patient.Record, error)
	Update(ctx context.Context, id patient.ID, in patient.Input) (*patient.Record, error)
	Delete(ctx context.Context, id patient.ID) error
}

// MemoryPatientRepo keeps patients in memory with sequential numeric ids.
type MemoryPatientRepo struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]patient.Record
	now    func() time.Time
}

var _ PatientStore = (*MemoryPatientRepo)(nil)

func NewMemoryPatientRepo() *MemoryPatientRepo {
	return &MemoryPatientRepo{
		nextID: 1,
		rows:   make(map[int64]patient.Record),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// List returns all patients, newest first.
func (r *MemoryPatientRepo) List(_ context.Context) ([]patient.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]int64, 0, len(r.rows))
	for k := range r.rows {
		keys = append(keys, k)
	}
	// ids are assigned in creation order
	sort.Slice(keys, func(i, j int) bool { return keys[i] > keys[j] })

	out := make([]patient.Record, 0, len(keys))
	for _, k := range keys {
		out = append(out, clone(r.rows[k]))
	}
	return out, nil
}

// GetByID returns ErrNotFound for unknown or non-numeric ids.
func (r *MemoryPatientRepo) GetByID(_ context.Context, id patient.ID) (*patient.Record, error) {
	key, ok := parseKey(id)
	if !ok {
		return nil, ErrNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.rows[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := clone(rec)
	return &out, nil
}

// Create inserts a new patient. The caller validates the input.
func (r *MemoryPatientRepo) Create(_ context.Context, in patient.Input) (*patient.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.nextID
	r.nextID++

	created := r.now()
	rec := patient.Record{
		ID:        patient.ID(strconv.FormatInt(key, 10)),
		CreatedAt: &created,
	}
	apply(&rec, in)
	r.rows[key] = rec

	out := clone(rec)
	return &out, nil
}

// Update replaces only the fields set in the input. The id never changes.
func (r *MemoryPatientRepo) Update(_ context.Context, id patient.ID, in patient.Input) (*patient.Record, error) {
	key, ok := parseKey(id)
	if !ok {
		return nil, ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.rows[key]
	if !ok {
		return nil, ErrNotFound
	}
	apply(&rec, in)
	r.rows[key] = rec

	out := clone(rec)
	return &out, nil
}

func (r *MemoryPatientRepo) Delete(_ context.Context, id patient.ID) error {
	key, ok := parseKey(id)
	if !ok {
		return ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[key]; !ok {
		return ErrNotFound
	}
	delete(r.rows, key)
	return nil
}

func parseKey(id patient.ID) (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	return n, err == nil
}

func apply(rec *patient.Record, in patient.Input) {
	if in.Name != nil {
		rec.Name = *in.Name
	}
	if in.Age != nil {
		v := *in.Age
		rec.Age = &v
	}
	if in.MedicalHistory != nil {
		v := *in.MedicalHistory
		rec.MedicalHistory = &v
	}
}

// clone copies pointer fields so callers cannot mutate stored rows.
func clone(rec patient.Record) patient.Record {
	if rec.Age != nil {
		v := *rec.Age
		rec.Age = &v
	}
	if rec.MedicalHistory != nil {
		v := *rec.MedicalHistory
		rec.MedicalHistory = &v
	}
	if rec.CreatedAt != nil {
		v := *rec.CreatedAt
		rec.CreatedAt = &v
	}
	return rec
}
