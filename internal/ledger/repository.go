// Package ledger is the typed document repository holding every bank
// collection: users, passports, operations, receipts, settings and the
// session slot.
package ledger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/congo-pay/abank/internal/apperror"
	"github.com/congo-pay/abank/internal/kvstore"
	"github.com/congo-pay/abank/internal/logging"
)

const (
	keyUsers       = "users:v1"
	keyPassports   = "passports:v1"
	keyOperations  = "operations:v1"
	keyReceipts    = "receipts:v1"
	keySettings    = "settings:v1"
	keySession     = "session:v1"
	keyInitialized = "initialized:v1"
)

// State is the full set of collections seen by an Update or View callback.
type State struct {
	Users      []User
	Passports  []Passport
	Operations []Operation
	Receipts   []Receipt
	Settings   Settings
}

// Repository persists bank collections in a kvstore.Store. A single mutex per
// repository serialises every read-modify-write cycle.
type Repository struct {
	store  kvstore.Store
	logger *slog.Logger
	mu     sync.Mutex
}

// NewRepository constructs a repository over store.
func NewRepository(store kvstore.Store, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Repository{store: store, logger: logger}
}

// Update loads every collection, applies fn and commits the collections fn
// changed in one batch. When fn returns an error nothing is written.
func (r *Repository) Update(ctx context.Context, fn func(*State) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.apply(ctx, fn, nil)
}

// View runs fn against a snapshot of every collection.
func (r *Repository) View(ctx context.Context, fn func(State) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, err := r.loadState(ctx)
	if err != nil {
		return err
	}
	return fn(st)
}

// Bootstrap runs fn once per store: when the initialised marker is absent fn
// is applied like Update and the marker is written in the same batch.
// It reports whether fn ran.
func (r *Repository) Bootstrap(ctx context.Context, fn func(*State) error) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.store.Read(ctx, keyInitialized)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, kvstore.ErrNotFound):
		return false, apperror.Storage("read initialized marker", err)
	}

	marker, err := encodeDocument(kindMarker, "demo")
	if err != nil {
		return false, apperror.Storage("encode initialized marker", err)
	}
	if err := r.apply(ctx, fn, []kvstore.Entry{{Key: keyInitialized, Value: marker}}); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repository) apply(ctx context.Context, fn func(*State) error, extra []kvstore.Entry) error {
	st, err := r.loadState(ctx)
	if err != nil {
		return err
	}
	before, err := encodeState(&st)
	if err != nil {
		return apperror.Storage("encode state", err)
	}

	if err := fn(&st); err != nil {
		return err
	}

	after, err := encodeState(&st)
	if err != nil {
		return apperror.Storage("encode state", err)
	}

	entries := make([]kvstore.Entry, 0, len(after)+len(extra))
	for i, doc := range after {
		if !bytes.Equal(doc.Value, before[i].Value) {
			entries = append(entries, doc)
		}
	}
	entries = append(entries, extra...)
	if len(entries) == 0 {
		return nil
	}
	if err := r.store.WriteBatch(ctx, entries); err != nil {
		return apperror.Storage("commit state", err)
	}
	return nil
}

func (r *Repository) loadState(ctx context.Context) (State, error) {
	var st State
	var err error
	if st.Users, err = loadCollection[[]User](ctx, r, keyUsers, kindUsers); err != nil {
		return State{}, err
	}
	if st.Passports, err = loadCollection[[]Passport](ctx, r, keyPassports, kindPassports); err != nil {
		return State{}, err
	}
	if st.Operations, err = loadCollection[[]Operation](ctx, r, keyOperations, kindOperations); err != nil {
		return State{}, err
	}
	if st.Receipts, err = loadCollection[[]Receipt](ctx, r, keyReceipts, kindReceipts); err != nil {
		return State{}, err
	}
	if st.Settings, err = r.loadSettings(ctx); err != nil {
		return State{}, err
	}
	return st, nil
}

// encodeState trims the logs to their retention windows and renders every
// collection in a fixed order.
func encodeState(st *State) ([]kvstore.Entry, error) {
	st.Operations = capOperations(st.Operations)
	st.Receipts = capReceipts(st.Receipts)

	docs := []struct {
		key, kind string
		value     any
	}{
		{keyUsers, kindUsers, st.Users},
		{keyPassports, kindPassports, st.Passports},
		{keyOperations, kindOperations, st.Operations},
		{keyReceipts, kindReceipts, st.Receipts},
		{keySettings, kindSettings, st.Settings},
	}
	out := make([]kvstore.Entry, 0, len(docs))
	for _, d := range docs {
		raw, err := encodeDocument(d.kind, d.value)
		if err != nil {
			return nil, err
		}
		out = append(out, kvstore.Entry{Key: d.key, Value: raw})
	}
	return out, nil
}

// loadCollection reads one document. Absent keys yield the zero value;
// malformed documents are logged and also yield the zero value.
func loadCollection[T any](ctx context.Context, r *Repository, key, kind string) (T, error) {
	var out T
	raw, err := r.store.Read(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return out, apperror.Storage("read "+kind, err)
	}
	if err := decodeDocument(kind, raw, &out); err != nil {
		r.logger.Warn("discarding malformed document",
			slog.String("key", key),
			slog.String("kind", kind),
			slog.Any("error", err),
		)
		var zero T
		return zero, nil
	}
	return out, nil
}

func (r *Repository) loadSettings(ctx context.Context) (Settings, error) {
	raw, err := r.store.Read(ctx, keySettings)
	if errors.Is(err, kvstore.ErrNotFound) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, apperror.Storage("read settings", err)
	}
	settings := DefaultSettings()
	if err := decodeDocument(kindSettings, raw, &settings); err != nil {
		r.logger.Warn("discarding malformed document",
			slog.String("key", keySettings),
			slog.String("kind", kindSettings),
			slog.Any("error", err),
		)
		return DefaultSettings(), nil
	}
	return settings, nil
}

func (r *Repository) save(ctx context.Context, key, kind string, value any) error {
	raw, err := encodeDocument(kind, value)
	if err != nil {
		return apperror.Storage("encode "+kind, err)
	}
	if err := r.store.Write(ctx, key, raw); err != nil {
		return apperror.Storage("write "+kind, err)
	}
	return nil
}

func capOperations(ops []Operation) []Operation {
	if len(ops) > MaxOperations {
		return ops[:MaxOperations]
	}
	return ops
}

func capReceipts(receipts []Receipt) []Receipt {
	if len(receipts) > MaxReceipts {
		return receipts[:MaxReceipts]
	}
	return receipts
}

// LoadUsers returns every user.
func (r *Repository) LoadUsers(ctx context.Context) ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return loadCollection[[]User](ctx, r, keyUsers, kindUsers)
}

// SaveUsers replaces the user collection.
func (r *Repository) SaveUsers(ctx context.Context, users []User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save(ctx, keyUsers, kindUsers, users)
}

func (r *Repository) LoadPassports(ctx context.Context) ([]Passport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return loadCollection[[]Passport](ctx, r, keyPassports, kindPassports)
}

func (r *Repository) SavePassports(ctx context.Context, passports []Passport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save(ctx, keyPassports, kindPassports, passports)
}

// LoadOperations returns the operation log, newest first.
func (r *Repository) LoadOperations(ctx context.Context) ([]Operation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return loadCollection[[]Operation](ctx, r, keyOperations, kindOperations)
}

// SaveOperations replaces the log, keeping the newest MaxOperations entries.
func (r *Repository) SaveOperations(ctx context.Context, ops []Operation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save(ctx, keyOperations, kindOperations, capOperations(ops))
}

func (r *Repository) LoadReceipts(ctx context.Context) ([]Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return loadCollection[[]Receipt](ctx, r, keyReceipts, kindReceipts)
}

// SaveReceipts replaces the receipts, keeping the newest MaxReceipts entries.
func (r *Repository) SaveReceipts(ctx context.Context, receipts []Receipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save(ctx, keyReceipts, kindReceipts, capReceipts(receipts))
}

// LoadSettings returns the stored settings or DefaultSettings.
func (r *Repository) LoadSettings(ctx context.Context) (Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadSettings(ctx)
}

func (r *Repository) SaveSettings(ctx context.Context, settings Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save(ctx, keySettings, kindSettings, settings)
}

// LoadSession returns the session slot, or nil when nobody is signed in.
func (r *Repository) LoadSession(ctx context.Context) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return loadCollection[*Session](ctx, r, keySession, kindSession)
}

// SaveSession overwrites the single session slot.
func (r *Repository) SaveSession(ctx context.Context, session Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save(ctx, keySession, kindSession, session)
}

// ClearSession empties the session slot.
func (r *Repository) ClearSession(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.store.Remove(ctx, keySession); err != nil {
		return apperror.Storage("remove session", err)
	}
	return nil
}

// ClearSessionIf empties the session slot when fn approves. fn sees the
// collections and the held session under the repository lock and is not
// called when the slot is empty. It reports whether the slot was cleared.
func (r *Repository) ClearSessionIf(ctx context.Context, fn func(State, Session) bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, err := loadCollection[*Session](ctx, r, keySession, kindSession)
	if err != nil {
		return false, err
	}
	if sess == nil || sess.UserID == "" {
		return false, nil
	}
	st, err := r.loadState(ctx)
	if err != nil {
		return false, err
	}
	if !fn(st, *sess) {
		return false, nil
	}
	if err := r.store.Remove(ctx, keySession); err != nil {
		return false, apperror.Storage("remove session", err)
	}
	return true, nil
}
