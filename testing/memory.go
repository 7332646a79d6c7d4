package testing

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/marcoalfans/manud-be/listing"
	"github.com/marcoalfans/manud-be/models"
	"github.com/marcoalfans/manud-be/repository"
)

// PassthroughTx runs units of work directly; memory repositories lock per call.
type PassthroughTx struct {
	PingErr error
}

func (PassthroughTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (p PassthroughTx) Ping(context.Context) error { return p.PingErr }

// MemoryCounterRepository is a mutex-guarded CounterRepository.
type MemoryCounterRepository struct {
	mu       sync.Mutex
	counters map[string]models.Counter

	// BeforeCompareAndSwap, when set, runs before each swap outside the lock
	BeforeCompareAndSwap func(name string)
}

func NewMemoryCounterRepository() *MemoryCounterRepository {
	return &MemoryCounterRepository{counters: make(map[string]models.Counter)}
}

func (r *MemoryCounterRepository) ByName(_ context.Context, name string) (*models.Counter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.counters[name]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *MemoryCounterRepository) Insert(_ context.Context, counter *models.Counter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.counters[counter.Name]; ok {
		return repository.ErrConflict
	}
	r.counters[counter.Name] = *counter
	return nil
}

func (r *MemoryCounterRepository) CompareAndSwap(_ context.Context, name string, expected, next int64, at time.Time) error {
	if r.BeforeCompareAndSwap != nil {
		r.BeforeCompareAndSwap(name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.counters[name]
	if !ok || c.Seq != expected {
		return repository.ErrConflict
	}
	c.Seq, c.UpdatedAt = next, at
	r.counters[name] = c
	return nil
}

// Set overwrites a counter, as a concurrent writer or a previous run would.
func (r *MemoryCounterRepository) Set(name string, seq int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.counters[name]
	c.Name, c.Seq = name, seq
	r.counters[name] = c
}

type keyed[T any] interface {
	*T
	listing.Keyed
}

// MemoryCatalog is an in-memory CatalogRepository evaluated with listing.Evaluate.
type MemoryCatalog[T any, PT keyed[T]] struct {
	mu   sync.RWMutex
	rows map[int64]T
}

func newMemoryCatalog[T any, PT keyed[T]]() *MemoryCatalog[T, PT] {
	return &MemoryCatalog[T, PT]{rows: make(map[int64]T)}
}

func (r *MemoryCatalog[T, PT]) ByID(_ context.Context, id int64) (*T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (r *MemoryCatalog[T, PT]) Create(_ context.Context, entity *T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := PT(entity).ListingID()
	if _, ok := r.rows[id]; ok {
		return repository.ErrConflict
	}
	r.rows[id] = *entity
	return nil
}

func (r *MemoryCatalog[T, PT]) Update(_ context.Context, entity *T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := PT(entity).ListingID()
	if _, ok := r.rows[id]; !ok {
		return repository.ErrNotFound
	}
	r.rows[id] = *entity
	return nil
}

func (r *MemoryCatalog[T, PT]) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *MemoryCatalog[T, PT]) SaveBatch(_ context.Context, entities []*T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entities {
		r.rows[PT(e).ListingID()] = *e
	}
	return nil
}

func (r *MemoryCatalog[T, PT]) List(_ context.Context, q listing.Query) ([]*T, error) {
	rows := r.snapshot()
	keyedRows := make([]PT, len(rows))
	for i := range rows {
		keyedRows[i] = PT(rows[i])
	}

	out := listing.Evaluate(keyedRows, q)
	result := make([]*T, len(out))
	for i, row := range out {
		result[i] = (*T)(row)
	}
	return result, nil
}

// Len reports the number of stored rows.
func (r *MemoryCatalog[T, PT]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rows)
}

// snapshot copies the stored rows ordered by id.
func (r *MemoryCatalog[T, PT]) snapshot() []*T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*T, 0, len(r.rows))
	for _, row := range r.rows {
		c := row
		out = append(out, &c)
	}
	slices.SortFunc(out, func(a, b *T) int {
		return cmp.Compare(PT(a).ListingID(), PT(b).ListingID())
	})
	return out
}

// MemoryUmkmRepository is an in-memory UmkmRepository.
type MemoryUmkmRepository struct {
	*MemoryCatalog[models.Umkm, *models.Umkm]
}

func NewMemoryUmkmRepository() *MemoryUmkmRepository {
	return &MemoryUmkmRepository{newMemoryCatalog[models.Umkm, *models.Umkm]()}
}

// MemoryDestinationRepository is an in-memory DestinationRepository.
type MemoryDestinationRepository struct {
	*MemoryCatalog[models.Destination, *models.Destination]
}

func NewMemoryDestinationRepository() *MemoryDestinationRepository {
	return &MemoryDestinationRepository{newMemoryCatalog[models.Destination, *models.Destination]()}
}

func (r *MemoryDestinationRepository) Browse(_ context.Context, namePrefix string, limit int) ([]*models.Destination, error) {
	var out []*models.Destination
	for _, d := range r.snapshot() {
		if len(out) == limit {
			break
		}
		if namePrefix != "" && (d.NameLower == nil || !strings.HasPrefix(*d.NameLower, namePrefix)) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// MemoryFavoriteRepository is an in-memory FavoriteRepository.
type MemoryFavoriteRepository struct {
	mu   sync.RWMutex
	rows map[string]models.Favorite
}

func NewMemoryFavoriteRepository() *MemoryFavoriteRepository {
	return &MemoryFavoriteRepository{rows: make(map[string]models.Favorite)}
}

func (r *MemoryFavoriteRepository) ByKey(_ context.Context, docID string) (*models.Favorite, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.rows[docID]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func (r *MemoryFavoriteRepository) Save(_ context.Context, favorite *models.Favorite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[favorite.DocID] = *favorite
	return nil
}

func (r *MemoryFavoriteRepository) SaveBatch(ctx context.Context, favorites []*models.Favorite) error {
	for _, f := range favorites {
		if err := r.Save(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

func (r *MemoryFavoriteRepository) ListByUser(_ context.Context, userID, namePrefix string) ([]*models.Favorite, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.Favorite
	for _, f := range r.rows {
		if f.UserID != userID {
			continue
		}
		if namePrefix != "" && (f.NameLower == nil || !strings.HasPrefix(*f.NameLower, namePrefix)) {
			continue
		}
		c := f
		out = append(out, &c)
	}
	slices.SortFunc(out, func(a, b *models.Favorite) int {
		return cmp.Compare(a.DestinationID, b.DestinationID)
	})
	return out, nil
}

func (r *MemoryFavoriteRepository) Delete(_ context.Context, docID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[docID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.rows, docID)
	return nil
}

func (r *MemoryFavoriteRepository) DeleteAllByUser(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for key, f := range r.rows {
		if f.UserID == userID {
			delete(r.rows, key)
			n++
		}
	}
	return n, nil
}

// MemoryUserRepository is an in-memory UserRepository.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]models.User)}
}

func (r *MemoryUserRepository) ByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *MemoryUserRepository) ByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *MemoryUserRepository) Save(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return repository.ErrConflict
		}
	}
	if _, ok := r.users[user.ID]; ok {
		return repository.ErrConflict
	}
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) UpdatePassword(_ context.Context, id, passwordHash string, at time.Time) error {
	return r.update(id, func(u *models.User) {
		u.PasswordHash, u.UpdatedAt = passwordHash, at
	})
}

func (r *MemoryUserRepository) MarkEmailVerified(_ context.Context, id string, at time.Time) error {
	return r.update(id, func(u *models.User) {
		u.EmailVerified, u.EmailVerifiedAt, u.UpdatedAt = true, &at, at
	})
}

func (r *MemoryUserRepository) update(id string, fn func(*models.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&u)
	r.users[id] = u
	return nil
}

// MemoryVerificationTokenRepository is an in-memory VerificationTokenRepository.
type MemoryVerificationTokenRepository struct {
	mu     sync.Mutex
	nextID uint
	tokens map[uint]models.VerificationToken
}

func NewMemoryVerificationTokenRepository() *MemoryVerificationTokenRepository {
	return &MemoryVerificationTokenRepository{tokens: make(map[uint]models.VerificationToken)}
}

func (r *MemoryVerificationTokenRepository) Save(_ context.Context, token *models.VerificationToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.Token == token.Token {
			return repository.ErrConflict
		}
	}
	r.nextID++
	token.ID = r.nextID
	r.tokens[token.ID] = *token
	return nil
}

func (r *MemoryVerificationTokenRepository) ActiveByToken(_ context.Context, token, tokenType string, now time.Time) (*models.VerificationToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.Token == token && t.Type == tokenType && !t.Used && !t.IsExpired(now) {
			return &t, nil
		}
	}
	return nil, nil
}

func (r *MemoryVerificationTokenRepository) MarkUsed(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok || t.Used {
		return repository.ErrConflict
	}
	t.Used = true
	r.tokens[id] = t
	return nil
}

func (r *MemoryVerificationTokenRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, t := range r.tokens {
		if t.Used || t.IsExpired(now) {
			delete(r.tokens, id)
			n++
		}
	}
	return n, nil
}

// Latest returns the most recently saved token of a type for an email.
func (r *MemoryVerificationTokenRepository) Latest(email, tokenType string) *models.VerificationToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *models.VerificationToken
	for _, t := range r.tokens {
		if t.Email == email && t.Type == tokenType && (latest == nil || t.ID > latest.ID) {
			c := t
			latest = &c
		}
	}
	return latest
}

// MemorySessionTokenRepository is an in-memory SessionTokenRepository.
type MemorySessionTokenRepository struct {
	mu       sync.Mutex
	nextID   uint
	sessions map[string]models.SessionToken
}

func NewMemorySessionTokenRepository() *MemorySessionTokenRepository {
	return &MemorySessionTokenRepository{sessions: make(map[string]models.SessionToken)}
}

func (r *MemorySessionTokenRepository) Save(_ context.Context, session *models.SessionToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.Token]; ok {
		return repository.ErrConflict
	}
	r.nextID++
	session.ID = r.nextID
	r.sessions[session.Token] = *session
	return nil
}

func (r *MemorySessionTokenRepository) IsValid(_ context.Context, userID, token string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[token]
	return ok && s.UserID == userID && now.Before(s.ExpiresAt), nil
}

func (r *MemorySessionTokenRepository) Delete(_ context.Context, userID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[token]
	if !ok || s.UserID != userID {
		return repository.ErrNotFound
	}
	delete(r.sessions, token)
	return nil
}

func (r *MemorySessionTokenRepository) DeleteAllByUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for token, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, token)
		}
	}
	return nil
}

func (r *MemorySessionTokenRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for token, s := range r.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(r.sessions, token)
			n++
		}
	}
	return n, nil
}

var (
	_ repository.CounterRepository           = (*MemoryCounterRepository)(nil)
	_ repository.UmkmRepository              = (*MemoryUmkmRepository)(nil)
	_ repository.DestinationRepository       = (*MemoryDestinationRepository)(nil)
	_ repository.FavoriteRepository          = (*MemoryFavoriteRepository)(nil)
	_ repository.UserRepository              = (*MemoryUserRepository)(nil)
	_ repository.VerificationTokenRepository = (*MemoryVerificationTokenRepository)(nil)
	_ repository.SessionTokenRepository      = (*MemorySessionTokenRepository)(nil)
	_ repository.TransactionManager          = PassthroughTx{}
)
