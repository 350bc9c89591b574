package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/abank/internal/apperror"
	"github.com/congo-pay/abank/internal/kvstore"
	"github.com/congo-pay/abank/internal/logging"
	"github.com/congo-pay/abank/internal/money"
)

var testTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRepository(t *testing.T) (*Repository, kvstore.Store) {
	t.Helper()
	store := kvstore.NewMemory()
	return NewRepository(store, logging.Discard()), store
}

func testUser(id, email, phone string, balance money.Amount) User {
	return User{
		ID:        id,
		Name:      "Test",
		Email:     email,
		Phone:     phone,
		Balance:   balance,
		Role:      RoleUser,
		Status:    StatusActive,
		CreatedAt: testTime,
	}
}

func TestAbsentCollectionsAreEmpty(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	users, err := repo.LoadUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	ops, err := repo.LoadOperations(ctx)
	require.NoError(t, err)
	assert.Empty(t, ops)

	settings, err := repo.LoadSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), settings)

	session, err := repo.LoadSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestUsersRoundTrip(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	login := testTime.Add(time.Hour)
	in := testUser("user_1", "a@x.com", "+7 (999) 111-11-11", money.FromMajor(10))
	in.LastLogin = &login
	in.Cards = []Card{{ID: "card_1", Number: "4276014426531203", Status: StatusActive, IssuedAt: testTime}}
	require.NoError(t, repo.SaveUsers(ctx, []User{in}))

	users, err := repo.LoadUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, in.Email, users[0].Email)
	assert.Equal(t, in.Balance, users[0].Balance)
	assert.True(t, users[0].LastLogin.Equal(login))
	assert.Equal(t, "4276014426531203", users[0].Cards[0].Number)
}

func TestSaveOperationsKeepsNewestThousand(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	ops := make([]Operation, 0, MaxOperations+25)
	for i := MaxOperations + 25; i > 0; i-- {
		ops = append(ops, Operation{ID: fmt.Sprintf("op_%d", i), Type: OpAdminCredit, Amount: 1, At: testTime})
	}
	require.NoError(t, repo.SaveOperations(ctx, ops))

	stored, err := repo.LoadOperations(ctx)
	require.NoError(t, err)
	require.Len(t, stored, MaxOperations)
	assert.Equal(t, fmt.Sprintf("op_%d", MaxOperations+25), stored[0].ID)
	assert.Equal(t, "op_26", stored[len(stored)-1].ID)
}

func TestUpdateEnforcesRetentionCaps(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	for i := 0; i < MaxReceipts+10; i++ {
		err := repo.Update(ctx, func(st *State) error {
			st.PrependOperation(Operation{ID: fmt.Sprintf("op_%d", i), Type: OpTransfer, Amount: 1, At: testTime})
			st.PrependOperation(Operation{ID: fmt.Sprintf("op_%d_b", i), Type: OpAdminCredit, Amount: 1, At: testTime})
			st.PrependReceipt(Receipt{ID: fmt.Sprintf("rcpt_%d", i), OperationID: fmt.Sprintf("op_%d", i), Number: "R", Amount: 1, At: testTime})
			return nil
		})
		require.NoError(t, err)
	}

	ops, err := repo.LoadOperations(ctx)
	require.NoError(t, err)
	assert.Len(t, ops, MaxOperations)
	assert.Equal(t, fmt.Sprintf("op_%d_b", MaxReceipts+9), ops[0].ID)

	receipts, err := repo.LoadReceipts(ctx)
	require.NoError(t, err)
	assert.Len(t, receipts, MaxReceipts)
	assert.Equal(t, fmt.Sprintf("rcpt_%d", MaxReceipts+9), receipts[0].ID)
	assert.Equal(t, "rcpt_10", receipts[len(receipts)-1].ID)
}

// Malformed documents read as empty collections: availability is preferred
// over surfacing corruption, so data already in a bad document is lost on
// the next write.
func TestMalformedDocumentsReadAsEmpty(t *testing.T) {
	cases := map[string][]byte{
		"not json":         []byte(`{users`),
		"legacy bare list": []byte(`[{"id":"user_001","email":"ivan@example.com","balance":15000}]`),
		"future version":   []byte(`{"version":2,"kind":"users","data":[]}`),
		"wrong kind":       []byte(`{"version":1,"kind":"receipts","data":[]}`),
		"negative balance": []byte(`{"version":1,"kind":"users","data":[{"id":"u","email":"e","phone":"p","balance":-5,"role":"user","status":"active"}]}`),
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			repo, store := newTestRepository(t)
			ctx := context.Background()
			require.NoError(t, store.Write(ctx, keyUsers, raw))

			users, err := repo.LoadUsers(ctx)
			require.NoError(t, err)
			assert.Empty(t, users)

			require.NoError(t, repo.Update(ctx, func(st *State) error {
				assert.Empty(t, st.Users)
				st.Users = append(st.Users, testUser("user_1", "a@x.com", "+7 (999) 111-11-11", 0))
				return nil
			}))
			users, err = repo.LoadUsers(ctx)
			require.NoError(t, err)
			assert.Len(t, users, 1)
		})
	}
}

func TestMalformedSettingsFallBackToDefaults(t *testing.T) {
	repo, store := newTestRepository(t)
	ctx := context.Background()
	require.NoError(t, store.Write(ctx, keySettings, []byte(`{"version":1,"kind":"settings","data":{"transferLimit":-1}}`)))

	settings, err := repo.LoadSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), settings)
}

func TestUpdateWritesNothingWhenCallbackFails(t *testing.T) {
	repo, store := newTestRepository(t)
	ctx := context.Background()
	require.NoError(t, repo.SaveUsers(ctx, []User{testUser("user_1", "a@x.com", "+7 (999) 111-11-11", 500)}))

	boom := errors.New("boom")
	err := repo.Update(ctx, func(st *State) error {
		u, _ := st.UserByID("user_1")
		u.Balance = 0
		st.PrependOperation(Operation{ID: "op_1", Type: OpTransfer, Amount: 500, At: testTime})
		return boom
	})
	require.ErrorIs(t, err, boom)

	users, err := repo.LoadUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, money.Amount(500), users[0].Balance)

	_, err = store.Read(ctx, keyOperations)
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
}

type recordingStore struct {
	kvstore.Store
	mu      sync.Mutex
	batches [][]string
	failErr error
}

func (s *recordingStore) WriteBatch(ctx context.Context, entries []kvstore.Entry) error {
	if s.failErr != nil {
		return s.failErr
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e.Key)
	}
	s.mu.Lock()
	s.batches = append(s.batches, keys)
	s.mu.Unlock()
	return s.Store.WriteBatch(ctx, entries)
}

func TestUpdateCommitsOnlyChangedCollectionsInOneBatch(t *testing.T) {
	store := &recordingStore{Store: kvstore.NewMemory()}
	repo := NewRepository(store, logging.Discard())
	ctx := context.Background()

	require.NoError(t, repo.Update(ctx, func(st *State) error {
		st.Users = append(st.Users, testUser("user_1", "a@x.com", "+7 (999) 111-11-11", 100))
		st.PrependOperation(Operation{ID: "op_1", Type: OpWelcomeBonus, UserID: "user_1", Amount: 100, At: testTime})
		return nil
	}))
	require.NoError(t, repo.Update(ctx, func(*State) error { return nil }))

	require.Len(t, store.batches, 1)
	assert.ElementsMatch(t, []string{keyUsers, keyOperations}, store.batches[0])
}

func TestUpdateSurfacesStorageErrors(t *testing.T) {
	store := &recordingStore{Store: kvstore.NewMemory(), failErr: errors.New("connection reset")}
	repo := NewRepository(store, logging.Discard())

	err := repo.Update(context.Background(), func(st *State) error {
		st.Users = append(st.Users, testUser("user_1", "a@x.com", "+7 (999) 111-11-11", 100))
		return nil
	})
	require.ErrorIs(t, err, apperror.ErrStorage)
}

func TestSessionSlot(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveSession(ctx, Session{UserID: "user_1", Token: "t1", LoggedInAt: testTime}))
	require.NoError(t, repo.SaveSession(ctx, Session{UserID: "user_2", Token: "t2", LoggedInAt: testTime}))

	session, err := repo.LoadSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "user_2", session.UserID)

	require.NoError(t, repo.ClearSession(ctx))
	session, err = repo.LoadSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestBootstrapRunsOnce(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	calls := 0
	seed := func(st *State) error {
		calls++
		st.Passports = append(st.Passports, Passport{Number: "4500123456", Verified: true})
		return nil
	}

	ran, err := repo.Bootstrap(ctx, seed)
	require.NoError(t, err)
	assert.True(t, ran)

	ran, err = repo.Bootstrap(ctx, seed)
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Equal(t, 1, calls)

	passports, err := repo.LoadPassports(ctx)
	require.NoError(t, err)
	assert.Len(t, passports, 1)
}

func TestConcurrentUpdatesAreSerialised(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	require.NoError(t, repo.SaveUsers(ctx, []User{testUser("user_1", "a@x.com", "+7 (999) 111-11-11", 0)}))

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Update(ctx, func(st *State) error {
				u, _ := st.UserByID("user_1")
				u.Balance += 10
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	users, err := repo.LoadUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, money.Amount(workers*10), users[0].Balance)
}
