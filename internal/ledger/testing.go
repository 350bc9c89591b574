package ledger

import "context"

// SeedState is a test helper that replaces every collection with st.
func SeedState(ctx context.Context, repo *Repository, st State) error {
	return repo.Update(ctx, func(cur *State) error {
		*cur = st
		return nil
	})
}

// Snapshot is a test helper returning a copy of every collection.
func Snapshot(ctx context.Context, repo *Repository) (State, error) {
	var out State
	err := repo.View(ctx, func(st State) error {
		out = st
		return nil
	})
	return out, err
}
