package ledger

import "time"

// SeedBalance is a test helper that credits an in-memory wallet through a
// completed deposit, so the balance invariant (balance == sum of completed
// amounts) keeps holding for seeded wallets.
func SeedBalance(s Store, walletID string, amount int64) {
	mem, ok := s.(*inMemoryStore)
	if !ok || amount <= 0 {
		return
	}
	mem.mu.Lock()
	defer mem.mu.Unlock()

	w, ok := mem.wallets[walletID]
	if !ok {
		return
	}
	mem.newTransaction(walletID, KindDeposit, amount, StatusCompleted,
		DepositMetadata{Method: "seed"}, "test seed")
	w.Balance += amount
	w.UpdatedAt = time.Now().UTC()
	mem.wallets[walletID] = w
}
