package ledger

import (
	"sync"

	"github.com/gagliardetto/solana-go"

	"solana-scoring/internal/domain"
)

// watchBuffer is the per-watcher channel capacity. Updates to a watcher whose
// buffer is full are dropped.
const watchBuffer = 32

// AccountUpdate is a committed account state.
type AccountUpdate struct {
	Slot    uint64
	Account *domain.Account
}

type watchers struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[solana.PublicKey]map[uint64]chan AccountUpdate
}

func newWatchers() *watchers {
	return &watchers{subs: make(map[solana.PublicKey]map[uint64]chan AccountUpdate)}
}

func (w *watchers) add(address solana.PublicKey) (uint64, chan AccountUpdate) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.nextID++
	ch := make(chan AccountUpdate, watchBuffer)
	if w.subs[address] == nil {
		w.subs[address] = make(map[uint64]chan AccountUpdate)
	}
	w.subs[address][w.nextID] = ch
	return w.nextID, ch
}

func (w *watchers) remove(address solana.PublicKey, id uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ch, ok := w.subs[address][id]
	if !ok {
		return
	}
	delete(w.subs[address], id)
	if len(w.subs[address]) == 0 {
		delete(w.subs, address)
	}
	close(ch)
}

func (w *watchers) publish(slot uint64, accounts []*domain.Account) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, acc := range accounts {
		for _, ch := range w.subs[acc.Address] {
			select {
			case ch <- AccountUpdate{Slot: slot, Account: acc.Clone()}:
			default:
			}
		}
	}
}

// WatchAccount streams committed updates of address until cancel is called.
// cancel closes the channel.
func (l *Ledger) WatchAccount(address solana.PublicKey) (<-chan AccountUpdate, func()) {
	id, ch := l.watchers.add(address)
	var once sync.Once
	return ch, func() {
		once.Do(func() { l.watchers.remove(address, id) })
	}
}
