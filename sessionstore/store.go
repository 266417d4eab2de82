package sessionstore

import (
	"sync"
)

// connectedFlag is the only value of the connected key that restores a
// session. Anything else, including a missing key, reads as disconnected.
const connectedFlag = "true"

// Store persists the paired account across restarts. Save writes the account
// id together with the connected flag; Load yields the account only when both
// keys are present and the flag is exactly "true". Storage trouble on Load is
// treated as an absent session, never surfaced as an error.
type Store interface {
	Save(accountID string) error
	Load() (accountID string, ok bool)
	Clear() error
}

// MemStore is the in-memory Store used by tests and the default daemon setup
// before a path is configured.
type MemStore struct {
	lk          sync.Mutex
	accountID   string
	isConnected string
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (m *MemStore) Save(accountID string) error {
	m.lk.Lock()
	defer m.lk.Unlock()
	m.accountID = accountID
	m.isConnected = connectedFlag
	return nil
}

func (m *MemStore) Load() (string, bool) {
	m.lk.Lock()
	defer m.lk.Unlock()
	if m.accountID == "" || m.isConnected != connectedFlag {
		return "", false
	}
	return m.accountID, true
}

func (m *MemStore) Clear() error {
	m.lk.Lock()
	defer m.lk.Unlock()
	m.accountID = ""
	m.isConnected = ""
	return nil
}

// SetRaw writes both keys without validation, mirroring what an external
// writer could leave behind. Test helper.
func (m *MemStore) SetRaw(accountID, isConnected string) {
	m.lk.Lock()
	defer m.lk.Unlock()
	m.accountID = accountID
	m.isConnected = isConnected
}
