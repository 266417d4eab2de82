package testhelper

import (
	"context"
	"fmt"
	"sync"

	"github.com/fairwind-labs/mintgate/ledger"
	"github.com/fairwind-labs/mintgate/types"
)

var _ types.ISignHandler = (*MemWallet)(nil)

// MemWallet is the wallet-side processor used in relay tests: a single
// account with a locally held key, approving everything pushed at it.
type MemWallet struct {
	lk      sync.Mutex
	account ledger.AccountID
	key     ledger.PrivateKey
	fail    bool
}

func NewMemWallet(account ledger.AccountID) *MemWallet {
	key, err := ledger.GeneratePrivateKey()
	if err != nil {
		panic(fmt.Errorf("generate wallet key: %v", err))
	}
	return &MemWallet{
		account: account,
		key:     key,
	}
}

func (m *MemWallet) SetFail(ctx context.Context, fail bool) {
	m.lk.Lock()
	defer m.lk.Unlock()
	m.fail = fail
}

func (m *MemWallet) Account(ctx context.Context) (ledger.AccountID, error) {
	if m.fail {
		return "", fmt.Errorf("mock error")
	}
	return m.account, nil
}

func (m *MemWallet) Sign(ctx context.Context, account ledger.AccountID, toSign []byte) ([]byte, error) {
	m.lk.Lock()
	defer m.lk.Unlock()
	if m.fail {
		return nil, fmt.Errorf("mock error")
	}
	if account != m.account {
		return nil, fmt.Errorf("account %s not found", account)
	}
	return m.key.SignBytes(toSign), nil
}

// PublicKey exposes the wallet key for signature assertions.
func (m *MemWallet) PublicKey() ledger.PublicKey {
	return m.key.PublicKey()
}
