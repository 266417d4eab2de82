package testhelper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fairwind-labs/mintgate/ledger"
)

// KeySigner is an in-process signer handle bound to one account, backed by a
// locally generated key.
type KeySigner struct {
	account ledger.AccountID
	key     ledger.PrivateKey
	fail    bool
}

var _ ledger.Signer = (*KeySigner)(nil)

func NewKeySigner(account ledger.AccountID) *KeySigner {
	key, err := ledger.GeneratePrivateKey()
	if err != nil {
		panic(fmt.Errorf("generate signer key: %v", err))
	}
	return &KeySigner{account: account, key: key}
}

func (k *KeySigner) SetFail(fail bool) {
	k.fail = fail
}

func (k *KeySigner) AccountID() ledger.AccountID {
	return k.account
}

func (k *KeySigner) Sign(ctx context.Context, toSign []byte) ([]byte, error) {
	if k.fail {
		return nil, fmt.Errorf("mock error")
	}
	return k.key.SignBytes(toSign), nil
}

// StubConnector is a scripted pairing connector: pairing, teardown and setup
// outcomes are fixed up front and every call is counted.
type StubConnector struct {
	lk sync.Mutex

	InitErr       error
	InitDelay     time.Duration
	ModalErr      error
	DisconnectErr error

	// ModalSigner is the signer that pairs when the modal flow completes.
	ModalSigner ledger.Signer

	initCalls       int
	modalCalls      int
	disconnectCalls int
	signers         []ledger.Signer
}

func NewStubConnector() *StubConnector {
	return &StubConnector{}
}

func (s *StubConnector) Initialize(ctx context.Context) error {
	s.lk.Lock()
	s.initCalls++
	s.lk.Unlock()
	if s.InitDelay > 0 {
		select {
		case <-time.After(s.InitDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.InitErr
}

func (s *StubConnector) OpenModal(ctx context.Context) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.modalCalls++
	if s.ModalErr != nil {
		return s.ModalErr
	}
	if s.ModalSigner != nil {
		s.signers = append(s.signers, s.ModalSigner)
	}
	return nil
}

func (s *StubConnector) DisconnectAll(ctx context.Context) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.disconnectCalls++
	if s.DisconnectErr != nil {
		// teardown failed, the remote pairing may still be alive
		return s.DisconnectErr
	}
	s.signers = nil
	return nil
}

func (s *StubConnector) Signers() []ledger.Signer {
	s.lk.Lock()
	defer s.lk.Unlock()
	out := make([]ledger.Signer, len(s.signers))
	copy(out, s.signers)
	return out
}

// Pair attaches a signer directly, bypassing the modal flow.
func (s *StubConnector) Pair(signer ledger.Signer) {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.signers = append(s.signers, signer)
}

// Drop detaches all signers, as if the wallet walked away.
func (s *StubConnector) Drop() {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.signers = nil
}

func (s *StubConnector) InitCalls() int {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.initCalls
}

func (s *StubConnector) ModalCalls() int {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.modalCalls
}

func (s *StubConnector) DisconnectCalls() int {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.disconnectCalls
}
