package relay

import (
	"context"
	"sync"

	"github.com/fairwind-labs/mintgate/ledger"
	"github.com/fairwind-labs/mintgate/types"
)

type walletConn struct {
	*types.ChannelInfo
	account ledger.AccountID
	cancel  context.CancelFunc
}

// connMgr keeps wallet connections in registration order. The first entry is
// the active signer. Waiters blocked in OpenModal are woken through the
// notify channel whenever a connection is added.
type connMgr struct {
	lk     sync.Mutex
	conns  []*walletConn
	notify chan struct{}
}

func newConnMgr() *connMgr {
	return &connMgr{
		notify: make(chan struct{}),
	}
}

func (m *connMgr) add(conn *walletConn) {
	m.lk.Lock()
	defer m.lk.Unlock()
	m.conns = append(m.conns, conn)
	close(m.notify)
	m.notify = make(chan struct{})
}

func (m *connMgr) remove(conn *walletConn) {
	m.lk.Lock()
	defer m.lk.Unlock()
	for i, c := range m.conns {
		if c == conn {
			m.conns = append(m.conns[:i], m.conns[i+1:]...)
			return
		}
	}
}

func (m *connMgr) removeAll() []*walletConn {
	m.lk.Lock()
	defer m.lk.Unlock()
	conns := m.conns
	m.conns = nil
	return conns
}

func (m *connMgr) list() []*walletConn {
	m.lk.Lock()
	defer m.lk.Unlock()
	out := make([]*walletConn, len(m.conns))
	copy(out, m.conns)
	return out
}

// firstOrNotify returns the active connection, or a channel that is closed
// on the next registration when none exists yet.
func (m *connMgr) firstOrNotify() (*walletConn, <-chan struct{}) {
	m.lk.Lock()
	defer m.lk.Unlock()
	if len(m.conns) > 0 {
		return m.conns[0], nil
	}
	return nil, m.notify
}

func (m *connMgr) count() int {
	m.lk.Lock()
	defer m.lk.Unlock()
	return len(m.conns)
}
