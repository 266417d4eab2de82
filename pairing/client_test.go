package pairing

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fairwind-labs/mintgate/testhelper"
)

func TestInitializeRunsSetupOnce(t *testing.T) {
	t.Run("sequential callers", func(t *testing.T) {
		connector := testhelper.NewStubConnector()
		client := NewClient(connector, func() bool { return false })

		ctx := context.Background()
		for i := 0; i < 5; i++ {
			require.NoError(t, client.Initialize(ctx))
		}
		require.Equal(t, 1, connector.InitCalls())
	})

	t.Run("concurrent callers share one outcome", func(t *testing.T) {
		connector := testhelper.NewStubConnector()
		connector.InitDelay = 20 * time.Millisecond
		client := NewClient(connector, func() bool { return false })

		ctx := context.Background()
		const callers = 16
		errs := make([]error, callers)
		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = client.Initialize(ctx)
			}(i)
		}
		wg.Wait()

		require.Equal(t, 1, connector.InitCalls())
		for _, err := range errs {
			require.NoError(t, err)
		}
	})

	t.Run("failed setup is shared too", func(t *testing.T) {
		connector := testhelper.NewStubConnector()
		connector.InitErr = fmt.Errorf("relay unreachable")
		client := NewClient(connector, func() bool { return false })

		ctx := context.Background()
		first := client.Initialize(ctx)
		second := client.Initialize(ctx)
		require.EqualError(t, first, "relay unreachable")
		require.Equal(t, first, second)
		require.Equal(t, 1, connector.InitCalls())
	})
}

func TestOpenPairingModal(t *testing.T) {
	t.Run("pairs a signer", func(t *testing.T) {
		connector := testhelper.NewStubConnector()
		connector.ModalSigner = testhelper.NewKeySigner("0.0.123")
		client := NewClient(connector, func() bool { return false })

		require.NoError(t, client.OpenPairingModal(context.Background()))
		require.Equal(t, 1, connector.ModalCalls())

		signer, ok := client.CurrentSigner()
		require.True(t, ok)
		require.EqualValues(t, "0.0.123", signer.AccountID())
	})

	t.Run("no-op while connected", func(t *testing.T) {
		connector := testhelper.NewStubConnector()
		connector.Pair(testhelper.NewKeySigner("0.0.123"))
		client := NewClient(connector, func() bool { return true })
		// init already completed in an earlier flow
		require.NoError(t, client.Initialize(context.Background()))

		require.NoError(t, client.OpenPairingModal(context.Background()))
		require.Equal(t, 0, connector.ModalCalls())
		require.Equal(t, 1, connector.InitCalls())
	})

	t.Run("modal failure surfaces", func(t *testing.T) {
		connector := testhelper.NewStubConnector()
		connector.ModalErr = fmt.Errorf("user closed the modal")
		client := NewClient(connector, func() bool { return false })

		err := client.OpenPairingModal(context.Background())
		require.ErrorContains(t, err, "user closed the modal")

		_, ok := client.CurrentSigner()
		require.False(t, ok)
	})
}

func TestDisconnectAll(t *testing.T) {
	t.Run("no active session performs zero connector calls", func(t *testing.T) {
		connector := testhelper.NewStubConnector()
		client := NewClient(connector, func() bool { return false })

		require.NoError(t, client.DisconnectAll(context.Background()))
		require.Equal(t, 0, connector.DisconnectCalls())
	})

	t.Run("tears down while connected", func(t *testing.T) {
		connector := testhelper.NewStubConnector()
		connector.Pair(testhelper.NewKeySigner("0.0.123"))
		client := NewClient(connector, func() bool { return true })

		require.NoError(t, client.DisconnectAll(context.Background()))
		require.Equal(t, 1, connector.DisconnectCalls())

		_, ok := client.CurrentSigner()
		require.False(t, ok)
	})
}

func TestCurrentSignerIsFirstOfSet(t *testing.T) {
	connector := testhelper.NewStubConnector()
	connector.Pair(testhelper.NewKeySigner("0.0.1"))
	connector.Pair(testhelper.NewKeySigner("0.0.2"))
	client := NewClient(connector, func() bool { return true })

	signer, ok := client.CurrentSigner()
	require.True(t, ok)
	require.EqualValues(t, "0.0.1", signer.AccountID())
}
