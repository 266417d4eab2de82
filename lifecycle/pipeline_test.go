package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fairwind-labs/mintgate/ledger"
	"github.com/fairwind-labs/mintgate/ledger/inmem"
	"github.com/fairwind-labs/mintgate/session"
	"github.com/fairwind-labs/mintgate/sessionstore"
	"github.com/fairwind-labs/mintgate/testhelper"
)

func setupPipeline(t *testing.T, cfg *Config) (*Pipeline, *inmem.Ledger, *testhelper.StubConnector) {
	t.Helper()
	connector := testhelper.NewStubConnector()
	connector.ModalSigner = testhelper.NewKeySigner("0.0.123")
	ctrl := session.NewController(connector, sessionstore.NewMemStore(), nil)
	ctrl.Connect(context.Background())
	require.True(t, ctrl.IsConnected())

	l := inmem.New()
	return NewPipeline(l.Builder(), ctrl, cfg), l, connector
}

func TestRunFullLifecycle(t *testing.T) {
	pipeline, l, _ := setupPipeline(t, nil)

	result, err := pipeline.Run(context.Background(), "Fairwind Collection", "FWC", "ipfs://updated-reference")
	require.NoError(t, err)
	require.NotEmpty(t, result.AssetClassID)
	require.EqualValues(t, 1, result.UnitSerial)
	require.NotEmpty(t, result.MetadataKey)
	require.NotEmpty(t, result.MintTransaction)

	journal := l.Journal()
	require.Len(t, journal, 3)

	create := journal[0]
	require.Equal(t, "asset_create", create.Kind)
	require.Equal(t, result.AssetClassID, create.Token)
	require.Equal(t, 1, create.ExecuteCalls)
	require.Equal(t, 1, create.ReceiptCalls)

	mint := journal[1]
	require.Equal(t, "unit_mint", mint.Kind)
	require.Equal(t, result.AssetClassID, mint.Token)
	require.Equal(t, 1, mint.FreezeCalls)
	require.Equal(t, 1, mint.KeySignCalls)
	require.Equal(t, 1, mint.ExecuteCalls)
	require.Equal(t, 1, mint.ReceiptCalls)
	require.Equal(t, []int64{1}, mint.Serials)

	amend := journal[2]
	require.Equal(t, "metadata_amend", amend.Kind)
	require.Equal(t, 1, amend.FreezeCalls)
	require.Equal(t, 1, amend.KeySignCalls)
	require.Equal(t, 1, amend.ExecuteCalls)
	require.Equal(t, 0, amend.ReceiptCalls, "stage 3 must not wait for a receipt")

	// the stored bytes must be the metadata text encoded exactly once,
	// never a re-encoding of already encoded bytes
	meta, ok := l.UnitMetadata(result.AssetClassID, result.UnitSerial)
	require.True(t, ok)
	require.Equal(t, []byte("ipfs://updated-reference"), meta)
}

func TestRunMintCarriesConfiguredContentReference(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MintMetadata = "ipfs://unit-content"
	pipeline, l, _ := setupPipeline(t, cfg)

	result, err := pipeline.Run(context.Background(), "Fairwind Collection", "FWC", "ipfs://after-amend")
	require.NoError(t, err)

	journal := l.Journal()
	require.Equal(t, [][]byte{[]byte("ipfs://unit-content")}, journal[1].Metadata)
	meta, _ := l.UnitMetadata(result.AssetClassID, result.UnitSerial)
	require.Equal(t, []byte("ipfs://after-amend"), meta)
}

func TestRunAbortsWithoutSession(t *testing.T) {
	connector := testhelper.NewStubConnector()
	ctrl := session.NewController(connector, sessionstore.NewMemStore(), nil)
	l := inmem.New()
	pipeline := NewPipeline(l.Builder(), ctrl, nil)

	_, err := pipeline.Run(context.Background(), "Fairwind Collection", "FWC", "ipfs://x")
	require.ErrorIs(t, err, ErrNotConnected)
	require.Empty(t, l.Journal())
}

func TestRunStageFailureAbortsLaterStages(t *testing.T) {
	t.Run("create fails, mint and amend never run", func(t *testing.T) {
		pipeline, l, _ := setupPipeline(t, nil)
		l.SetFailKind("asset_create")

		_, err := pipeline.Run(context.Background(), "Fairwind Collection", "FWC", "ipfs://x")
		require.Error(t, err)

		journal := l.Journal()
		require.Len(t, journal, 1)
		require.Equal(t, "asset_create", journal[0].Kind)
	})

	t.Run("mint fails, amend never runs", func(t *testing.T) {
		pipeline, l, _ := setupPipeline(t, nil)
		l.SetFailKind("unit_mint")

		_, err := pipeline.Run(context.Background(), "Fairwind Collection", "FWC", "ipfs://x")
		require.Error(t, err)

		journal := l.Journal()
		require.Len(t, journal, 2)
		require.Equal(t, "unit_mint", journal[1].Kind)
		require.Equal(t, 0, journal[1].ReceiptCalls)
	})
}

func TestAmendUnitMetadataStandalone(t *testing.T) {
	pipeline, l, _ := setupPipeline(t, nil)

	// an asset created earlier, amended later by an operator holding the key
	result, err := pipeline.Run(context.Background(), "Fairwind Collection", "FWC", "ipfs://first")
	require.NoError(t, err)

	err = pipeline.AmendUnitMetadata(context.Background(),
		string(result.AssetClassID), "1", "ipfs://abc", result.MetadataKey)
	require.NoError(t, err)

	journal := l.Journal()
	require.Len(t, journal, 4)
	amend := journal[3]
	require.Equal(t, "metadata_amend", amend.Kind)
	require.Equal(t, 1, amend.FreezeCalls)
	require.Equal(t, 1, amend.KeySignCalls)
	require.Equal(t, 1, amend.ExecuteCalls)
	require.Equal(t, 0, amend.ReceiptCalls)
	require.Equal(t, []int64{1}, amend.Serials)

	meta, ok := l.UnitMetadata(result.AssetClassID, 1)
	require.True(t, ok)
	require.Equal(t, []byte("ipfs://abc"), meta)
}

func TestAmendUnitMetadataValidation(t *testing.T) {
	pipeline, l, _ := setupPipeline(t, nil)
	key, err := ledger.GeneratePrivateKey()
	require.NoError(t, err)

	cases := []struct {
		name                                 string
		token, serial, newMetadata, keyInput string
	}{
		{"missing token", "", "1", "ipfs://abc", key.String()},
		{"missing serial", "0.0.500", "", "ipfs://abc", key.String()},
		{"missing metadata", "0.0.500", "1", "", key.String()},
		{"whitespace metadata", "0.0.500", "1", "   ", key.String()},
		{"missing key", "0.0.500", "1", "ipfs://abc", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := pipeline.AmendUnitMetadata(context.Background(), tc.token, tc.serial, tc.newMetadata, tc.keyInput)
			require.ErrorIs(t, err, ErrMissingField)
		})
	}
	require.Empty(t, l.Journal(), "validation failures must not reach the ledger")

	err = pipeline.AmendUnitMetadata(context.Background(), "0.0.500", "1", "ipfs://abc", "not-a-key")
	require.ErrorContains(t, err, "parse metadata key")
	require.Empty(t, l.Journal())

	err = pipeline.AmendUnitMetadata(context.Background(), "0.0.500", "one", "ipfs://abc", key.String())
	require.ErrorContains(t, err, "parse serial number")
	require.Empty(t, l.Journal())
}

func TestAmendRejectsWrongAuthorityKey(t *testing.T) {
	pipeline, l, _ := setupPipeline(t, nil)

	result, err := pipeline.Run(context.Background(), "Fairwind Collection", "FWC", "ipfs://first")
	require.NoError(t, err)

	wrongKey, err := ledger.GeneratePrivateKey()
	require.NoError(t, err)
	err = pipeline.AmendUnitMetadata(context.Background(),
		string(result.AssetClassID), "1", "ipfs://abc", wrongKey.String())
	require.ErrorContains(t, err, "metadata authority")

	meta, _ := l.UnitMetadata(result.AssetClassID, 1)
	require.Equal(t, []byte("ipfs://first"), meta)
}

// blockingBuilder stalls every execution until its context expires, to
// exercise the bounded-wait path.
type blockingBuilder struct {
	inner ledger.Builder
}

func (b *blockingBuilder) NewAssetCreate(params ledger.AssetCreateParams) ledger.Transaction {
	return &blockingTx{}
}
func (b *blockingBuilder) NewUnitMint(params ledger.MintParams) ledger.Transaction {
	return &blockingTx{}
}
func (b *blockingBuilder) NewMetadataAmend(params ledger.AmendParams) ledger.Transaction {
	return &blockingTx{}
}
func (b *blockingBuilder) NewTransactionID(payer ledger.AccountID) ledger.TransactionID {
	return b.inner.NewTransactionID(payer)
}

type blockingTx struct{}

func (t *blockingTx) FreezeWithSigner(ctx context.Context, signer ledger.Signer) error { return nil }
func (t *blockingTx) Sign(key ledger.PrivateKey) error                                 { return nil }
func (t *blockingTx) ExecuteWithSigner(ctx context.Context, signer ledger.Signer) (ledger.Result, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestCallTimeoutSurfacesAsDistinctError(t *testing.T) {
	connector := testhelper.NewStubConnector()
	connector.Pair(testhelper.NewKeySigner("0.0.123"))
	ctrl := session.NewController(connector, sessionstore.NewMemStore(), nil)
	ctrl.SyncState(context.Background())

	cfg := DefaultConfig()
	cfg.CallTimeout = 10 * time.Millisecond
	pipeline := NewPipeline(&blockingBuilder{inner: inmem.New().Builder()}, ctrl, cfg)

	_, err := pipeline.Run(context.Background(), "Fairwind Collection", "FWC", "ipfs://x")
	require.ErrorIs(t, err, ErrCallTimeout)
}

func TestCallerDeadlineIsNotLabeledCallTimeout(t *testing.T) {
	connector := testhelper.NewStubConnector()
	connector.Pair(testhelper.NewKeySigner("0.0.123"))
	ctrl := session.NewController(connector, sessionstore.NewMemStore(), nil)
	ctrl.SyncState(context.Background())

	cfg := DefaultConfig()
	cfg.CallTimeout = 0
	pipeline := NewPipeline(&blockingBuilder{inner: inmem.New().Builder()}, ctrl, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := pipeline.Run(ctx, "Fairwind Collection", "FWC", "ipfs://x")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotErrorIs(t, err, ErrCallTimeout)
}
