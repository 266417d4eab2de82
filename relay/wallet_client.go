package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fairwind-labs/mintgate/types"
)

// WalletEventClient is the wallet side of the relay: it registers the
// wallet's account, then answers sign requests pushed over the event channel
// using the wallet's own handler.
type WalletEventClient struct {
	processor types.ISignHandler
	client    IRelayAPI
	log       *zap.SugaredLogger
	channel   uuid.UUID
	readyCh   chan struct{}
}

func NewWalletEventClient(processor types.ISignHandler, client IRelayAPI, log *zap.SugaredLogger) *WalletEventClient {
	return &WalletEventClient{
		processor: processor,
		client:    client,
		log:       log,
		readyCh:   make(chan struct{}, 1),
	}
}

func (e *WalletEventClient) ListenWalletRequest(ctx context.Context) {
	for {
		if err := e.listenWalletRequestOnce(ctx); err != nil {
			e.log.Errorf("listen wallet event errored: %s", err)
		} else {
			e.log.Warn("listenWalletRequestOnce quit, try again")
		}
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			e.log.Warnf("not restarting listenWalletRequestOnce: context error: %s", ctx.Err())
			return
		}
		e.log.Info("restarting listenWalletRequestOnce")
		// try clear ready channel
		select {
		case <-e.readyCh:
		default:
		}
	}
}

// WaitReady blocks until the relay has acknowledged the registration.
func (e *WalletEventClient) WaitReady(ctx context.Context) {
	select {
	case <-e.readyCh:
	case <-ctx.Done():
	}
}

func (e *WalletEventClient) listenWalletRequestOnce(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	account, err := e.processor.Account(ctx)
	if err != nil {
		return fmt.Errorf("resolve wallet account: %w", err)
	}
	policy := &RegisterPolicy{Account: account}
	walletEventCh, err := e.client.ListenWalletEvent(ctx, policy)
	if err != nil {
		// Retry is handled by caller
		return fmt.Errorf("listenWalletRequestOnce call failed: %w", err)
	}

	for event := range walletEventCh {
		switch event.Method {
		case "InitConnect":
			req := types.ConnectedCompleted{}
			err := json.Unmarshal(event.Payload, &req)
			if err != nil {
				e.log.Errorf("init connect error %s", err)
			}
			e.channel = req.ChannelID
			e.log.Infof("connect to relay success %v", req.ChannelID)
			e.readyCh <- struct{}{}
			// do not response
		case "TransactionSign":
			go e.transactionSign(ctx, event)
		default:
			e.log.Errorf("unexpect wallet event type %s", event.Method)
		}
	}

	return nil
}

func (e *WalletEventClient) transactionSign(ctx context.Context, event *types.RequestEvent) {
	e.log.Debug("receive TransactionSign event")
	req := types.SignRequest{}
	err := json.Unmarshal(event.Payload, &req)
	if err != nil {
		e.log.Errorf("unmarshal SignRequest error %s", err)
		e.error(ctx, event.ID, err)
		return
	}
	sig, err := e.processor.Sign(ctx, req.Account, req.ToSign)
	if err != nil {
		e.log.Errorf("TransactionSign error %s", err)
		e.error(ctx, event.ID, err)
		return
	}
	e.value(ctx, event.ID, sig)
}

func (e *WalletEventClient) value(ctx context.Context, id uuid.UUID, val interface{}) {
	respBytes, err := json.Marshal(val)
	if err != nil {
		e.log.Errorf("marshal response error %s", err)
		err = e.client.ResponseWalletEvent(ctx, &types.ResponseEvent{
			ID:      id,
			Payload: nil,
			Error:   err.Error(),
		})
		e.log.Errorf("response wallet event error %s", err)
		return
	}
	err = e.client.ResponseWalletEvent(ctx, &types.ResponseEvent{
		ID:      id,
		Payload: respBytes,
		Error:   "",
	})
	if err != nil {
		e.log.Errorf("response error %v", err)
	}
}

func (e *WalletEventClient) error(ctx context.Context, id uuid.UUID, err error) {
	err = e.client.ResponseWalletEvent(ctx, &types.ResponseEvent{
		ID:      id,
		Payload: nil,
		Error:   err.Error(),
	})
	if err != nil {
		e.log.Errorf("response error %v", err)
	}
}
