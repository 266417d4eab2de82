package types

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	logging "github.com/ipfs/go-log/v2"
	"github.com/modern-go/reflect2"
)

var log = logging.Logger("pairing_stream")

var ErrCloseChannel = fmt.Errorf("send on closed wallet channel")

// EventStream correlates requests pushed to wallet channels with the
// responses wallets post back, and sweeps requests that outlive the
// configured timeout.
type EventStream struct {
	reqLk     sync.RWMutex
	idRequest map[uuid.UUID]*RequestEvent
	cfg       *RequestConfig
}

func NewEventStream(ctx context.Context, cfg *RequestConfig) *EventStream {
	stream := &EventStream{
		idRequest: make(map[uuid.UUID]*RequestEvent),
		cfg:       cfg,
	}
	go stream.cleanRequests(ctx)
	return stream
}

// SendRequest pushes the request to the first channel and falls back to the
// remaining ones if that push fails outright. The caller's result is
// unmarshalled from the wallet's response payload.
func (e *EventStream) SendRequest(ctx context.Context, channels []*ChannelInfo, method string, payload []byte, result interface{}) error {
	if len(channels) == 0 {
		return fmt.Errorf("send request must have channel")
	}

	processResp := func(resp *ResponseEvent) error {
		if len(resp.Error) > 0 {
			return errors.New(resp.Error)
		}

		if !reflect2.IsNil(result) {
			return json.Unmarshal(resp.Payload, result)
		}
		return nil
	}

	firstChannel := channels[0]
	resp, err := e.sendOnce(ctx, firstChannel, method, payload)
	if err == nil {
		return processResp(resp)
	}

	if ctx.Err() != nil || len(channels) == 1 { //if ctx have done before, not to try others
		return err
	}

	log.Warnf("first channel failed for %s, trying remaining channels", method)
	otherChannels := channels[1:]
	respCh := make(chan *ResponseEvent)
	for _, channel := range otherChannels {
		go func(channel *ChannelInfo) {
			respEvent, err := e.sendOnce(ctx, channel, method, payload)
			if err != nil {
				log.Errorf("send request %s to %s failed %v", method, channel.Origin, err)
				return
			}
			respCh <- respEvent
		}(channel)
	}

	select {
	case resp := <-respCh:
		return processResp(resp)
	case <-ctx.Done():
		return fmt.Errorf("request cancel by context")
	}
}

func (e *EventStream) sendOnce(ctx context.Context, channel *ChannelInfo, method string, payload []byte) (response *ResponseEvent, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrCloseChannel
		}
	}()

	id := uuid.New()
	resultCh := make(chan *ResponseEvent, 1)
	request := &RequestEvent{
		ID:         id,
		Method:     method,
		Payload:    payload,
		CreateTime: time.Now(),
		Result:     resultCh,
	}
	e.reqLk.Lock()
	e.idRequest[id] = request
	e.reqLk.Unlock()

	select {
	case channel.OutBound <- request: // panics on a closed channel, caught above
		log.Debugf("send request %s to %s", method, channel.Origin)
	case <-ctx.Done():
		return nil, fmt.Errorf("send request cancel by context %w", ctx.Err())
	}

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("cancel by context %w", ctx.Err())
	case respEvent := <-resultCh:
		return respEvent, nil
	}
}

func (e *EventStream) cleanRequests(ctx context.Context) {
	tm := time.NewTicker(e.cfg.ClearInterval)
	defer tm.Stop()
	for {
		select {
		case <-tm.C:
			e.reqLk.Lock()
			for id, request := range e.idRequest {
				if time.Since(request.CreateTime) > e.cfg.RequestTimeout {
					delete(e.idRequest, id)
					// avoid blocking in case the wallet answers right as we sweep
					select {
					case request.Result <- &ResponseEvent{
						ID:      id,
						Payload: nil,
						Error:   fmt.Sprintf("request exceeded wait time, create time %s method %s", request.CreateTime, request.Method),
					}:
					default:
					}
				}
			}
			e.reqLk.Unlock()
		case <-ctx.Done():
			log.Warnf("stop cleaning pending requests")
			return
		}
	}
}

// ResponseEvent resolves the pending request matching resp.ID.
func (e *EventStream) ResponseEvent(ctx context.Context, resp *ResponseEvent) error {
	e.reqLk.Lock()
	event, ok := e.idRequest[resp.ID]
	if ok {
		delete(e.idRequest, resp.ID)
	} else {
		e.reqLk.Unlock()
		return fmt.Errorf("request id %s not exist", resp.ID.String())
	}
	e.reqLk.Unlock()

	event.Result <- resp
	return nil
}
