package types

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type mockParams struct {
	A string
}

type mockResult struct {
	B string
}

func TestSendRequest(t *testing.T) {
	params, err := json.Marshal(mockParams{A: "mock arg"})
	require.NoError(t, err)

	t.Run("correct", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		stream := NewEventStream(ctx, DefaultRequestConfig())

		client := setupClient(t, stream)
		go client.start(ctx)

		result := &mockResult{}
		err := stream.SendRequest(ctx, []*ChannelInfo{client.channel}, "mock_method", params, result)
		require.NoError(t, err)
		require.Equal(t, "mock arg", result.B)
	})

	t.Run("no channel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		stream := NewEventStream(ctx, DefaultRequestConfig())

		err := stream.SendRequest(ctx, nil, "mock_method", params, &mockResult{})
		require.EqualError(t, err, "send request must have channel")
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		stream := NewEventStream(ctx, DefaultRequestConfig())

		// client never reads, the send can only resolve through the context
		client := setupClient(t, stream)

		sendCtx, sendCancel := context.WithCancel(context.Background())
		sendCancel()
		err := stream.SendRequest(sendCtx, []*ChannelInfo{client.channel}, "mock_method", params, &mockResult{})
		require.EqualError(t, err, "send request cancel by context context canceled")
	})

	t.Run("first channel closed, fall back to second", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		stream := NewEventStream(ctx, DefaultRequestConfig())

		closed := setupClient(t, stream)
		closed.close()
		live := setupClient(t, stream)
		go live.start(ctx)

		result := &mockResult{}
		err := stream.SendRequest(ctx, []*ChannelInfo{closed.channel, live.channel}, "mock_method", params, result)
		require.NoError(t, err)
		require.Equal(t, "mock arg", result.B)
	})

	t.Run("single closed channel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		stream := NewEventStream(ctx, DefaultRequestConfig())

		closed := setupClient(t, stream)
		closed.close()

		err := stream.SendRequest(ctx, []*ChannelInfo{closed.channel}, "mock_method", params, &mockResult{})
		require.ErrorIs(t, err, ErrCloseChannel)
	})

	t.Run("wallet error response", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		stream := NewEventStream(ctx, DefaultRequestConfig())

		client := setupClient(t, stream)
		client.respondError = "mock error"
		go client.start(ctx)

		err := stream.SendRequest(ctx, []*ChannelInfo{client.channel}, "mock_method", params, &mockResult{})
		require.EqualError(t, err, "mock error")
	})
}

func TestCleanTimeoutRequests(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream := NewEventStream(ctx, &RequestConfig{
		RequestQueueSize: 30,
		RequestTimeout:   time.Millisecond * 100,
		ClearInterval:    time.Millisecond * 100,
	})

	var requests []*RequestEvent
	stream.reqLk.Lock()
	for i := 0; i < 10; i++ {
		req := &RequestEvent{
			ID:         uuid.New(),
			Method:     "mock_method",
			CreateTime: time.Now(),
			Result:     make(chan *ResponseEvent, 1),
		}
		stream.idRequest[req.ID] = req
		requests = append(requests, req)
	}
	stream.reqLk.Unlock()

	require.Eventually(t, func() bool {
		stream.reqLk.RLock()
		defer stream.reqLk.RUnlock()
		return len(stream.idRequest) == 0
	}, time.Second*5, time.Millisecond*50)

	for _, req := range requests {
		require.Len(t, req.Result, 1)
		result := <-req.Result
		require.Contains(t, result.Error, "request exceeded wait time")
	}
}

func TestResponseUnknownRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream := NewEventStream(ctx, DefaultRequestConfig())

	err := stream.ResponseEvent(ctx, &ResponseEvent{ID: uuid.New()})
	require.Error(t, err)
}

type mockClient struct {
	t            *testing.T
	stream       *EventStream
	requestCh    chan *RequestEvent
	channel      *ChannelInfo
	respondError string
}

func setupClient(t *testing.T, stream *EventStream) *mockClient {
	requestCh := make(chan *RequestEvent)
	return &mockClient{
		t:         t,
		stream:    stream,
		requestCh: requestCh,
		channel:   NewChannelInfo("127.1.1.1", requestCh),
	}
}

func (c *mockClient) start(ctx context.Context) {
	for {
		select {
		case req := <-c.requestCh:
			params := mockParams{}
			require.NoError(c.t, json.Unmarshal(req.Payload, &params))

			resp := &ResponseEvent{ID: req.ID}
			if c.respondError != "" {
				resp.Error = c.respondError
			} else {
				payload, err := json.Marshal(mockResult{B: params.A})
				require.NoError(c.t, err)
				resp.Payload = payload
			}
			require.NoError(c.t, c.stream.ResponseEvent(ctx, resp))
		case <-ctx.Done():
			return
		}
	}
}

func (c *mockClient) close() {
	close(c.requestCh)
}
