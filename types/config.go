package types

import (
	"time"
)

// RequestConfig bounds the wallet event stream: queue depth per channel, how
// long a pending request may wait for its response, and how often stale
// requests are swept.
type RequestConfig struct {
	RequestQueueSize int
	RequestTimeout   time.Duration
	ClearInterval    time.Duration
}

func DefaultRequestConfig() *RequestConfig {
	return &RequestConfig{
		RequestQueueSize: 30,
		RequestTimeout:   time.Minute * 5,
		ClearInterval:    time.Minute * 5,
	}
}
