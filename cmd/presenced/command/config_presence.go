package command

import (
	"fmt"

	"github.com/pixil98/go-errors"
)

type BackendType int

const (
	// BackendTypeMemory keeps presence in process memory. Single-process
	// deployments only.
	BackendTypeMemory BackendType = iota
	// BackendTypeNats keeps presence in a JetStream key-value bucket and
	// fans events out over per-player subjects, so several processes can
	// serve the same rooms.
	BackendTypeNats
)

func (bt *BackendType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "memory":
		*bt = BackendTypeMemory
	case "nats":
		*bt = BackendTypeNats
	default:
		return fmt.Errorf("unknown presence backend: %s", text)
	}
	return nil
}

type PresenceConfig struct {
	Backend            BackendType `json:"backend"`
	Bucket             string      `json:"bucket,omitempty"`
	ProximityThreshold float64     `json:"proximity_threshold,omitempty"`
	SendQueueSize      int         `json:"send_queue_size,omitempty"`
}

func (c *PresenceConfig) Validate() error {
	el := errors.NewErrorList()

	if c.ProximityThreshold < 0 {
		el.Add(fmt.Errorf("proximity_threshold must not be negative"))
	}

	if c.SendQueueSize < 0 {
		el.Add(fmt.Errorf("send_queue_size must not be negative"))
	}

	if c.Backend == BackendTypeMemory && c.Bucket != "" {
		el.Add(fmt.Errorf("bucket only applies to the nats backend"))
	}

	return el.Err()
}

// BucketName returns the configured bucket, defaulting to "presence".
func (c *PresenceConfig) BucketName() string {
	if c.Bucket == "" {
		return "presence"
	}
	return c.Bucket
}
