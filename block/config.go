package block

import "github.com/google/uuid"

// Config configures a Generator. Zero values are replaced with the
// defaults from spec.md §6 by NewGenerator.
type Config struct {
	// ReceiverID names the producer this generator serves. Defaults to a
	// fresh UUID when empty.
	ReceiverID string

	// BlockIntervalMillis is the cut period. Default 200.
	BlockIntervalMillis int64

	// BlockQueueSize bounds blocksForPushing. Default 10.
	BlockQueueSize int
}

func (c Config) withDefaults() Config {
	if c.ReceiverID == "" {
		c.ReceiverID = uuid.NewString()
	}
	if c.BlockIntervalMillis <= 0 {
		c.BlockIntervalMillis = 200
	}
	if c.BlockQueueSize <= 0 {
		c.BlockQueueSize = 10
	}
	return c
}
