package ingest

// Config controls the PollingIngestor's worker pool.
type Config struct {
	// SourceCount is the number of connections dialed at Start, one per
	// configured source. Defaults to Parallelism.
	SourceCount int

	// Parallelism is the number of worker goroutines polling the shared
	// connection pool.
	Parallelism int

	// MaxBatchSize bounds the size of each GetEventBatch request.
	MaxBatchSize int32
}

func (c Config) withDefaults() Config {
	if c.Parallelism <= 0 {
		c.Parallelism = 1
	}
	if c.SourceCount <= 0 {
		c.SourceCount = c.Parallelism
	}
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = 100
	}
	return c
}
