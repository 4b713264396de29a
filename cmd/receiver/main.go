package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"blockwal/block"
	"blockwal/blockindex"
	"blockwal/fsio"
	"blockwal/metrics"
	"blockwal/server"
	"blockwal/wal"
)

// blockStore is the reference Listener: it persists a block's records to
// the write-ahead log and records the resulting FileSegment in the
// index, so the query server can resolve LOOKUP/READ against them.
type blockStore struct {
	writer *wal.Writer
	index  blockindex.Index
	logger *zap.Logger
}

func (s *blockStore) OnPushBlock(id block.BlockID, records [][]byte) error {
	for _, rec := range records {
		seg, err := s.writer.Write(rec)
		if err != nil {
			return err
		}
		if err := s.index.Put(id, seg, blockindex.PutOverwrite); err != nil {
			return err
		}
	}
	return nil
}

func (s *blockStore) OnError(message string, err error) {
	s.logger.Error(message, zap.Error(err))
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	reg := prometheus.NewRegistry()
	blockMetrics := metrics.NewBlock(reg, "")

	fs := fsio.New(afero.NewOsFs(), true)

	writer, err := wal.NewWriter(fs, "blocks.log")
	if err != nil {
		logger.Fatal("open block log", zap.Error(err))
	}
	defer writer.Close()

	index, err := blockindex.NewDurableIndex(blockindex.NewShardedIndex(16), fs, "blockindex.log")
	if err != nil {
		logger.Fatal("open block index recovery log", zap.Error(err))
	}
	defer index.Close()

	store := &blockStore{writer: writer, index: index, logger: logger}

	gen := block.NewGenerator(block.Config{}, store, blockMetrics, logger, nil)
	gen.Start()
	defer gen.Stop()

	backend := server.NewIndexBackend(index, wal.NewRandomReader(fs))
	srv := server.NewServer(":8080", backend, logger)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		if err := http.ListenAndServe(":9090", mux); err != nil {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	logger.Info("receiver starting", zap.String("query_addr", ":8080"), zap.String("metrics_addr", ":9090"))
	if err := srv.Start(); err != nil {
		logger.Fatal("query server failed", zap.Error(err))
	}
}
