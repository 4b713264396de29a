// Package metrics holds the prometheus collectors shared by block and
// ingest. It is ambient instrumentation, not a feature the spec's
// Non-goals exclude.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Block holds the BlockGenerator's collectors.
type Block struct {
	BlocksCut     prometheus.Counter
	BlocksPushed  prometheus.Counter
	RecordsCut    prometheus.Counter
	QueueDepth    prometheus.Gauge
	CallbacksFired prometheus.Counter
	Errors        prometheus.Counter
}

// NewBlock registers and returns the BlockGenerator collectors under reg.
// A nil registerer is allowed — the collectors are still usable, just not
// exported — which keeps tests from needing a registry.
func NewBlock(reg prometheus.Registerer, receiverID string) *Block {
	labels := prometheus.Labels{"receiver_id": receiverID}
	b := &Block{
		BlocksCut: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "blockgen_blocks_cut_total",
			Help:        "Non-empty blocks sealed by cut.",
			ConstLabels: labels,
		}),
		BlocksPushed: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "blockgen_blocks_pushed_total",
			Help:        "Blocks handed to the consumer listener.",
			ConstLabels: labels,
		}),
		RecordsCut: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "blockgen_records_cut_total",
			Help:        "Records included in sealed blocks.",
			ConstLabels: labels,
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "blockgen_queue_depth",
			Help:        "Current depth of the bounded block-pushing queue.",
			ConstLabels: labels,
		}),
		CallbacksFired: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "blockgen_pending_callbacks_fired_total",
			Help:        "PendingCallbacks invoked after their block's push.",
			ConstLabels: labels,
		}),
		Errors: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "blockgen_errors_total",
			Help:        "Errors reported via Listener.OnError.",
			ConstLabels: labels,
		}),
	}
	if reg != nil {
		reg.MustRegister(b.BlocksCut, b.BlocksPushed, b.RecordsCut, b.QueueDepth, b.CallbacksFired, b.Errors)
	}
	return b
}

// Ingest holds the PollingIngestor's collectors.
type Ingest struct {
	Acks    prometheus.Counter
	Nacks   prometheus.Counter
	Errors  prometheus.Counter
	Batches prometheus.Counter
}

// NewIngest registers and returns the PollingIngestor collectors under reg.
func NewIngest(reg prometheus.Registerer) *Ingest {
	i := &Ingest{
		Acks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingestor_acks_total",
			Help: "EventBatches successfully stored and acked.",
		}),
		Nacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingestor_nacks_total",
			Help: "EventBatches nacked after a failure.",
		}),
		Errors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingestor_errors_total",
			Help: "Worker errors (error batches, RPC failures, fatal errors, failed nacks).",
		}),
		Batches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingestor_batches_total",
			Help: "EventBatches received from sources.",
		}),
	}
	if reg != nil {
		reg.MustRegister(i.Acks, i.Nacks, i.Errors, i.Batches)
	}
	return i
}
