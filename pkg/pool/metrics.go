package pool

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bytesGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mempool_bytes",
		Help: "Current total byte size of values held by a pool.",
	}, []string{"pool"})
	hitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mempool_hits_total",
		Help: "Total number of Get/GetDirty calls satisfied from the pool.",
	}, []string{"pool"})
	missesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mempool_misses_total",
		Help: "Total number of Get/GetDirty calls that allocated a fresh value.",
	}, []string{"pool"})
	evictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mempool_evictions_total",
		Help: "Total number of values evicted to stay within a pool's byte budget.",
	}, []string{"pool"})
)
