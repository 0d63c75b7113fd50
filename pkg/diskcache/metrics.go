package diskcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	commitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "diskcache_commits_total",
		Help: "Total number of editor commits that published a new value.",
	})
	abortsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "diskcache_aborts_total",
		Help: "Total number of editor aborts.",
	})
	evictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "diskcache_evictions_total",
		Help: "Total number of entries evicted by the trimmer or an explicit Remove.",
	})
	journalRebuildsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "diskcache_journal_rebuilds_total",
		Help: "Total number of journal compactions.",
	})
	corruptJournalTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "diskcache_corrupt_journal_total",
		Help: "Total number of times a corrupt journal triggered a fresh-start recovery.",
	})
)
