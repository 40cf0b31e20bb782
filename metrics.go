package prfs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prfs_guard_decisions_total",
		Help: "Write-intent open decisions by outcome.",
	}, []string{"outcome"})

	metricBackups = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prfs_backups_created_total",
		Help: "Backup files successfully created.",
	})

	metricBackupBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prfs_backup_bytes_total",
		Help: "Bytes copied into backup files.",
	})
)
