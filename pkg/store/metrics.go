package store

import (
	"io/fs"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var sessionWrites = promauto.NewCounter(prometheus.CounterOpts{
	Name: "fillsession_store_session_writes_total",
	Help: "Session snapshots written to the store.",
})

var _ = promauto.NewGaugeFunc(prometheus.GaugeOpts{
	Name: "fillsession_store_disk_bytes",
	Help: "Best-effort on-disk size of the pebble directory.",
}, func() float64 {
	return float64(DiskUsage())
})

// DiskUsage computes the total bytes under the DB path. Best effort;
// returns 0 when the store is not open.
func DiskUsage() uint64 {
	if db == nil || dbPath == "" {
		return 0
	}
	var total uint64
	_ = filepath.WalkDir(dbPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		total += uint64(fi.Size())
		return nil
	})
	return total
}
