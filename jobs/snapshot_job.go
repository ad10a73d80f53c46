package jobs

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"marketplace-server/metrics"
	"marketplace-server/utils"
)

// Snapshotter is a store that can persist itself to a file
type Snapshotter interface {
	Dirty() bool
	SaveFile(path string) error
}

// SnapshotJob flushes the in-memory store to disk on a fixed interval
type SnapshotJob struct {
	store    Snapshotter
	path     string
	interval time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
	started  atomic.Bool
	stopOnce sync.Once
}

// NewSnapshotJob creates a new snapshot job
func NewSnapshotJob(store Snapshotter, path string, interval time.Duration) *SnapshotJob {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &SnapshotJob{
		store:    store,
		path:     path,
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start begins the snapshot job. Calls after the first are ignored.
func (j *SnapshotJob) Start() {
	if !j.started.CompareAndSwap(false, true) {
		return
	}
	go j.run()
	utils.GetLogger().Info("Snapshot job started",
		zap.String("path", j.path),
		zap.Duration("interval", j.interval))
}

// Stop ends the job after a final flush. A job that never started only
// flushes once.
func (j *SnapshotJob) Stop() {
	j.stopOnce.Do(func() {
		if j.started.CompareAndSwap(false, true) {
			// never started; the swap also keeps a later Start from running
			close(j.doneChan)
			j.Flush()
		} else {
			close(j.stopChan)
			<-j.doneChan
		}
		utils.GetLogger().Info("Snapshot job stopped")
	})
}

func (j *SnapshotJob) run() {
	defer close(j.doneChan)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.Flush()
		case <-j.stopChan:
			j.Flush()
			return
		}
	}
}

// Flush writes the store if anything changed since the last write
func (j *SnapshotJob) Flush() {
	if !j.store.Dirty() {
		return
	}
	if err := j.store.SaveFile(j.path); err != nil {
		metrics.RecordSnapshot(false)
		utils.GetLogger().Error("Snapshot failed", zap.String("path", j.path), zap.Error(err))
		return
	}
	metrics.RecordSnapshot(true)
	utils.GetLogger().Debug("Snapshot written", zap.String("path", j.path))
}
