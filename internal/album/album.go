// Package album collects the photos of a Telegram album, which arrive as
// separate updates, and hands them over as one batch once the album is quiet.
package album

import (
	"fmt"
	"sync"
	"time"
)

const DefaultDebounce = 1200 * time.Millisecond

type Item struct {
	ChatID  int64
	AlbumID string
	Caption string
	FileID  string
}

type Batch struct {
	ChatID  int64
	Caption string
	FileIDs []string
}

type Options struct {
	Debounce time.Duration
	OnFlush  func(Batch)
}

type Collector struct {
	mu       sync.Mutex
	debounce time.Duration
	onFlush  func(Batch)
	pending  map[string]*pendingBatch
	stopped  bool
}

type pendingBatch struct {
	batch Batch
	timer *time.Timer
}

func New(opts Options) *Collector {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Collector{
		debounce: debounce,
		onFlush:  opts.OnFlush,
		pending:  make(map[string]*pendingBatch),
	}
}

// Add queues one photo. Items without an album id or file id are ignored, as
// is everything after Stop.
func (c *Collector) Add(item Item) {
	if item.AlbumID == "" || item.FileID == "" {
		return
	}

	key := makeKey(item.ChatID, item.AlbumID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}

	pb, ok := c.pending[key]
	if !ok {
		pb = &pendingBatch{
			batch: Batch{
				ChatID:  item.ChatID,
				Caption: item.Caption,
				FileIDs: []string{item.FileID},
			},
		}
		c.pending[key] = pb
	} else {
		pb.batch.FileIDs = append(pb.batch.FileIDs, item.FileID)
		if item.Caption != "" {
			pb.batch.Caption = item.Caption
		}
	}

	if pb.timer != nil {
		pb.timer.Stop()
	}
	pb.timer = time.AfterFunc(c.debounce, func() {
		c.flush(key)
	})
}

// Pending reports how many albums are still waiting for their debounce.
func (c *Collector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Stop flushes every pending album right away and rejects further items.
func (c *Collector) Stop() {
	c.mu.Lock()
	c.stopped = true
	batches := make([]Batch, 0, len(c.pending))
	for key, pb := range c.pending {
		if pb.timer != nil {
			pb.timer.Stop()
		}
		batches = append(batches, pb.batch)
		delete(c.pending, key)
	}
	onFlush := c.onFlush
	c.mu.Unlock()

	if onFlush == nil {
		return
	}
	for _, b := range batches {
		onFlush(b)
	}
}

func (c *Collector) flush(key string) {
	c.mu.Lock()
	pb, ok := c.pending[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.pending, key)
	batch := pb.batch
	onFlush := c.onFlush
	c.mu.Unlock()

	if onFlush != nil {
		onFlush(batch)
	}
}

func makeKey(chatID int64, albumID string) string {
	return fmt.Sprintf("%d:%s", chatID, albumID)
}
