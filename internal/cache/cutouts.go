package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/dgraph-io/ristretto"
)

// Cutouts keeps removal results so the same photo is only sent once per
// model. Keys are the md5 of the source bytes plus the model name.
type Cutouts struct {
	cache *ristretto.Cache
}

type Options struct {
	// MaxBytes bounds the total size of cached PNGs.
	MaxBytes int64
}

func New(opts Options) (*Cutouts, error) {
	maxCost := opts.MaxBytes
	if maxCost <= 0 {
		maxCost = 256 << 20
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}
	return &Cutouts{cache: c}, nil
}

func Key(source []byte, model string) string {
	sum := md5.Sum(source)
	return hex.EncodeToString(sum[:]) + ":" + model
}

func (c *Cutouts) Get(key string) ([]byte, bool) {
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	png, ok := v.([]byte)
	return png, ok
}

// Set stores png and waits for the write buffer so an immediate Get sees it.
func (c *Cutouts) Set(key string, png []byte) bool {
	ok := c.cache.Set(key, png, int64(len(png)))
	c.cache.Wait()
	return ok
}

func (c *Cutouts) Close() {
	c.cache.Close()
}
