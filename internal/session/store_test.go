package session

import (
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carpet-studio/internal/cutout"
	"carpet-studio/internal/mask"
)

func TestSessionLifecycle(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	s := &Session{}
	s.SetSource(NewSource([]byte("a"), src))
	assert.Equal(t, "0cc175b9c0f1b6a831c399e269772661", s.Source.MD5)

	s.SetPrompts("pa", "pb")
	s.OpenMask(mask.New(src, mask.Options{}))
	s.SetCutout(&cutout.Cutout{Image: src})
	s.SetVariants(src, src)
	require.True(t, s.HasVariants())

	s.SetCutout(&cutout.Cutout{Image: src})
	assert.False(t, s.HasVariants())
	assert.Nil(t, s.VariantA)
	assert.NotNil(t, s.Painter)

	s.SetVariants(src, src)
	s.SetSource(NewSource([]byte("b"), src))
	assert.Nil(t, s.Cutout)
	assert.Nil(t, s.Painter)
	assert.False(t, s.HasVariants())
	assert.Equal(t, "pa", s.PromptA)
}

func TestStoreCreate(t *testing.T) {
	store := NewStore(Options{})

	id := store.Create()
	require.NotEmpty(t, id)
	err := store.With(id, func(s *Session) error {
		assert.Equal(t, id, s.ID)
		assert.Empty(t, s.Model)
		return nil
	})
	require.NoError(t, err)
	assert.ErrorIs(t, store.With("nope", func(*Session) error { return nil }), ErrNotFound)
}

func TestStoreWithSerializesOperations(t *testing.T) {
	store := NewStore(Options{})
	id := store.Create()

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.With(id, func(s *Session) error {
				v := counter
				time.Sleep(time.Microsecond)
				counter = v + 1
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}

func TestStoreStatusDoesNotWaitForOperation(t *testing.T) {
	store := NewStore(Options{})
	id := store.Create()

	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = store.With(id, func(s *Session) error {
			s.SetStatus("generating A")
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	status, err := store.Status(id)
	require.NoError(t, err)
	assert.Equal(t, "generating A", status)
	close(release)
}

func TestStoreEvictsIdleSessions(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewStore(Options{IdleTTL: time.Hour, Now: func() time.Time { return now }})

	old := store.Create()
	now = now.Add(50 * time.Minute)
	fresh := store.Create()
	now = now.Add(20 * time.Minute)

	assert.Equal(t, 1, store.Evict())
	assert.Equal(t, 1, store.Len())
	assert.ErrorIs(t, store.With(old, func(*Session) error { return nil }), ErrNotFound)
	assert.NoError(t, store.With(fresh, func(*Session) error { return nil }))
}

func TestStoreWithOrCreate(t *testing.T) {
	store := NewStore(Options{})
	require.NoError(t, store.WithOrCreate("chat:1", func(s *Session) error {
		s.Model = "x"
		return nil
	}))
	require.NoError(t, store.WithOrCreate("chat:1", func(s *Session) error {
		assert.Equal(t, "x", s.Model)
		return nil
	}))
	assert.Equal(t, 1, store.Len())
	store.Delete("chat:1")
	assert.Equal(t, 0, store.Len())
}
