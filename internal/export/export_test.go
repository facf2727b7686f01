package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySink struct {
	mu    sync.Mutex
	files map[string][]byte
	fail  string
}

func (m *memorySink) Put(_ context.Context, name string, data []byte) error {
	if name == m.fail {
		return errors.New("disk full")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	m.files[name] = data
	return nil
}

func outputs() []File {
	return []File{
		{Name: "cutout.png", Data: []byte("c")},
		{Name: "variant-a.png", Data: []byte("a")},
		{Name: "variant-b.png", Data: []byte("b")},
	}
}

func TestWriteStoresEveryFile(t *testing.T) {
	sink := &memorySink{}
	require.NoError(t, Write(context.Background(), sink, outputs()))

	names := make([]string, 0, len(sink.files))
	for name := range sink.files {
		names = append(names, name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"cutout.png", "variant-a.png", "variant-b.png"}, names)
	assert.Equal(t, []byte("b"), sink.files["variant-b.png"])
}

func TestWriteReportsFailure(t *testing.T) {
	err := Write(context.Background(), &memorySink{fail: "variant-a.png"}, outputs())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "variant-a.png")
	assert.Contains(t, err.Error(), "disk full")

	assert.Error(t, Write(context.Background(), nil, outputs()))
}

func TestDirSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	sink, err := NewDirSink(dir)
	require.NoError(t, err)
	require.NoError(t, Write(context.Background(), sink, outputs()))

	got, err := os.ReadFile(filepath.Join(dir, "variant-a.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), got)

	_, err = NewDirSink(" ")
	assert.Error(t, err)
}

type fakePutter struct {
	mu   sync.Mutex
	keys []string
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)+" "+aws.ToString(in.ContentType))
	return &s3.PutObjectOutput{}, nil
}

func TestS3SinkKeys(t *testing.T) {
	putter := &fakePutter{}
	sink := &S3Sink{client: putter, bucket: "studio", prefix: "exports/123"}

	png := []byte("\x89PNG\r\n\x1a\n0000")
	require.NoError(t, sink.Put(context.Background(), "variant-a.png", png))
	assert.Equal(t, []string{"studio/exports/123/variant-a.png image/png"}, putter.keys)

	assert.Equal(t, "cutout.png", (&S3Sink{}).Key("cutout.png"))
}

func TestNewS3SinkRequiresBucket(t *testing.T) {
	_, err := NewS3Sink(context.Background(), S3Options{})
	assert.Error(t, err)
}
