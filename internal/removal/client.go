package removal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"carpet-studio/internal/apperr"
)

const (
	DefaultModel = "isnet-general-use"

	StageUpload     = "upload"
	StageProcessing = "processing"
	StageDone       = "done"
)

// Progress is a best-effort status update. Percent is only meaningful for the
// upload stage.
type Progress struct {
	Stage   string
	Percent int
}

type Options struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to a rembg-compatible service: POST {base}/api/remove with a
// multipart "file" and an optional "model" field, answering with an alpha PNG.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

func New(opts Options) *Client {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		model:      model,
		httpClient: httpClient,
		logger:     logger,
	}
}

func (c *Client) Model() string {
	return c.model
}

// Remove uploads img and returns the matted PNG. progress may be nil; sends
// never block. Every failure wraps apperr.ErrRemovalFailed.
func (c *Client) Remove(ctx context.Context, img []byte, progress chan<- Progress) ([]byte, error) {
	if len(img) == 0 {
		return nil, fmt.Errorf("%w: %w", apperr.ErrRemovalFailed, apperr.ErrInputMissing)
	}
	if c.baseURL == "" {
		return nil, fmt.Errorf("%w: removal service url is not configured", apperr.ErrRemovalFailed)
	}

	body, contentType, err := c.encode(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrRemovalFailed, err)
	}

	reader := &countingReader{r: bytes.NewReader(body), total: len(body), progress: progress}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/remove", reader)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", apperr.ErrRemovalFailed, err)
	}
	httpReq.ContentLength = int64(len(body))
	httpReq.Header.Set("content-type", contentType)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: request: %w", apperr.ErrRemovalFailed, err)
	}
	defer httpResp.Body.Close()

	notify(progress, Progress{Stage: StageProcessing})

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", apperr.ErrRemovalFailed, err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		c.logger.Warn("removal service error", "status", httpResp.StatusCode, "body", strings.TrimSpace(string(raw)))
		return nil, fmt.Errorf("%w: status %d: %s", apperr.ErrRemovalFailed, httpResp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty response", apperr.ErrRemovalFailed)
	}

	notify(progress, Progress{Stage: StageDone, Percent: 100})
	return raw, nil
}

func (c *Client) encode(img []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", "source")
	if err != nil {
		return nil, "", err
	}
	if _, err := fw.Write(img); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("model", c.model); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func notify(ch chan<- Progress, p Progress) {
	if ch == nil {
		return
	}
	select {
	case ch <- p:
	default:
	}
}

type countingReader struct {
	r        io.Reader
	read     int
	total    int
	last     int
	progress chan<- Progress
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.read += n
	if cr.total > 0 {
		pct := cr.read * 100 / cr.total
		if pct != cr.last {
			cr.last = pct
			notify(cr.progress, Progress{Stage: StageUpload, Percent: pct})
		}
	}
	return n, err
}
