package embeddings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// MaxModelRedirects bounds the redirects followed for one model file.
const MaxModelRedirects = 5

// ModelFiles are the files a local model directory must contain.
var ModelFiles = []string{
	"config.json",
	"tokenizer.json",
	"tokenizer_config.json",
	"special_tokens_map.json",
	"vocab.txt",
	"onnx/model_quantized.onnx",
}

// ErrModelDownload wraps every failure while fetching model files.
var ErrModelDownload = errors.New("model download failed")

// Fetcher downloads missing model files from a repository base URL.
type Fetcher struct {
	client *http.Client
	// OnProgress, when set, is called after each downloaded file.
	OnProgress func(done, total int)
}

// NewFetcher creates a fetcher. A nil client gets a default one with a
// generous timeout; redirects are always capped at MaxModelRedirects.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Minute}
	} else {
		c := *client
		client = &c
	}
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) > MaxModelRedirects {
			return fmt.Errorf("too many redirects while downloading %s", via[0].URL)
		}
		return nil
	}
	return &Fetcher{client: client}
}

// EnsureModel creates modelDir and downloads every model file that is not
// already there. Nothing is fetched when the directory is complete.
func (f *Fetcher) EnsureModel(ctx context.Context, modelDir, repo string) error {
	if modelDir == "" {
		return fmt.Errorf("%w: model path is required for download", ErrModelDownload)
	}
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrModelDownload, err)
	}

	var missing []string
	for _, file := range ModelFiles {
		if _, err := os.Stat(filepath.Join(modelDir, filepath.FromSlash(file))); err != nil {
			missing = append(missing, file)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	repo = strings.TrimRight(repo, "/")
	for i, file := range missing {
		dest := filepath.Join(modelDir, filepath.FromSlash(file))
		if err := f.download(ctx, repo+"/"+file, dest); err != nil {
			return err
		}
		if f.OnProgress != nil {
			f.OnProgress(i+1, len(missing))
		}
	}
	return nil
}

// download writes url to dest through a temp file so a failed transfer never
// leaves a partial model file behind.
func (f *Fetcher) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelDownload, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: failed to download %s: status %d", ErrModelDownload, url, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrModelDownload, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelDownload, err)
	}
	tmpPath := tmp.Name()

	_, copyErr := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %s: %v", ErrModelDownload, url, err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", ErrModelDownload, err)
	}
	return nil
}
