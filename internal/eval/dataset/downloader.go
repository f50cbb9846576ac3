package dataset

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const (
	// HFScheme marks a dataset reference as hf://<owner>/<repo>/<file>
	HFScheme = "hf://"

	// HuggingFace URLs
	HFResolveURL = "https://huggingface.co/datasets/%s/resolve/main/%s"

	// Default cache directory (similar to Python's datasets library)
	DefaultCacheDir = "~/.cache/huggingface/datasets"
)

// DownloadConfig configures dataset downloading
type DownloadConfig struct {
	CacheDir      string
	ForceDownload bool
	Token         string // HuggingFace token for private datasets
	BaseURL       string // overrides HFResolveURL, mostly for tests
}

// Downloader handles downloading and caching datasets from HuggingFace
type Downloader struct {
	config DownloadConfig
	client *http.Client
}

// NewDownloader creates a new dataset downloader
func NewDownloader(config DownloadConfig) *Downloader {
	if config.CacheDir == "" {
		config.CacheDir = DefaultCacheDir
	}
	if config.BaseURL == "" {
		config.BaseURL = HFResolveURL
	}

	// Expand ~ to home directory
	if strings.HasPrefix(config.CacheDir, "~") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			config.CacheDir = filepath.Join(homeDir, config.CacheDir[1:])
		}
	}

	return &Downloader{
		config: config,
		client: &http.Client{},
	}
}

// ParseHFRef splits hf://owner/repo/path/to/file.parquet into repo and file
func ParseHFRef(ref string) (repo, filename string, err error) {
	rest, ok := strings.CutPrefix(ref, HFScheme)
	if !ok {
		return "", "", fmt.Errorf("not a HuggingFace reference: %s", ref)
	}
	parts := strings.SplitN(rest, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", fmt.Errorf("expected %sowner/repo/file, got %s", HFScheme, ref)
	}
	return parts[0] + "/" + parts[1], parts[2], nil
}

// Resolve returns a local path for ref, downloading hf:// references into
// the cache first. Plain paths are returned unchanged.
func (d *Downloader) Resolve(ref string) (string, error) {
	if !strings.HasPrefix(ref, HFScheme) {
		return ref, nil
	}
	repo, filename, err := ParseHFRef(ref)
	if err != nil {
		return "", err
	}
	return d.DownloadDataset(repo, filename)
}

// DownloadDataset downloads a dataset file from HuggingFace.
// Returns the path to the cached dataset file
func (d *Downloader) DownloadDataset(repo, filename string) (string, error) {
	cachedPath := d.GetCachePath(repo, filename)
	if err := os.MkdirAll(filepath.Dir(cachedPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	// Check if file already exists in cache
	if !d.config.ForceDownload {
		if _, err := os.Stat(cachedPath); err == nil {
			slog.Info("Using cached dataset", "path", cachedPath)
			return cachedPath, nil
		}
	}

	slog.Info("Downloading dataset from HuggingFace", "repo", repo, "file", filename)

	url := fmt.Sprintf(d.config.BaseURL, repo, filename)

	if err := d.downloadFile(url, cachedPath); err != nil {
		return "", fmt.Errorf("failed to download dataset: %w", err)
	}

	slog.Info("Dataset downloaded successfully", "path", cachedPath)
	return cachedPath, nil
}

// downloadFile downloads a file from a URL to a local path
func (d *Downloader) downloadFile(url, destPath string) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if d.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+d.config.Token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	tempPath := destPath + ".tmp"
	out, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	written, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("download failed: %w", err)
	}
	slog.Debug("Download finished", "bytes", written, "expected", resp.ContentLength)

	if err := os.Rename(tempPath, destPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to move file: %w", err)
	}

	return nil
}

// GetCachePath returns the path where a dataset file would be cached
func (d *Downloader) GetCachePath(repo, filename string) string {
	return filepath.Join(d.config.CacheDir, repo, filename)
}

// ClearCache removes all cached files for repo
func (d *Downloader) ClearCache(repo string) error {
	cacheDir := filepath.Join(d.config.CacheDir, repo)
	slog.Info("Clearing cache", "path", cacheDir)
	return os.RemoveAll(cacheDir)
}
