package relay

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const stemLength = 6

// FileResolver turns an opaque attachment id into a fetchable URL on
// the remote network.
type FileResolver interface {
	FileURL(fileID string) (string, error)
}

// MediaPipeline downloads a remote attachment into a per-user directory
// under the download root and publishes a URL for it under the base URL.
// Filenames are anonymized: a fresh random stem with the original
// extension, so the remote network's file ids never leak into links.
type MediaPipeline struct {
	resolver FileResolver
	client   *http.Client
	baseURL  string
	root     string
	logger   *slog.Logger
}

func NewMediaPipeline(resolver FileResolver, baseURL, downloadDir string, logger *slog.Logger) *MediaPipeline {
	return &MediaPipeline{
		resolver: resolver,
		client:   &http.Client{Timeout: 60 * time.Second},
		baseURL:  strings.TrimRight(baseURL, "/"),
		root:     downloadDir,
		logger:   logger,
	}
}

// Relay fetches the attachment and returns its public URL. Any failure
// is an error for the caller to demote to "no attachment"; it is never
// fatal to the message being relayed.
func (p *MediaPipeline) Relay(ctx context.Context, fileID string, uploader string) (string, error) {
	remote, err := p.resolver.FileURL(fileID)
	if err != nil {
		return "", fmt.Errorf("resolve file %s: %w", fileID, err)
	}

	remoteURL, err := url.Parse(remote)
	if err != nil {
		return "", fmt.Errorf("parse file url: %w", err)
	}

	if uploader == "" {
		uploader = "anonymous"
	}
	dir := filepath.Join(p.root, uploader)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create user directory: %w", err)
	}

	name := replaceFilename(path.Base(remoteURL.Path), randomStem(stemLength))
	dest := filepath.Join(dir, name)

	if err := p.download(ctx, remote, dest); err != nil {
		return "", err
	}

	public := p.baseURL + "/" + url.PathEscape(uploader) + "/" + url.PathEscape(name)
	p.logger.Debug("media downloaded", "file_id", fileID, "path", dest, "url", public)
	return public, nil
}

func (p *MediaPipeline) download(ctx context.Context, remote, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remote, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch file: unexpected status %s", resp.Status)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(dest)
		return fmt.Errorf("write file: %w", err)
	}
	return f.Close()
}

// replaceFilename swaps the stem of original for the generated one,
// keeping the extension after the final dot when there is one.
func replaceFilename(original, stem string) string {
	if idx := strings.LastIndex(original, "."); idx >= 0 {
		return stem + original[idx:]
	}
	return stem
}

const stemAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// randomStem returns a random alphanumeric name of length n. No
// collision check is done; at six characters the residual collision
// probability is accepted risk.
func randomStem(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand never fails on supported platforms
	}
	for i, b := range buf {
		buf[i] = stemAlphabet[int(b)%len(stemAlphabet)]
	}
	return string(buf)
}
