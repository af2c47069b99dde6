package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

const maxPDFSize = 20 << 20 // 20MB

// PDFFetcher downloads a paper PDF and extracts its plain text.
type PDFFetcher struct {
	httpClient *http.Client
}

// NewPDFFetcher creates a PDFFetcher with a bounded download timeout.
func NewPDFFetcher() *PDFFetcher {
	return &PDFFetcher{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// FetchText downloads the PDF at url and returns its extracted text.
func (f *PDFFetcher) FetchText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading pdf: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading pdf: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPDFSize))
	if err != nil {
		return "", fmt.Errorf("reading pdf body: %w", err)
	}

	return extractText(data)
}

func extractText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}

	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting text: %w", err)
	}

	var sb strings.Builder
	if _, err := io.Copy(&sb, textReader); err != nil {
		return "", fmt.Errorf("reading extracted text: %w", err)
	}
	return sb.String(), nil
}

// splitParagraphs splits on blank lines and trims each paragraph.
func splitParagraphs(text string) []string {
	raw := strings.Split(text, "\n\n")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
