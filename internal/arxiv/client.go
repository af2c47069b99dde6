package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

const (
	defaultAPIURL = "https://export.arxiv.org/api/query"
	fetchTimeout  = 30 * time.Second

	maxAttempts = 3
	backoffMin  = 4 * time.Second
	backoffMax  = 10 * time.Second
)

// Document is one arXiv entry: the abstract text plus identifying metadata.
// Documents are immutable once created.
type Document struct {
	Text    string
	Title   string
	ArxivID string
	Source  string
}

// Client fetches entries from the public arXiv Atom feed.
type Client struct {
	apiURL     string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Client against the public arXiv API.
func New() *Client {
	return NewWithURL(defaultAPIURL)
}

// NewWithURL creates a Client against a custom API URL (for testing).
func NewWithURL(apiURL string) *Client {
	return &Client{
		apiURL: apiURL,
		httpClient: &http.Client{
			Timeout: fetchTimeout,
		},
		logger: slog.Default(),
	}
}

// Search fetches up to maxResults entries matching the query, retrying
// transient failures with bounded exponential backoff.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]Document, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		docs, err := c.fetch(ctx, query, maxResults)
		if err == nil {
			return docs, nil
		}
		lastErr = err

		if attempt < maxAttempts {
			backoff := backoffMin * time.Duration(1<<(attempt-1))
			if backoff > backoffMax {
				backoff = backoffMax
			}
			c.logger.Warn("arxiv fetch failed, retrying",
				"attempt", attempt, "backoff", backoff, "error", err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return nil, fmt.Errorf("arxiv fetch failed after %d attempts: %w", maxAttempts, lastErr)
}

// feed mirrors the Atom XML returned by the arXiv API.
type feed struct {
	XMLName xml.Name `xml:"http://www.w3.org/2005/Atom feed"`
	Entries []entry  `xml:"entry"`
}

type entry struct {
	ID      string `xml:"id"`
	Title   string `xml:"title"`
	Summary string `xml:"summary"`
}

func (c *Client) fetch(ctx context.Context, query string, maxResults int) ([]Document, error) {
	params := url.Values{}
	params.Set("search_query", query)
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return parseFeed(resp.Body, maxResults)
}

// parseFeed decodes an Atom feed into Documents. The charset reader handles
// the occasional non-UTF-8 declaration in feed responses.
func parseFeed(r io.Reader, maxResults int) ([]Document, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	var f feed
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	entries := f.Entries
	if len(entries) > maxResults {
		entries = entries[:maxResults]
	}

	docs := make([]Document, 0, len(entries))
	for _, e := range entries {
		id := "unknown"
		if e.ID != "" {
			parts := strings.Split(e.ID, "/")
			id = parts[len(parts)-1]
		}
		title := strings.TrimSpace(e.Title)
		if title == "" {
			title = "Untitled"
		}
		docs = append(docs, Document{
			Text:    strings.TrimSpace(e.Summary),
			Title:   title,
			ArxivID: id,
			Source:  "https://arxiv.org/abs/" + id,
		})
	}
	return docs, nil
}

// PDFURL returns the download URL for a paper's PDF.
func PDFURL(arxivID string) string {
	return "https://arxiv.org/pdf/" + arxivID
}
