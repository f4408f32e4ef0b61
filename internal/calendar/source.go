package calendar

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// CeremonySource yields the raw calendar lines the resolver is built from.
// The worker calls it once per cycle.
type CeremonySource interface {
	FetchRawCalendarText(ctx context.Context) ([]string, error)
}

// HTTPCeremonySource scrapes the registrar's ceremony page. The schedule
// lives in the bold cells of the page's single table body.
type HTTPCeremonySource struct {
	url    string
	client *http.Client
}

func NewHTTPCeremonySource(url string) *HTTPCeremonySource {
	return &HTTPCeremonySource{
		url: url,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (s *HTTPCeremonySource) FetchRawCalendarText(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch ceremony page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch ceremony page: unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse ceremony page: %w", err)
	}

	var lines []string
	doc.Find("tbody strong").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(strings.ReplaceAll(sel.Text(), "\n", ""))
		if text != "" {
			lines = append(lines, text)
		}
	})

	return lines, nil
}
