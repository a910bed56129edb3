package internal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

const pageInstruction = `Use information from the web page in the section titled "Page" to answer the question. To not abridge or stop your answer early, answer with complete information.`

// maxPageBytes caps how much of a page is read
const maxPageBytes = 4 << 20

var titlePattern = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// PageContext is the content of a page the user wants to ask about
type PageContext struct {
	URL      string
	Title    string
	Markdown string
}

// BuildPagePrompt grounds a question in the page's markdown
func BuildPagePrompt(userText, markdown string) string {
	return userText + "\n\n" + pageInstruction + "\n\n# Page\n\n" + markdown
}

// FetchPage downloads a page and converts it to markdown
func FetchPage(ctx context.Context, client *http.Client, url string) (*PageContext, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid page url: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}

	page := PageFromHTML(string(raw))
	page.URL = url
	return page, nil
}

// PageFromFile reads a local HTML file
func PageFromFile(path string) (*PageContext, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}
	page := PageFromHTML(string(raw))
	page.URL = path
	return page, nil
}

// PageFromHTML converts HTML to a PageContext. When conversion fails the
// raw HTML is used as the page text.
func PageFromHTML(html string) *PageContext {
	page := &PageContext{}
	if m := titlePattern.FindStringSubmatch(html); m != nil {
		page.Title = strings.TrimSpace(m[1])
	}

	markdown, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		LogWarn("failed to convert page to markdown: %v", err)
		page.Markdown = html
		return page
	}
	page.Markdown = strings.TrimSpace(markdown)
	return page
}
