package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"code.sajari.com/docconv/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
)

// Source describes one document input: a URL to fetch, or raw upload bytes
// with the original filename in Name.
type Source struct {
	URL  string
	Name string
	Data []byte
}

// DocumentLoader converts a document source into plain text, independent of
// the source format (PDF, Word, HTML, plain text).
type DocumentLoader struct {
	httpClient *http.Client
}

// NewDocumentLoader creates a new document loader
func NewDocumentLoader() *DocumentLoader {
	return &DocumentLoader{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Load fetches the source if needed and extracts its plain text.
func (l *DocumentLoader) Load(ctx context.Context, source Source) (string, error) {
	data := source.Data
	name := source.Name
	contentType := ""

	if data == nil {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := l.httpClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("failed to fetch document: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("document fetch returned status %d", resp.StatusCode)
		}

		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("failed to read document body: %w", err)
		}

		contentType = resp.Header.Get("Content-Type")
		if name == "" {
			if u, err := url.Parse(source.URL); err == nil {
				name = path.Base(u.Path)
			}
		}
	}

	text, err := extractText(name, contentType, data)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no text content extracted from %q", name)
	}

	return text, nil
}

// documentKind picks the extraction path from the content type, falling back
// to the filename extension.
func documentKind(name, contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "application/pdf"):
		return "pdf"
	case strings.Contains(ct, "wordprocessingml") || strings.Contains(ct, "application/msword"):
		return "word"
	case strings.Contains(ct, "text/html"):
		return "html"
	case strings.Contains(ct, "text/plain"):
		return "text"
	}

	switch strings.ToLower(path.Ext(name)) {
	case ".pdf":
		return "pdf"
	case ".doc", ".docx":
		return "word"
	case ".html", ".htm":
		return "html"
	default:
		return "text"
	}
}

func extractText(name, contentType string, data []byte) (string, error) {
	switch documentKind(name, contentType) {
	case "pdf":
		return extractPDF(data)
	case "word":
		return extractWord(data)
	case "html":
		return extractHTML(data)
	default:
		return string(data), nil
	}
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var builder strings.Builder
	totalPages := reader.NumPage()
	for pageIndex := 1; pageIndex <= totalPages; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to extract text from page %d: %w", pageIndex, err)
		}
		builder.WriteString(text)
	}

	return builder.String(), nil
}

func extractWord(data []byte) (string, error) {
	mimeType := "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	result, err := docconv.Convert(bytes.NewReader(data), mimeType, false)
	if err != nil {
		return "", fmt.Errorf("failed to convert Word document: %w", err)
	}

	return result.Body, nil
}

func extractHTML(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, noscript").Remove()
	return doc.Find("body").Text(), nil
}
