package retriever

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/set-night/chatbot/internal/config"
	"github.com/set-night/chatbot/internal/domain"
)

// Loader turns a source reference into raw, unsplit documents.
type Loader interface {
	Load(ctx context.Context, source string) ([]domain.Document, error)
}

// WebLoader fetches a page over HTTP and keeps its visible text.
type WebLoader struct {
	httpClient *http.Client
}

func NewWebLoader(client *http.Client) *WebLoader {
	if client == nil {
		client = &http.Client{Timeout: config.FetchTimeout}
	}
	return &WebLoader{httpClient: client}
}

func (l *WebLoader) Load(ctx context.Context, source string) ([]domain.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "chatbot-loader/1.0")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", source, resp.StatusCode)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "text/plain" || mediaType == "text/markdown" {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		return single(source, "", string(body))
	}

	title, text, err := htmlText(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", source, err)
	}
	return single(source, title, text)
}

// FileLoader reads local text, markdown and HTML files.
type FileLoader struct{}

func (FileLoader) Load(_ context.Context, source string) ([]domain.Document, error) {
	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(source)) {
	case ".html", ".htm":
		title, text, err := htmlText(f)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", source, err)
		}
		return single(source, title, text)
	case ".txt", ".md", ".markdown", "":
		body, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		return single(source, filepath.Base(source), string(body))
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedSource, source)
	}
}

// TextLoader wraps inline text as a document named by name.
func TextLoader(name, text string) ([]domain.Document, error) {
	return single(name, name, text)
}

// SourceLoader picks the web or file loader from the shape of the source.
type SourceLoader struct {
	Web  Loader
	File Loader
}

func NewSourceLoader() *SourceLoader {
	return &SourceLoader{Web: NewWebLoader(nil), File: FileLoader{}}
}

func (l *SourceLoader) Load(ctx context.Context, source string) ([]domain.Document, error) {
	source = strings.TrimSpace(source)
	switch {
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return l.Web.Load(ctx, source)
	case strings.HasPrefix(source, "file://"):
		return l.File.Load(ctx, strings.TrimPrefix(source, "file://"))
	case source == "":
		return nil, fmt.Errorf("%w: empty source", domain.ErrUnsupportedSource)
	default:
		return l.File.Load(ctx, source)
	}
}

func htmlText(r io.Reader) (title, text string, err error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", "", err
	}
	doc.Find("script, style, noscript, template").Remove()

	title = strings.TrimSpace(doc.Find("title").First().Text())
	body := doc.Find("body")
	if body.Length() == 0 {
		return title, cleanText(doc.Text()), nil
	}
	return title, cleanText(body.Text()), nil
}

// cleanText trims every line and drops the blank ones.
func cleanText(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func single(source, title, text string) ([]domain.Document, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmptyDocument, source)
	}
	meta := map[string]string{domain.MetaSource: source}
	if title != "" {
		meta[domain.MetaTitle] = title
	}
	return []domain.Document{{PageContent: text, Metadata: meta}}, nil
}
