// Package loader fetches OMI documents over HTTP or from disk and imports
// them into a scene.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/milk9111/omiloader/config"
	"github.com/milk9111/omiloader/document"
	"github.com/milk9111/omiloader/omi"
	"github.com/milk9111/omiloader/scene"
)

var (
	ErrTransport = errors.New("loader: transport failed")
	ErrTimeout   = errors.New("loader: download timed out")
	ErrParse     = errors.New("loader: parse failed")
)

type Option func(*Loader)

func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) {
		if c != nil {
			l.client = c
		}
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithRegistry replaces the built-in extension handlers.
func WithRegistry(r *omi.Registry) Option {
	return func(l *Loader) {
		l.registry = r
	}
}

// Loader ties one scene to the import pipeline. It is not safe for
// concurrent use; loads into the same scene must be serialized.
type Loader struct {
	scene    *scene.Scene
	settings config.Settings
	client   *http.Client
	logger   *log.Logger
	registry *omi.Registry
	importer *omi.Importer
}

func New(scn *scene.Scene, settings config.Settings, opts ...Option) *Loader {
	l := &Loader{
		scene:    scn,
		settings: settings.Clone(),
		client:   http.DefaultClient,
		logger:   scn.Logger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.importer = omi.NewImporter(l.registry, l.settings, l.logger)
	return l
}

func (l *Loader) Scene() *scene.Scene {
	return l.scene
}

func (l *Loader) Settings() config.Settings {
	return l.settings
}

// LoadDocumentIntoWorld fetches, parses and imports uri, then calls
// onComplete exactly once with the outcome.
func (l *Loader) LoadDocumentIntoWorld(ctx context.Context, uri string, onComplete func(bool)) {
	_, err := l.Load(ctx, uri)
	if err != nil {
		l.logger.Printf("Loader: error: %s: %v", uri, err)
	}
	if onComplete != nil {
		onComplete(err == nil)
	}
}

// Load runs the whole pipeline and returns the import result. Only
// transport, parse and cancellation errors are returned; broken extension
// data is logged by the importer.
func (l *Loader) Load(ctx context.Context, uri string) (*omi.Result, error) {
	doc, visuals, err := l.fetchDocument(ctx, uri)
	if err != nil {
		return nil, err
	}
	res, err := l.importer.Import(ctx, doc, visuals, l.scene)
	if err != nil {
		return res, err
	}
	l.scene.Source = uri
	if l.scene.Title == "" {
		l.scene.Title = fallbackTitle(uri)
	}
	l.logger.Printf("Loader: loaded %s (%d entities)", uri, len(res.Entities))
	return res, nil
}

// GetDocumentTitle calls onComplete exactly once with the document title,
// or with an empty string when the document cannot be read.
func (l *Loader) GetDocumentTitle(ctx context.Context, uri string, onComplete func(string)) {
	title, err := l.Title(ctx, uri)
	if err != nil {
		l.logger.Printf("Loader: error: title of %s: %v", uri, err)
	}
	if onComplete != nil {
		onComplete(title)
	}
}

// Title reads asset.extras.title, then the default scene name, then the
// file name without its extension.
func (l *Loader) Title(ctx context.Context, uri string) (string, error) {
	doc, _, err := l.fetchDocument(ctx, uri)
	if err != nil {
		return "", err
	}
	if t := doc.Title(); t != "" {
		return t, nil
	}
	return fallbackTitle(uri), nil
}

func (l *Loader) fetchDocument(ctx context.Context, uri string) (*document.Document, []*document.Visual, error) {
	data, baseDir, err := l.Fetch(ctx, uri)
	if err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", omi.ErrCancelled, err)
	}
	doc, visuals, err := document.Parse(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrParse, uri, err)
	}
	doc.BaseDir = baseDir
	return doc, visuals, nil
}

// Fetch returns the raw document and, for local files, the directory that
// relative resource URIs resolve against.
func (l *Loader) Fetch(ctx context.Context, uri string) ([]byte, string, error) {
	if isRemote(uri) {
		data, err := l.download(ctx, uri)
		return data, "", err
	}
	p := localPath(uri)
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return data, filepath.Dir(p), nil
}

func (l *Loader) download(ctx context.Context, uri string) ([]byte, error) {
	if l.settings.DownloadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.settings.DownloadTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, l.transportError(ctx, uri, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s: status %s", ErrTransport, uri, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, l.transportError(ctx, uri, err)
	}
	return data, nil
}

func (l *Loader) transportError(ctx context.Context, uri string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %s", ErrTimeout, uri, l.settings.DownloadTimeout)
	}
	return fmt.Errorf("%w: %s: %w", ErrTransport, uri, err)
}

func isRemote(uri string) bool {
	lower := strings.ToLower(uri)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func localPath(uri string) string {
	if !strings.HasPrefix(strings.ToLower(uri), "file://") {
		return uri
	}
	u, err := url.Parse(uri)
	if err != nil || u.Path == "" {
		return uri[len("file://"):]
	}
	return filepath.FromSlash(u.Path)
}

func fallbackTitle(uri string) string {
	p := uri
	if u, err := url.Parse(uri); err == nil && u.Scheme != "" && u.Path != "" {
		p = u.Path
	}
	base := path.Base(filepath.ToSlash(p))
	return strings.TrimSuffix(base, path.Ext(base))
}
