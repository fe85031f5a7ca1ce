// Package channels initializes a project's chat channel by posting to the
// configured webhook endpoints.
package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/lherron/guildq/internal/domain"
	"github.com/lherron/guildq/internal/logging"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTimeout     = 5 * time.Second
	defaultConcurrency = 4
)

// Payload is the body posted to every webhook endpoint.
type Payload struct {
	Channel   string   `json:"channel"`
	Topic     string   `json:"topic"`
	ProjectID string   `json:"project_id"`
	ChapterID string   `json:"chapter_id"`
	CycleID   string   `json:"cycle_id"`
	Members   []Member `json:"members"`
}

// Member is a player invited to the channel.
type Member struct {
	ID     string `json:"id"`
	Handle string `json:"handle"`
	Email  string `json:"email,omitempty"`
}

// Initializer posts channel setup requests to a fixed list of webhook URLs.
type Initializer struct {
	urls        []string
	client      *http.Client
	concurrency int
	log         logrus.FieldLogger
}

// Option configures an Initializer.
type Option func(*Initializer)

// WithClient replaces the HTTP client.
func WithClient(c *http.Client) Option {
	return func(i *Initializer) { i.client = c }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(i *Initializer) { i.log = l }
}

// WithConcurrency bounds the number of in-flight requests.
func WithConcurrency(n int) Option {
	return func(i *Initializer) {
		if n > 0 {
			i.concurrency = n
		}
	}
}

// New creates an Initializer for urls. URLs may contain {project_name},
// {project_id} and {chapter_id} placeholders.
func New(urls []string, opts ...Option) *Initializer {
	i := &Initializer{
		urls:        urls,
		client:      &http.Client{Timeout: DefaultTimeout},
		concurrency: defaultConcurrency,
		log:         logging.Nop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Init posts the channel payload to every target. All endpoint failures are
// joined into the returned error. With no targets it does nothing.
func (i *Initializer) Init(ctx context.Context, project *domain.Project, players []domain.User) error {
	targets := normalizeURLs(i.urls, project, i.log)
	if len(targets) == 0 {
		return nil
	}

	body, err := json.Marshal(newPayload(project, players))
	if err != nil {
		return fmt.Errorf("failed to encode channel payload: %w", err)
	}

	workers := i.concurrency
	if len(targets) < workers {
		workers = len(targets)
	}

	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	jobs := make(chan string)
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for endpoint := range jobs {
				if err := i.send(ctx, endpoint, body); err != nil {
					i.log.WithError(err).WithField("endpoint", endpoint).Warn("Channel webhook failed")
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
			}
		}()
	}

	for _, endpoint := range targets {
		jobs <- endpoint
	}
	close(jobs)
	wg.Wait()

	return errors.Join(errs...)
}

func (i *Initializer) send(ctx context.Context, endpoint string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request %q: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		return fmt.Errorf("request to %q: %w", endpoint, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("request to %q: unexpected status %d", endpoint, resp.StatusCode)
	}
	return nil
}

func newPayload(project *domain.Project, players []domain.User) Payload {
	p := Payload{
		Channel:   project.Name,
		ProjectID: project.ID,
		ChapterID: project.ChapterID,
		CycleID:   project.CycleID,
		Members:   make([]Member, 0, len(players)),
	}
	if project.Goal != nil {
		p.Topic = fmt.Sprintf("Goal %d: %s", project.Goal.Number, project.Goal.Title)
	}
	for _, u := range players {
		m := Member{ID: u.ID, Handle: u.Handle}
		if u.Email != nil {
			m.Email = *u.Email
		}
		p.Members = append(p.Members, m)
	}
	return p
}

func normalizeURLs(urls []string, project *domain.Project, log logrus.FieldLogger) []string {
	if len(urls) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(urls))
	var normalized []string

	for _, raw := range urls {
		templated := strings.TrimSpace(applyTemplate(strings.TrimSpace(raw), project))
		templated = strings.TrimRight(templated, "/")
		if templated == "" {
			continue
		}
		if !isValidURL(templated) {
			log.WithField("url", templated).Warn("Skipping invalid channel webhook url")
			continue
		}
		if _, ok := seen[templated]; ok {
			continue
		}
		seen[templated] = struct{}{}
		normalized = append(normalized, templated)
	}

	return normalized
}

func applyTemplate(raw string, project *domain.Project) string {
	result := strings.ReplaceAll(raw, "{project_name}", url.PathEscape(project.Name))
	result = strings.ReplaceAll(result, "{project_id}", project.ID)
	result = strings.ReplaceAll(result, "{chapter_id}", project.ChapterID)
	return result
}

func isValidURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	return parsed.Host != ""
}

// Nop is a ChannelInitializer that does nothing.
type Nop struct{}

// Init implements the channel initializer contract.
func (Nop) Init(context.Context, *domain.Project, []domain.User) error { return nil }
