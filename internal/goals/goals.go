// Package goals provides goal-library lookups backed by a remote catalog, and
// a chain that consults several lookups in order.
package goals

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lherron/guildq/internal/domain"
)

const defaultTimeout = 10 * time.Second

// Lookup resolves a goal by number. A miss is (nil, nil).
type Lookup interface {
	Get(ctx context.Context, number int) (*domain.Goal, error)
}

// Library reads goals from an HTTP goal library laid out as
// {base}/goals/{number}.json.
type Library struct {
	baseURL string
	client  *http.Client
}

// NewLibrary creates a Library rooted at baseURL. A nil client gets a default
// one with a 10s timeout.
func NewLibrary(baseURL string, client *http.Client) *Library {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Library{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// Get fetches one goal. 404 is a miss; any other non-2xx status is an error.
func (l *Library) Get(ctx context.Context, number int) (*domain.Goal, error) {
	endpoint := fmt.Sprintf("%s/goals/%d.json", l.baseURL, number)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build goal request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch goal %d: %w", number, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("fetch goal %d: unexpected status %d", number, resp.StatusCode)
	}

	var goal domain.Goal
	if err := json.NewDecoder(resp.Body).Decode(&goal); err != nil {
		return nil, fmt.Errorf("decode goal %d: %w", number, err)
	}
	if goal.Number == 0 {
		goal.Number = number
	}
	return &goal, nil
}

// Chain asks each lookup in order and returns the first goal found.
type Chain []Lookup

// Get implements Lookup. Errors stop the chain.
func (c Chain) Get(ctx context.Context, number int) (*domain.Goal, error) {
	for _, l := range c {
		goal, err := l.Get(ctx, number)
		if err != nil {
			return nil, err
		}
		if goal != nil {
			return goal, nil
		}
	}
	return nil, nil
}
