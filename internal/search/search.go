// Package search queries public model repositories in parallel.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/philipparndt/modelforge/internal/config"
)

// Result is a model found on a repository
type Result struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	URL         string `json:"url"`
	FileURL     string `json:"fileUrl,omitempty"`
	Source      string `json:"source"`
	Creator     string `json:"creator"`
}

// Platform searches one repository
type Platform interface {
	Name() string
	Search(ctx context.Context, query string) ([]Result, error)
}

var errNoToken = errors.New("no access token configured")

// Service fans a query out to every platform and keeps what succeeds
type Service struct {
	platforms []Platform
	limit     int
	timeout   time.Duration
	logger    *zap.Logger
}

// NewService builds the service with the configured platforms
func NewService(cfg config.SearchConfig, httpClient *http.Client, logger *zap.Logger) *Service {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return NewServiceWith(cfg.Limit, cfg.Timeout, logger,
		&Thingiverse{BaseURL: cfg.ThingiverseURL, Token: cfg.ThingiverseToken, Client: httpClient},
		&Printables{BaseURL: cfg.PrintablesURL, Client: httpClient},
	)
}

// NewServiceWith uses the given platforms
func NewServiceWith(limit int, timeout time.Duration, logger *zap.Logger, platforms ...Platform) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limit <= 0 {
		limit = 10
	}
	return &Service{
		platforms: platforms,
		limit:     limit,
		timeout:   timeout,
		logger:    logger.With(zap.String("component", "search")),
	}
}

// Platforms lists the platform names
func (s *Service) Platforms() []string {
	names := make([]string, len(s.platforms))
	for i, p := range s.platforms {
		names[i] = p.Name()
	}
	return names
}

// Search queries the selected platforms (all when only is empty). Failing
// platforms are logged and skipped; results keep platform order.
func (s *Service) Search(ctx context.Context, query string, only ...string) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("search query must not be empty")
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	selected := s.selectPlatforms(only)
	perPlatform := make([][]Result, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range selected {
		g.Go(func() error {
			res, err := p.Search(gctx, query)
			if err != nil {
				s.logger.Warn("platform search failed", zap.String("platform", p.Name()), zap.Error(err))
				return nil
			}
			perPlatform[i] = res
			return nil
		})
	}
	_ = g.Wait()

	var out []Result
	for _, res := range perPlatform {
		out = append(out, res...)
	}
	if len(out) > s.limit {
		out = out[:s.limit]
	}
	s.logger.Debug("search finished", zap.String("query", query), zap.Int("results", len(out)))
	return out, nil
}

func (s *Service) selectPlatforms(only []string) []Platform {
	if len(only) == 0 {
		return s.platforms
	}
	var out []Platform
	for _, p := range s.platforms {
		for _, name := range only {
			if strings.EqualFold(p.Name(), name) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

func getJSON(ctx context.Context, client *http.Client, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// idString renders numeric or string IDs
func idString(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
