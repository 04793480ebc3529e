package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/cache"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/config"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/observability/tracing"
)

const resolveCacheTTL = 5 * time.Minute

// HTTPCatalog calls the product-catalog REST API. Resolution results are
// cached briefly since catalog content changes rarely.
type HTTPCatalog struct {
	endpoint string
	client   *http.Client
	log      *zap.Logger
	resolved cache.Cache[string, []string]
}

func NewHTTPCatalog(cfg config.Config, log *zap.Logger) *HTTPCatalog {
	return &HTTPCatalog{
		endpoint: strings.TrimRight(cfg.Catalog.Endpoint, "/"),
		client:   tracing.WrapHTTPClient(&http.Client{Timeout: cfg.Catalog.Timeout}),
		log:      log.Named("catalog.client"),
		resolved: cache.NewTTLCache[string, []string](),
	}
}

type resolveTagsRequest struct {
	EngineeringIDs     []string `json:"engineering_ids,omitempty"`
	Role               string   `json:"role,omitempty"`
	MetricIDs          []string `json:"metric_ids"`
	Is3rdPartyMigrated bool     `json:"is_3rd_party_migrated"`
}

type tagsResponse struct {
	Tags []string `json:"tags"`
}

func (c *HTTPCatalog) ResolveTags(ctx context.Context, req ResolveRequest) ([]string, error) {
	key := resolveCacheKey(req)
	if tags, ok := c.resolved.Get(key); ok {
		return tags, nil
	}

	var resp tagsResponse
	err := c.post(ctx, "/tags/resolve", resolveTagsRequest{
		EngineeringIDs:     req.EngineeringIDs,
		Role:               req.Role,
		MetricIDs:          req.MetricIDs,
		Is3rdPartyMigrated: req.Is3rdPartyMigrated,
	}, &resp)
	if err != nil {
		return nil, err
	}

	c.resolved.Set(key, resp.Tags, resolveCacheTTL)
	return resp.Tags, nil
}

func (c *HTTPCatalog) PruneIncludedTags(ctx context.Context, tags []string) ([]string, error) {
	var resp tagsResponse
	if err := c.post(ctx, "/tags/prune", tagsResponse{Tags: tags}, &resp); err != nil {
		return nil, err
	}
	return resp.Tags, nil
}

func (c *HTTPCatalog) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("catalog call failed", zap.String("path", path), zap.Error(tracing.SafeError(err)))
		return fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("catalog call returned error status",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("%w: status %d", ErrCatalogUnavailable, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func resolveCacheKey(req ResolveRequest) string {
	engIDs := append([]string(nil), req.EngineeringIDs...)
	sort.Strings(engIDs)
	metricIDs := append([]string(nil), req.MetricIDs...)
	sort.Strings(metricIDs)
	return strings.Join([]string{
		strings.Join(engIDs, ","),
		req.Role,
		strings.Join(metricIDs, ","),
		fmt.Sprintf("%t", req.Is3rdPartyMigrated),
	}, "|")
}
