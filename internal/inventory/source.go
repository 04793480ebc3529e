package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/config"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/observability/tracing"
)

// ErrHostNotFound marks a lookup miss against the inventory source.
var ErrHostNotFound = errors.New("host_not_found")

// Source resolves current host records from the external inventory service.
// Cascading recomputation re-reads related hosts through this interface.
type Source interface {
	FindHostByInventoryID(ctx context.Context, orgID, inventoryID string) (*RawHost, error)
	FindHostBySubscriptionManagerID(ctx context.Context, orgID, subscriptionManagerID string) (*RawHost, error)
}

// HTTPSource queries the inventory service's REST API.
type HTTPSource struct {
	endpoint string
	client   *http.Client
	log      *zap.Logger
}

func NewHTTPSource(cfg config.Config, log *zap.Logger) *HTTPSource {
	return &HTTPSource{
		endpoint: strings.TrimRight(cfg.Inventory.Endpoint, "/"),
		client:   tracing.WrapHTTPClient(&http.Client{Timeout: cfg.Inventory.Timeout}),
		log:      log.Named("inventory.source"),
	}
}

func (s *HTTPSource) FindHostByInventoryID(ctx context.Context, orgID, inventoryID string) (*RawHost, error) {
	return s.find(ctx, url.Values{
		"org_id":       {orgID},
		"inventory_id": {inventoryID},
	})
}

func (s *HTTPSource) FindHostBySubscriptionManagerID(ctx context.Context, orgID, subscriptionManagerID string) (*RawHost, error) {
	return s.find(ctx, url.Values{
		"org_id":                  {orgID},
		"subscription_manager_id": {subscriptionManagerID},
	})
}

func (s *HTTPSource) find(ctx context.Context, query url.Values) (*RawHost, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"/hosts?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var host RawHost
		if err := json.NewDecoder(resp.Body).Decode(&host); err != nil {
			return nil, err
		}
		return &host, nil
	case http.StatusNotFound:
		return nil, ErrHostNotFound
	default:
		s.log.Warn("inventory lookup failed", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("inventory lookup returned status %d", resp.StatusCode)
	}
}

var Module = fx.Module("inventory",
	fx.Provide(func(cfg config.Config, log *zap.Logger) Source {
		return NewHTTPSource(cfg, log)
	}),
)
