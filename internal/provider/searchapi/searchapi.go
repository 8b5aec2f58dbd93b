// Package searchapi implements the provider gateway against the
// SearchAPI.io Walmart search engine.
package searchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/diyak0413/garden-state-grocery-gap-yay/internal/basket"
	"github.com/diyak0413/garden-state-grocery-gap-yay/internal/config"
	providerdomain "github.com/diyak0413/garden-state-grocery-gap-yay/internal/provider/domain"
	"go.uber.org/zap"
)

type Adapter struct {
	cfg    config.ProviderConfig
	client *http.Client
	log    *zap.Logger
}

func New(cfg config.Config, log *zap.Logger) *Adapter {
	return &Adapter{
		cfg:    cfg.Provider,
		client: &http.Client{Timeout: cfg.Provider.Timeout},
		log:    log.Named("provider.searchapi"),
	}
}

type searchResponse struct {
	OrganicResults []offer `json:"organic_results"`
}

type offer struct {
	Title          string  `json:"title"`
	SellerName     string  `json:"seller_name"`
	Price          any     `json:"price"`
	ExtractedPrice float64 `json:"extracted_price"`
}

func (a *Adapter) FetchPrice(ctx context.Context, item basket.Item, region string) (*providerdomain.Quote, error) {
	if len(item.SearchTerms) == 0 {
		return nil, fmt.Errorf("%w: item %q has no search terms", providerdomain.ErrProviderUnavailable, item.Name)
	}

	params := url.Values{}
	params.Set("engine", a.cfg.Engine)
	params.Set("q", item.SearchTerms[0])
	params.Set("zip_code", region)
	params.Set("api_key", a.cfg.APIKey)
	params.Set("num_results", strconv.Itoa(a.cfg.NumResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", providerdomain.ErrProviderUnavailable, err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", providerdomain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", providerdomain.ErrProviderUnavailable, resp.StatusCode)
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", providerdomain.ErrProviderUnavailable, err)
	}

	quote := a.selectQuote(item, payload.OrganicResults)
	if quote == nil {
		a.log.Debug("no offer within plausible range",
			zap.String("item", item.Name),
			zap.String("region", region),
			zap.Int("offers", len(payload.OrganicResults)),
		)
	}
	return quote, nil
}

// selectQuote prefers offers sold by the configured seller, then falls back
// to the rest; within each tier the first offer whose price lies inside the
// item's plausible range wins.
func (a *Adapter) selectQuote(item basket.Item, offers []offer) *providerdomain.Quote {
	preferred := make([]offer, 0, len(offers))
	others := make([]offer, 0, len(offers))
	want := strings.ToLower(a.cfg.PreferredSeller)

	for _, o := range offers {
		if want != "" && strings.Contains(strings.ToLower(o.SellerName), want) {
			preferred = append(preferred, o)
		} else {
			others = append(others, o)
		}
	}

	for _, o := range append(preferred, others...) {
		price, ok := offerPrice(o)
		if !ok {
			continue
		}
		if price >= item.MinPrice && price <= item.MaxPrice {
			return &providerdomain.Quote{Price: price, Seller: o.SellerName}
		}
	}
	return nil
}

func offerPrice(o offer) (float64, bool) {
	if o.ExtractedPrice > 0 {
		return o.ExtractedPrice, true
	}
	switch v := o.Price.(type) {
	case float64:
		if v > 0 {
			return v, true
		}
	case string:
		clean := strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(v, "$", ""), ",", ""))
		price, err := strconv.ParseFloat(clean, 64)
		if err == nil && price > 0 {
			return price, true
		}
	}
	return 0, false
}
