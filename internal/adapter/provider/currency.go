package provider

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CurrencyOptions configures the live exchange-rate adapter.
type CurrencyOptions struct {
	BaseURL       string
	Timeout       time.Duration
	RatePerSecond float64
	HTTPClient    *http.Client
}

// CurrencyAdapter fetches the latest rates for a base currency.
// Params: from. The payload carries a "rates" object keyed by currency.
type CurrencyAdapter struct {
	baseURL string
	caller  *caller
}

func NewCurrencyAdapter(opts CurrencyOptions) *CurrencyAdapter {
	return &CurrencyAdapter{
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		caller:  newCaller(opts.HTTPClient, opts.Timeout, opts.RatePerSecond),
	}
}

func (c *CurrencyAdapter) Name() string { return "exchange-rates" }

func (c *CurrencyAdapter) Search(ctx context.Context, params Params) Result {
	from := strings.ToUpper(params.Str("from"))
	if from == "" {
		return Fail(FailureMalformed, "from currency is required")
	}
	if c.baseURL == "" {
		return Fail(FailureUnconfigured, "currency endpoint not configured")
	}
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/"+url.PathEscape(from), nil)
	if err != nil {
		return Fail(FailureMalformed, "failed to create request: %v", err)
	}
	return classify(c.caller.do(ctx, req))
}
