// Copyright (c) 2025 BVK Chaitanya

package seller

import (
	"fmt"
	"net/url"
	"os"
	"time"
)

var (
	// BaseURL is the supply-manager api endpoint prefix.
	BaseURL = "https://seller-supply.wildberries.ru/ns/sm-supply/supply-manager/api/v1/supply"

	// PortalURL is the seller portal, which is also the origin of all api
	// requests.
	PortalURL = "https://seller.wildberries.ru"

	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36"
)

type Options struct {
	// BaseURL overrides the api endpoint prefix.
	BaseURL string

	// Origin is sent in the origin and referer headers.
	Origin string

	UserAgent string

	// Timeout to use for the HTTP requests.
	HttpClientTimeout time.Duration

	// RequestsPerSecond limits the rate of api requests. Per-supply cost
	// lookups are issued back-to-back, so this spaces them out.
	RequestsPerSecond float64
}

func (v *Options) setDefaults() {
	if v.BaseURL == "" {
		v.BaseURL = BaseURL
	}
	if v.Origin == "" {
		v.Origin = PortalURL
	}
	if v.UserAgent == "" {
		v.UserAgent = UserAgent
	}
	if v.HttpClientTimeout == 0 {
		v.HttpClientTimeout = 10 * time.Second
	}
	if v.RequestsPerSecond == 0 {
		v.RequestsPerSecond = 5
	}
}

func (v *Options) Check() error {
	if _, err := url.Parse(v.BaseURL); err != nil {
		return fmt.Errorf("invalid base url %q: %w", v.BaseURL, os.ErrInvalid)
	}
	if v.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second cannot be negative: %w", os.ErrInvalid)
	}
	return nil
}
