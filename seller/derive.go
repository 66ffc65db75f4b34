// Copyright (c) 2025 BVK Chaitanya

package seller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bvk/supplybot/browser"
	"github.com/chromedp/cdproto/network"
)

// ErrTokenParse is returned when the access token is missing from the
// portal's local storage, which usually means the profile is not logged in.
var ErrTokenParse = errors.New("could not parse access token")

const tokenExpr = `localStorage.getItem('wb-eu-passport-v2.access-token')`

// portalParams is the page recipe to open the portal and let its scripts
// refresh the session.
var portalParams = browser.PageParams{
	WaitForNavigation: 2 * time.Second,
	OpenTimeout:       3 * time.Second,
	Settle:            1500 * time.Millisecond,
	WaitFor: &browser.SelectorWait{
		Selector: "#root",
		Timeout:  5 * time.Second,
	},
}

// DeriveIdentity opens the portal in the browser and extracts the current
// user's access token and cookies.
func DeriveIdentity(ctx context.Context, s *browser.Session) (*Identity, error) {
	params := portalParams
	page, err := s.OpenWithParams(ctx, PortalURL+"/", &params)
	if err != nil {
		return nil, fmt.Errorf("could not open the seller portal: %w", err)
	}
	return readIdentity(ctx, page, s.Cookies)
}

// portalPage is the open portal page.
type portalPage interface {
	Evaluate(ctx context.Context, expr string) ([]byte, error)
	Close() error
}

// readIdentity reads the identity from the open portal page. Page is always
// closed.
func readIdentity(ctx context.Context, page portalPage, cookiesFunc func(context.Context) ([]*network.Cookie, error)) (*Identity, error) {
	defer func() {
		if err := page.Close(); err != nil {
			slog.Warn("could not close the portal page (ignored)", "err", err)
		}
	}()

	cookies, err := cookiesFunc(ctx)
	if err != nil {
		return nil, err
	}
	cmap := make(map[string]string, len(cookies))
	for _, c := range cookies {
		if c != nil {
			cmap[c.Name] = c.Value
		}
	}

	result, err := page.Evaluate(ctx, tokenExpr)
	if err != nil {
		return nil, fmt.Errorf("could not read access token: %w", err)
	}
	token, err := parseToken(result)
	if err != nil {
		return nil, err
	}
	return NewIdentity(token, cmap), nil
}

// parseToken decodes the json result of the token expression, which must be a
// string.
func parseToken(result []byte) (string, error) {
	var v any
	if err := json.Unmarshal(result, &v); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenParse, err)
	}
	token, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: token value %s is not a string", ErrTokenParse, result)
	}
	return token, nil
}
