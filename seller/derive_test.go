// Copyright (c) 2025 BVK Chaitanya

package seller

import (
	"context"
	"errors"
	"testing"

	"github.com/chromedp/cdproto/network"
)

type fakePortalPage struct {
	result []byte
	err    error
	closes int
}

func (p *fakePortalPage) Evaluate(ctx context.Context, expr string) ([]byte, error) {
	if expr != tokenExpr {
		return nil, errors.New("unexpected expression")
	}
	return p.result, p.err
}

func (p *fakePortalPage) Close() error {
	p.closes++
	return nil
}

func TestReadIdentity(t *testing.T) {
	cookies := func(context.Context) ([]*network.Cookie, error) {
		return []*network.Cookie{{Name: "x", Value: "1"}, nil, {Name: "a", Value: "2"}}, nil
	}
	noCookies := func(context.Context) ([]*network.Cookie, error) {
		return nil, errors.New("browser is not running")
	}

	tests := map[string]struct {
		page    *fakePortalPage
		cookies func(context.Context) ([]*network.Cookie, error)
		wantErr bool
	}{
		"ok":            {&fakePortalPage{result: []byte(`"tok"`)}, cookies, false},
		"cookies fail":  {&fakePortalPage{result: []byte(`"tok"`)}, noCookies, true},
		"evaluate fail": {&fakePortalPage{err: errors.New("exception")}, cookies, true},
		"no token":      {&fakePortalPage{result: []byte(`null`)}, cookies, true},
	}
	for name, test := range tests {
		id, err := readIdentity(context.Background(), test.page, test.cookies)
		if test.page.closes != 1 {
			t.Errorf("%s: want the page closed once, got %d", name, test.page.closes)
		}
		if test.wantErr {
			if err == nil {
				t.Errorf("%s: want error", name)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if id.Token() != "tok" || id.CookieHeader() != "a=2; x=1" {
			t.Errorf("%s: unexpected identity %q %q", name, id.Token(), id.CookieHeader())
		}
	}
}
