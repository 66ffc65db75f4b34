// Copyright (c) 2025 BVK Chaitanya

package seller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type fakePortal struct {
	mu       sync.Mutex
	requests []map[string]any
	headers  []http.Header

	// failIDs lists preorder ids for which cost lookups fail.
	failIDs map[int64]bool

	// nulls when true adds null elements to the result lists.
	nulls bool
}

func (f *fakePortal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.requests = append(f.requests, body)
	f.headers = append(f.headers, r.Header.Clone())
	f.mu.Unlock()

	null := ""
	if f.nulls {
		null = "null,"
	}

	switch {
	case strings.HasSuffix(r.URL.Path, "/listSupplies"):
		io.WriteString(w, `{"result":{"data":[`+null+`
			{"preorderId":101,"warehouseName":"Коледино","statusName":"Не запланировано","acceptanceCost":null},
			{"preorderId":null,"warehouseName":"Казань"},
			{"preorderId":102,"warehouseName":"Электросталь","tariffPallet":12.5,"unknownField":{"x":1}}
		]}}`)
	case strings.HasSuffix(r.URL.Path, "/getAcceptanceCosts"):
		params := body["params"].(map[string]any)
		id := int64(params["preorderID"].(float64))
		if f.failIDs[id] {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		io.WriteString(w, `{"result":{"costs":[`+null+`
			{"coefficient":-1,"cost":0,"date":"2025-07-01T00:00:00Z"},
			{"coefficient":1.5,"cost":"1200.50","date":"2025-07-02T00:00:00Z","deliveryAndStorage":{"deliveryCoef":"150"}}
		]}}`)
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, portal *fakePortal) *Client {
	server := httptest.NewServer(portal)
	t.Cleanup(server.Close)

	identity := NewIdentity("secret-token", map[string]string{"b": "2", "a": "1"})
	c, err := New(identity, &Options{BaseURL: server.URL + "/api", RequestsPerSecond: 1000})
	if err != nil {
		t.Fatal(err)
	}
	c.now = func() time.Time {
		return time.Date(2025, 7, 1, 10, 30, 15, 123456789, time.UTC)
	}
	return c
}

func TestListSupplies(t *testing.T) {
	portal := new(fakePortal)
	c := newTestClient(t, portal)

	resp, err := c.NotPlannedSupplies(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n := len(resp.Result.Data); n != 3 {
		t.Fatalf("want 3 supplies, got %d", n)
	}
	first := resp.Result.Data[0]
	if first.PreorderID == nil || *first.PreorderID != 101 || first.WarehouseName != "Коледино" {
		t.Fatalf("unexpected first supply %+v", first)
	}
	if !first.AcceptanceCost.IsZero() {
		t.Fatalf("null acceptance cost must default to zero")
	}
	if resp.Result.Data[1].PreorderID != nil {
		t.Fatalf("want absent preorder id")
	}
	if v := resp.Result.Data[2].TariffPallet; !v.Valid || !v.Decimal.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected tariff pallet %v", v)
	}

	body := portal.requests[0]
	if body["jsonrpc"] != "2.0" || body["id"] != "json-rpc_33" {
		t.Fatalf("unexpected envelope %v", body)
	}
	params := body["params"].(map[string]any)
	want := map[string]any{
		"pageNumber":    float64(1),
		"pageSize":      float64(100),
		"sortBy":        "createDate",
		"sortDirection": "desc",
		"statusId":      float64(-1),
		"searchById":    nil,
	}
	for k, v := range want {
		if got, ok := params[k]; !ok || got != v {
			t.Errorf("param %s: want %v, got %v", k, v, got)
		}
	}

	h := portal.headers[0]
	if v := h.Get("authorizev3"); v != "secret-token" {
		t.Fatalf("unexpected authorizev3 header %q", v)
	}
	if v := h.Get("cookie"); v != "a=1; b=2" {
		t.Fatalf("unexpected cookie header %q", v)
	}
	if v := h.Get("origin"); v != "https://seller.wildberries.ru" {
		t.Fatalf("unexpected origin header %q", v)
	}
	if v := h.Get("referer"); v != "https://seller.wildberries.ru/" {
		t.Fatalf("unexpected referer header %q", v)
	}
	if v := h.Get("user-agent"); !strings.Contains(v, "Chrome/138") {
		t.Fatalf("unexpected user-agent header %q", v)
	}
}

func TestAllSuppliesStatus(t *testing.T) {
	portal := new(fakePortal)
	c := newTestClient(t, portal)

	if _, err := c.AllSupplies(context.Background()); err != nil {
		t.Fatal(err)
	}
	params := portal.requests[0]["params"].(map[string]any)
	if params["statusId"] != float64(-2) {
		t.Fatalf("want status -2, got %v", params["statusId"])
	}
}

func TestAcceptanceCosts(t *testing.T) {
	portal := new(fakePortal)
	c := newTestClient(t, portal)

	resp, err := c.AcceptanceCosts(context.Background(), 101, 14)
	if err != nil {
		t.Fatal(err)
	}
	costs := resp.Result.Costs
	if len(costs) != 2 {
		t.Fatalf("want 2 costs, got %d", len(costs))
	}
	if costs[0].IsAvailable() || !costs[1].IsAvailable() {
		t.Fatalf("unexpected availability")
	}
	if !costs[1].Cost.Equal(decimal.RequireFromString("1200.5")) {
		t.Fatalf("unexpected cost %s", costs[1].Cost)
	}
	if costs[1].DeliveryAndStorage.DeliveryCoef != "150" || costs[0].DeliveryAndStorage.DeliveryCoef != "" {
		t.Fatalf("unexpected delivery and storage values")
	}
	if d := costs[1].ShortDate(); d != "2025-07-02" {
		t.Fatalf("unexpected short date %q", d)
	}

	body := portal.requests[0]
	if body["id"] != "json-rpc_39" {
		t.Fatalf("unexpected envelope id %v", body["id"])
	}
	params := body["params"].(map[string]any)
	if params["dateFrom"] != "2025-07-01T10:30:15.123Z" {
		t.Fatalf("unexpected dateFrom %v", params["dateFrom"])
	}
	if params["dateTo"] != "2025-07-14T00:00:00.000Z" {
		t.Fatalf("unexpected dateTo %v", params["dateTo"])
	}
	if params["preorderID"] != float64(101) || params["supplyId"] != nil {
		t.Fatalf("unexpected params %v", params)
	}
}

func TestDateWindow(t *testing.T) {
	now := time.Date(2025, 12, 31, 23, 59, 59, 0, time.FixedZone("MSK", 3*3600))

	from, to := dateWindow(now, 0)
	if from != "2025-12-31T20:59:59.000Z" || to != "2025-12-31T00:00:00.000Z" {
		t.Fatalf("zero days: got %s..%s", from, to)
	}
	_, to = dateWindow(now, 2)
	if to != "2026-01-01T00:00:00.000Z" {
		t.Fatalf("two days: got %s", to)
	}
}

func TestAcceptanceCostsForSupplies(t *testing.T) {
	portal := &fakePortal{failIDs: map[int64]bool{102: true}}
	c := newTestClient(t, portal)

	id := func(v int64) *int64 { return &v }
	supplies := []*Supply{
		{PreorderID: id(101)},
		{PreorderID: nil},
		{PreorderID: id(102)},
	}
	costs, err := c.AcceptanceCostsForSupplies(context.Background(), 14, supplies)
	if err != nil {
		t.Fatal(err)
	}
	if len(costs) != 2 {
		t.Fatalf("want 2 entries, got %d", len(costs))
	}
	if n := len(costs[101]); n != 2 {
		t.Fatalf("want 2 costs for 101, got %d", n)
	}
	if v, ok := costs[102]; !ok || len(v) != 0 {
		t.Fatalf("want empty costs for failed lookup, got %v", v)
	}
	if n := len(portal.requests); n != 2 {
		t.Fatalf("id-less supply must not be requested, got %d requests", n)
	}
}

func TestNullElements(t *testing.T) {
	c := newTestClient(t, &fakePortal{nulls: true})

	resp, err := c.NotPlannedSupplies(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n := len(resp.Result.Data); n != 4 || resp.Result.Data[0] != nil {
		t.Fatalf("want the null element decoded as nil, got %d elements", n)
	}
	costs, err := c.AcceptanceCostsForSupplies(context.Background(), 14, resp.Result.Data)
	if err != nil {
		t.Fatal(err)
	}
	if len(costs) != 2 {
		t.Fatalf("want costs for the two ids, got %d", len(costs))
	}
	for id, list := range costs {
		if len(list) != 2 {
			t.Fatalf("want null costs dropped for %d, got %d", id, len(list))
		}
		for _, c := range list {
			if c == nil {
				t.Fatalf("null cost must be dropped for %d", id)
			}
		}
	}
}

func TestHTTPError(t *testing.T) {
	portal := &fakePortal{failIDs: map[int64]bool{7: true}}
	c := newTestClient(t, portal)

	_, err := c.AcceptanceCosts(context.Background(), 7, 1)
	var herr *HTTPError
	if !errors.As(err, &herr) {
		t.Fatalf("want HTTPError, got %v", err)
	}
	if herr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("unexpected status %d", herr.StatusCode)
	}
}

func TestIdentityIsImmutable(t *testing.T) {
	cookies := map[string]string{"k": "v"}
	id := NewIdentity("t", cookies)
	cookies["k"] = "changed"
	id.Cookies()["k"] = "changed"
	if v := id.CookieHeader(); v != "k=v" {
		t.Fatalf("identity must not alias caller maps, got %q", v)
	}
	if v := NewIdentity("t", nil).CookieHeader(); v != "" {
		t.Fatalf("want empty cookie header, got %q", v)
	}
}

func TestParseToken(t *testing.T) {
	if v, err := parseToken([]byte(`"abc.def"`)); err != nil || v != "abc.def" {
		t.Fatalf("want token, got %q, %v", v, err)
	}
	for _, s := range []string{`null`, `42`, `{}`, ``} {
		if _, err := parseToken([]byte(s)); !errors.Is(err, ErrTokenParse) {
			t.Errorf("parseToken(%q): want ErrTokenParse, got %v", s, err)
		}
	}
}

func TestSupplyURL(t *testing.T) {
	want := "https://seller.wildberries.ru/supplies-management/all-supplies/supply-detail?preorderId=42"
	if s := SupplyURL(42); s != want {
		t.Fatalf("want %q, got %q", want, s)
	}
}
