package agility

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{GUID: "abc-u", FetchKey: "fetch-key", PreviewKey: "preview-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClient_Config(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"missing guid", Config{FetchKey: "k"}, true},
		{"missing fetch key", Config{GUID: "g", PreviewKey: "p"}, true},
		{"preview without preview key", Config{GUID: "g", FetchKey: "k", Preview: true}, true},
		{"fetch", Config{GUID: "g", FetchKey: "k"}, false},
		{"preview", Config{GUID: "g", PreviewKey: "p", Preview: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.cfg)
			if tt.wantErr {
				if !errors.Is(err, model.ErrConfiguration) {
					t.Errorf("err = %v, want configuration error", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestRegionHost(t *testing.T) {
	tests := map[string]string{
		"abc123-u": "https://api-usa.aglty.io",
		"abc123-e": "https://api-eu.aglty.io",
		"abc123-c": "https://api-ca.aglty.io",
		"abc123-a": "https://api-aus.aglty.io",
		"abc123-d": "https://api-dev.aglty.io",
		"abc123":   "https://api.aglty.io",
	}
	for guid, want := range tests {
		if got := RegionHost(guid); got != want {
			t.Errorf("RegionHost(%q) = %q, want %q", guid, got, want)
		}
	}
}

func TestGetContentList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/abc-u/fetch/en-us/list/posts" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("APIKey") != "fetch-key" {
			t.Errorf("APIKey = %q", r.Header.Get("APIKey"))
		}
		q := r.URL.Query()
		if q.Get("take") != "10" || q.Get("skip") != "20" {
			t.Errorf("paging = take %s skip %s", q.Get("take"), q.Get("skip"))
		}
		if q.Get("sort") != "fields.postDate" || q.Get("direction") != "desc" {
			t.Errorf("sort = %s %s", q.Get("sort"), q.Get("direction"))
		}
		if q.Get("contentLinkDepth") != "2" {
			t.Errorf("contentLinkDepth = %s", q.Get("contentLinkDepth"))
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"totalCount": 31,
			"items": []map[string]interface{}{
				{"contentID": 7, "fields": map[string]interface{}{"heading": "Hello", "views": 12}},
			},
		})
	})

	list, err := c.GetContentList(context.Background(), ListQuery{
		ReferenceName:    "Posts",
		Locale:           "en-US",
		Take:             10,
		Skip:             20,
		Sort:             "fields.postDate",
		Direction:        "desc",
		ContentLinkDepth: 2,
	})
	if err != nil {
		t.Fatalf("GetContentList: %v", err)
	}
	if list.TotalCount != 31 || len(list.Items) != 1 {
		t.Fatalf("list = %+v", list)
	}
	item := list.Items[0]
	if item.String("heading") != "Hello" {
		t.Errorf("heading = %q", item.String("heading"))
	}
	if item.String("views") != "12" {
		t.Errorf("views = %q", item.String("views"))
	}
	if item.String("missing") != "" {
		t.Errorf("missing = %q", item.String("missing"))
	}
}

func TestGetContentList_RequiresReferenceName(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	})
	_, err := c.GetContentList(context.Background(), ListQuery{Locale: "en-us"})
	if !errors.Is(err, model.ErrInvalidRequest) {
		t.Errorf("err = %v", err)
	}
}

func TestGetSitemapFlat(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/abc-u/fetch/en-us/sitemap/flat/website" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{
			"/home": {"title":"Home","name":"home","pageID":2,"path":"/home"},
			"/blog/first-post": {"title":"First","name":"first-post","pageID":5,"path":"/blog/first-post","contentID":41}
		}`))
	})

	sitemap, err := c.GetSitemapFlat(context.Background(), "website", "en-us")
	if err != nil {
		t.Fatalf("GetSitemapFlat: %v", err)
	}

	node, ok := sitemap.Lookup("/HOME/")
	if !ok || node.PageID != 2 {
		t.Errorf("Lookup(/HOME/) = %+v, %v", node, ok)
	}
	path, ok := sitemap.PathForContent(41)
	if !ok || path != "/blog/first-post" {
		t.Errorf("PathForContent(41) = %q, %v", path, ok)
	}
	if _, ok := sitemap.PathForContent(99); ok {
		t.Error("PathForContent(99) found a path")
	}
}

func TestGetPage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/abc-u/fetch/en-us/page/5" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("contentLinkDepth") != "0" {
			t.Errorf("contentLinkDepth = %s", r.URL.Query().Get("contentLinkDepth"))
		}
		w.Write([]byte(`{"pageID":5,"name":"product-details","title":"Product","zones":{"main-content-zone":[{"module":"ProductDetails","item":{"contentID":88}}]}}`))
	})

	page, err := c.GetPage(context.Background(), 5, "en-us")
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	zone := page.Zones["main-content-zone"]
	if len(zone) != 1 || zone[0].Module != "ProductDetails" {
		t.Errorf("zones = %+v", page.Zones)
	}
}

func TestGetContentItem_Errors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, model.ErrNotFound},
		{http.StatusUnauthorized, model.ErrUnauthorized},
		{http.StatusTooManyRequests, model.ErrRateLimited},
		{http.StatusInternalServerError, model.ErrUpstreamError},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			_, err := c.GetContentItem(context.Background(), 12, "en-us")
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestContentItem_LinkedFields(t *testing.T) {
	var item ContentItem
	err := json.Unmarshal([]byte(`{
		"contentID": 1,
		"fields": {
			"category": {"contentID": 3, "fields": {"name": "News"}},
			"image": {"url": "https://cdn.test/a.jpg", "label": "A"},
			"empty": null
		}
	}`), &item)
	if err != nil {
		t.Fatal(err)
	}

	cat, ok := item.Item("category")
	if !ok || cat.String("name") != "News" {
		t.Errorf("category = %+v, %v", cat, ok)
	}
	if _, ok := item.Item("empty"); ok {
		t.Error("null field decoded as item")
	}
	if img := item.Image("image"); img == nil || img.URL != "https://cdn.test/a.jpg" {
		t.Errorf("image = %+v", img)
	}
	if img := item.Image("empty"); img != nil {
		t.Errorf("empty image = %+v", img)
	}
}
