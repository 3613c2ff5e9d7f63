package commercetools

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"sync"
	"testing"
	"time"

	"storefront/internal/model"
)

func TestSlugLocaleCandidates(t *testing.T) {
	tests := []struct {
		locale string
		want   []string
	}{
		{"fr", []string{"fr", "en", "en-US"}},
		{"en", []string{"en", "en-US"}},
		{"en-US", []string{"en-US", "en"}},
		{"", []string{"en", "en-US"}},
	}

	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			if got := SlugLocaleCandidates(tt.locale); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SlugLocaleCandidates(%q) = %v, want %v", tt.locale, got, tt.want)
			}
		})
	}
}

func TestFetchProducts_QueryAndTransform(t *testing.T) {
	client := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/demo/product-projections" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if q.Get("limit") != "100" || q.Get("offset") != "0" || q.Get("localeProjection") != "en" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		if got := q["where"]; !reflect.DeepEqual(got, []string{`categories(id="c1")`}) {
			t.Errorf("where = %v", got)
		}
		if got := q["sort"]; !reflect.DeepEqual(got, []string{"price asc"}) {
			t.Errorf("sort = %v", got)
		}
		writeJSON(t, w, http.StatusOK, PagedResponse[ProductProjection]{
			Total: 12, Count: 1, Limit: 100,
			Results: []ProductProjection{sampleProjection()},
		})
	})

	page, err := client.FetchProducts(t.Context(), model.ProductQuery{
		Where: []string{`categories(id="c1")`},
		Sort:  []string{"price asc"},
	})
	if err != nil {
		t.Fatalf("FetchProducts: %v", err)
	}
	if page.Total != 12 || page.Count != 1 {
		t.Errorf("page totals = %d/%d", page.Total, page.Count)
	}
	if len(page.Results) != 1 || page.Results[0].Slug != "classic-mug" {
		t.Errorf("results = %+v", page.Results)
	}
}

func TestFetchProductBySlug_FallsBackThroughLocales(t *testing.T) {
	var (
		mu     sync.Mutex
		wheres []string
	)
	client := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		mu.Lock()
		wheres = append(wheres, q.Get("where"))
		mu.Unlock()

		if q.Get("var.slug") != "classic-mug" {
			t.Errorf("var.slug = %q", q.Get("var.slug"))
		}
		if q.Get("localeProjection") != "fr" {
			t.Errorf("localeProjection = %q, want requested locale", q.Get("localeProjection"))
		}

		resp := PagedResponse[ProductProjection]{}
		if q.Get("where") == "slug(en-US = :slug)" {
			resp.Results = []ProductProjection{sampleProjection()}
		}
		writeJSON(t, w, http.StatusOK, resp)
	})

	product, err := client.FetchProductBySlug(t.Context(), "classic-mug", "fr")
	if err != nil {
		t.Fatalf("FetchProductBySlug: %v", err)
	}
	if product == nil || product.CommercetoolsID != "prod-1" {
		t.Fatalf("product = %+v, want prod-1", product)
	}

	want := []string{"slug(fr = :slug)", "slug(en = :slug)", "slug(en-US = :slug)"}
	if !reflect.DeepEqual(wheres, want) {
		t.Errorf("attempts = %v, want %v", wheres, want)
	}
}

func TestFetchProductBySlug_NoMatch(t *testing.T) {
	var calls int
	client := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(t, w, http.StatusOK, PagedResponse[ProductProjection]{})
	})

	product, err := client.FetchProductBySlug(t.Context(), "missing", "de")
	if err != nil {
		t.Fatalf("FetchProductBySlug: %v", err)
	}
	if product != nil {
		t.Errorf("product = %+v, want nil", product)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3 (de, en, en-US)", calls)
	}
}

func TestFetchProductBySlug_SharedLookupSurvivesCallerCancel(t *testing.T) {
	var (
		mu      sync.Mutex
		calls   int
		arrived = make(chan struct{})
		release = make(chan struct{})
	)
	client := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			close(arrived)
			<-release
		}
		writeJSON(t, w, http.StatusOK, PagedResponse[ProductProjection]{
			Results: []ProductProjection{sampleProjection()},
		})
	})

	ctxA, cancelA := context.WithCancel(t.Context())
	errA := make(chan error, 1)
	go func() {
		_, err := client.FetchProductBySlug(ctxA, "classic-mug", "en")
		errA <- err
	}()
	<-arrived

	type result struct {
		product *model.Product
		err     error
	}
	resB := make(chan result, 1)
	go func() {
		p, err := client.FetchProductBySlug(context.Background(), "classic-mug", "en")
		resB <- result{p, err}
	}()
	// let the second caller join the in-flight lookup
	time.Sleep(50 * time.Millisecond)

	cancelA()
	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Errorf("canceled caller err = %v, want context.Canceled", err)
	}
	close(release)

	got := <-resB
	if got.err != nil {
		t.Fatalf("waiting caller err = %v, want success", got.err)
	}
	if got.product == nil || got.product.CommercetoolsID != "prod-1" {
		t.Errorf("product = %+v, want prod-1", got.product)
	}
	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("backend calls = %d, want one shared lookup", calls)
	}
}

func TestFetchProductByID(t *testing.T) {
	client := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/demo/product-projections/prod-1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("localeProjection") != "de" {
			t.Errorf("localeProjection = %q", r.URL.Query().Get("localeProjection"))
		}
		writeJSON(t, w, http.StatusOK, sampleProjection())
	})

	product, err := client.FetchProductByID(t.Context(), "prod-1", "de")
	if err != nil {
		t.Fatalf("FetchProductByID: %v", err)
	}
	if product.Title != "Classic Mug" {
		t.Errorf("title = %q", product.Title)
	}
}
