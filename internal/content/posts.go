package content

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"storefront/internal/agility"
)

const (
	postsReferenceName = "posts"
	excerptLength      = 250
	postDateLayout     = "Jan. 02, 2006"
	defaultCategory    = "Uncategorized"
)

var (
	htmlTag    = regexp.MustCompile(`<[^>]*>`)
	whitespace = regexp.MustCompile(`\s+`)
)

// PostQuery selects a page of posts.
type PostQuery struct {
	Sitemap string
	Locale  string
	Skip    int
	Take    int
}

// PostSummary is a post as shown in listings.
type PostSummary struct {
	ContentID       int            `json:"contentID"`
	Title           string         `json:"title"`
	Date            string         `json:"date"`
	URL             string         `json:"url"`
	Category        string         `json:"category"`
	Image           *agility.Image `json:"image"`
	ProductImage    *agility.Image `json:"productImage"`
	Author          string         `json:"author"`
	AuthorImage     *agility.Image `json:"authorImage"`
	Excerpt         string         `json:"excerpt"`
	FeaturedProduct string         `json:"featuredProduct,omitempty"`
}

// PostListing is a page of post summaries.
type PostListing struct {
	TotalCount int           `json:"totalCount"`
	Posts      []PostSummary `json:"posts"`
}

// ListPosts returns posts newest first with URLs resolved from the sitemap.
// Featured product images are looked up concurrently; a failed lookup leaves
// productImage empty.
func (s *Service) ListPosts(ctx context.Context, q PostQuery) (*PostListing, error) {
	locale := s.locale(q.Locale)
	channel := q.Sitemap
	if channel == "" {
		channel = s.cfg.Sitemap
	}
	if q.Take <= 0 {
		q.Take = 10
	}

	var (
		sitemap agility.Sitemap
		list    *agility.ContentList
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sitemap, err = s.cms.GetSitemapFlat(gctx, channel, locale)
		if err != nil {
			return sitemapError(channel, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		list, err = s.cms.GetContentList(gctx, agility.ListQuery{
			ReferenceName:    postsReferenceName,
			Locale:           locale,
			Take:             q.Take,
			Skip:             q.Skip,
			Sort:             "fields.postDate",
			Direction:        "desc",
			ContentLinkDepth: 2,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("loading post listing: %w", err)
	}

	posts := make([]PostSummary, len(list.Items))
	pg, pctx := errgroup.WithContext(ctx)
	for i, item := range list.Items {
		posts[i] = s.summarize(item, sitemap, locale)

		ref := parseFeaturedProduct(item.Fields["featuredProduct"])
		switch {
		case ref.image != nil:
			posts[i].ProductImage = ref.image
		case ref.slug != "":
			pg.Go(func() error {
				posts[i].ProductImage = imageFromProduct(s.productBySlug(pctx, ref.slug, locale))
				return nil
			})
		}
	}
	pg.Wait()

	return &PostListing{TotalCount: list.TotalCount, Posts: posts}, nil
}

func (s *Service) summarize(item agility.ContentItem, sitemap agility.Sitemap, locale string) PostSummary {
	post := PostSummary{
		ContentID:       item.ContentID,
		Title:           item.String("heading"),
		Date:            FormatPostDate(item.String("postDate")),
		URL:             "#",
		Category:        defaultCategory,
		Image:           item.Image("image"),
		Excerpt:         Excerpt(item.String("content")),
		FeaturedProduct: item.String("featuredProduct"),
	}

	if path, ok := sitemap.PathForContent(item.ContentID); ok {
		post.URL = path
	}
	if locale != s.cfg.DefaultLocale {
		post.URL = "/" + locale + post.URL
	}

	if cat, ok := item.Item("category"); ok {
		if name := cat.String("name"); name != "" {
			post.Category = name
		}
	}
	if author, ok := item.Item("author"); ok {
		post.Author = author.String("name")
		post.AuthorImage = author.Image("headShot")
	}
	return post
}

// FormatPostDate renders a CMS date as "Jan. 02, 2006". Unparseable dates
// render empty.
func FormatPostDate(raw string) string {
	if raw == "" {
		return ""
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(postDateLayout)
		}
	}
	return ""
}

// Excerpt strips HTML tags and shortens the text to at most 250 characters,
// ending on the last full sentence when there is one.
func Excerpt(html string) string {
	text := []rune(htmlTag.ReplaceAllString(html, ""))
	if len(text) <= excerptLength {
		return string(text)
	}
	for i := excerptLength; i >= 0; i-- {
		if text[i] == '.' {
			return string(text[:i+1])
		}
	}
	return string(text[:excerptLength]) + "..."
}

type productRef struct {
	slug  string
	image *agility.Image
}

// parseFeaturedProduct reads a featured product field. The field holds either
// a JSON string (an object with path or slug, or a plain product name), or a
// linked product content item (single or list).
func parseFeaturedProduct(raw json.RawMessage) productRef {
	if len(raw) == 0 || string(raw) == "null" {
		return productRef{}
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if text == "" {
			return productRef{}
		}
		if slug, isJSON := ProductSlugFromField(text); isJSON {
			return productRef{slug: slug}
		}
		return productRef{slug: NormalizeSlug(text)}
	}

	var items []agility.ContentItem
	if err := json.Unmarshal(raw, &items); err == nil {
		if len(items) > 0 {
			return productRef{image: items[0].Image("featuredImage")}
		}
		return productRef{}
	}

	var item agility.ContentItem
	if err := json.Unmarshal(raw, &item); err == nil && item.Fields != nil {
		return productRef{image: item.Image("featuredImage")}
	}
	return productRef{}
}

// ProductSlugFromField extracts the product slug from a CMS product field
// holding JSON like {"id":"…","path":"ben-pillow-cover","sku":"…"}. isJSON
// is false when value is not JSON at all; slug is empty when the JSON names
// no path or slug.
func ProductSlugFromField(value string) (slug string, isJSON bool) {
	if !json.Valid([]byte(value)) {
		return "", false
	}
	var ref struct {
		Path string `json:"path"`
		Slug string `json:"slug"`
	}
	if err := json.Unmarshal([]byte(value), &ref); err != nil {
		return "", true
	}
	if ref.Path != "" {
		return ref.Path, true
	}
	return ref.Slug, true
}

// NormalizeSlug lowercases a product name and joins words with dashes.
func NormalizeSlug(name string) string {
	return whitespace.ReplaceAllString(strings.ToLower(name), "-")
}
