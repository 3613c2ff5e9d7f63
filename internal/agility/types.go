package agility

import (
	"encoding/json"
	"strings"
)

// ListQuery selects a page of a content list.
type ListQuery struct {
	ReferenceName    string
	Locale           string
	Take             int
	Skip             int
	Sort             string // e.g. "fields.postDate"
	Direction        string // "asc" or "desc"
	ContentLinkDepth int
}

// ContentList is one page of a content list.
type ContentList struct {
	Items      []ContentItem `json:"items"`
	TotalCount int           `json:"totalCount"`
}

// ContentItem is a CMS content item. Fields stay raw because their shape is
// defined per content model.
type ContentItem struct {
	ContentID  int                        `json:"contentID"`
	Properties Properties                 `json:"properties"`
	Fields     map[string]json.RawMessage `json:"fields"`
}

// Properties is the system metadata of a content item.
type Properties struct {
	State          int    `json:"state"`
	Modified       string `json:"modified"`
	VersionID      int    `json:"versionID"`
	ReferenceName  string `json:"referenceName"`
	DefinitionName string `json:"definitionName"`
	ItemOrder      int    `json:"itemOrder"`
}

// String returns a text field. Non-string JSON values come back in their
// raw form; missing and null fields are empty.
func (i ContentItem) String(name string) string {
	raw, ok := i.Fields[name]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// Item decodes a linked content item field. ok is false when the field is
// absent, null or not an item.
func (i ContentItem) Item(name string) (ContentItem, bool) {
	raw, ok := i.Fields[name]
	if !ok {
		return ContentItem{}, false
	}
	var linked ContentItem
	if err := json.Unmarshal(raw, &linked); err != nil || linked.Fields == nil {
		return ContentItem{}, false
	}
	return linked, true
}

// Image decodes an image field.
func (i ContentItem) Image(name string) *Image {
	raw, ok := i.Fields[name]
	if !ok {
		return nil
	}
	var img Image
	if err := json.Unmarshal(raw, &img); err != nil || img.URL == "" {
		return nil
	}
	return &img
}

// Image is a CMS image field.
type Image struct {
	Label    string `json:"label"`
	URL      string `json:"url"`
	Target   string `json:"target,omitempty"`
	Filesize int    `json:"filesize,omitempty"`
	Height   int    `json:"height,omitempty"`
	Width    int    `json:"width,omitempty"`
}

// Sitemap is the flat sitemap keyed by page path ("/blog/my-post").
type Sitemap map[string]SitemapNode

// SitemapNode is one entry of the flat sitemap. ContentID is set on dynamic
// pages generated from a content list.
type SitemapNode struct {
	Title     string  `json:"title"`
	Name      string  `json:"name"`
	PageID    int     `json:"pageID"`
	MenuText  string  `json:"menuText"`
	Visible   Visible `json:"visible"`
	Path      string  `json:"path"`
	Redirect  *Link   `json:"redirect"`
	IsFolder  bool    `json:"isFolder"`
	ContentID int     `json:"contentID,omitempty"`
}

type Visible struct {
	Menu    bool `json:"menu"`
	Sitemap bool `json:"sitemap"`
}

type Link struct {
	URL    string `json:"url"`
	Target string `json:"target"`
}

// Lookup finds a node by path, ignoring case and a trailing slash.
func (s Sitemap) Lookup(path string) (SitemapNode, bool) {
	if node, ok := s[path]; ok {
		return node, true
	}
	want := normalizePath(path)
	for p, node := range s {
		if normalizePath(p) == want {
			return node, true
		}
	}
	return SitemapNode{}, false
}

func normalizePath(p string) string {
	p = strings.ToLower(strings.TrimRight(p, "/"))
	if p == "" {
		return "/"
	}
	return p
}

// PathForContent returns the sitemap path of the dynamic page bound to
// contentID.
func (s Sitemap) PathForContent(contentID int) (string, bool) {
	for p, node := range s {
		if node.ContentID == contentID {
			return p, true
		}
	}
	return "", false
}

// Page is a CMS page with its module zones.
type Page struct {
	PageID       int                     `json:"pageID"`
	Name         string                  `json:"name"`
	Path         string                  `json:"path"`
	Title        string                  `json:"title"`
	MenuText     string                  `json:"menuText"`
	PageType     string                  `json:"pageType"`
	TemplateName string                  `json:"templateName"`
	SecurePage   bool                    `json:"securePage"`
	Zones        map[string][]ZoneModule `json:"zones"`
	SEO          json.RawMessage         `json:"seo,omitempty"`
}

// ZoneModule is a module placed in a page zone.
type ZoneModule struct {
	Module string          `json:"module"`
	Item   json.RawMessage `json:"item"`
}
