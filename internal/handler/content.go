package handler

import (
	"net/http"
	"strconv"

	"storefront/internal/content"
	"storefront/internal/model"
)

var errContentUnavailable = &model.APIError{
	Code:       "CONTENT_UNAVAILABLE",
	Message:    "content delivery is not configured",
	StatusCode: http.StatusServiceUnavailable,
	Err:        model.ErrConfiguration,
}

// handlePage resolves a CMS page by path.
// GET /api/pages/{path...}?locale=
func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	if h.content == nil {
		h.writeError(w, errContentUnavailable)
		return
	}

	page, err := h.content.ResolvePage(r.Context(), "/"+r.PathValue("path"), r.URL.Query().Get("locale"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, page)
}

// handlePosts lists blog posts.
// GET /api/posts?sitemap=&locale=&skip=&take=
func (h *Handler) handlePosts(w http.ResponseWriter, r *http.Request) {
	if h.content == nil {
		h.writeError(w, errContentUnavailable)
		return
	}

	q := r.URL.Query()
	pq := content.PostQuery{
		Sitemap: q.Get("sitemap"),
		Locale:  q.Get("locale"),
	}
	if v := q.Get("skip"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.writeError(w, model.NewValidationError("skip", "must be a non-negative integer"))
			return
		}
		pq.Skip = n
	}
	if v := q.Get("take"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.writeError(w, model.NewValidationError("take", "must be a positive integer"))
			return
		}
		pq.Take = n
	}

	listing, err := h.content.ListPosts(r.Context(), pq)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, listing)
}

// handleFeaturedProducts loads a featured products module.
// GET /api/featured-products/{contentID}?locale=
func (h *Handler) handleFeaturedProducts(w http.ResponseWriter, r *http.Request) {
	if h.content == nil {
		h.writeError(w, errContentUnavailable)
		return
	}

	contentID, err := strconv.Atoi(r.PathValue("contentID"))
	if err != nil || contentID <= 0 {
		h.writeError(w, model.NewValidationError("contentID", "must be a positive integer"))
		return
	}

	module, err := h.content.FeaturedProducts(r.Context(), contentID, r.URL.Query().Get("locale"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, module)
}
