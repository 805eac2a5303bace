package catalog

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"challenge-reward-system/models"
	"challenge-reward-system/utils"
)

// HTTPCatalog reads the backend's public challenge routes.
type HTTPCatalog struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPCatalog(baseURL string, client *http.Client) *HTTPCatalog {
	return &HTTPCatalog{BaseURL: strings.TrimRight(baseURL, "/"), Client: client}
}

func (h *HTTPCatalog) List(ctx context.Context, filter Filter) ([]models.Challenge, error) {
	q := url.Values{}
	if filter.Category != "" {
		q.Set("category", filter.Category)
	}
	if filter.Difficulty != "" {
		q.Set("difficulty", string(filter.Difficulty))
	}
	if filter.Query != "" {
		q.Set("search", filter.Query)
	}
	u := h.BaseURL + "/api/challenges/public"
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var list []models.Challenge
	if err := utils.DoJSON(ctx, h.Client, http.MethodGet, u, "", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (h *HTTPCatalog) Get(ctx context.Context, id string) (*models.Challenge, error) {
	var c models.Challenge
	err := utils.DoJSON(ctx, h.Client, http.MethodGet, h.BaseURL+"/api/challenges/public/"+url.PathEscape(id), "", nil, &c)
	if utils.StatusOf(err) == http.StatusNotFound {
		return nil, ErrChallengeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
