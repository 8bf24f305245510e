package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

// Thingiverse searches thingiverse.com; it needs an app access token
type Thingiverse struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func (t *Thingiverse) Name() string { return "Thingiverse" }

func (t *Thingiverse) Search(ctx context.Context, query string) ([]Result, error) {
	if t.Token == "" {
		return nil, errNoToken
	}
	var data struct {
		Hits []struct {
			ID          json.RawMessage `json:"id"`
			Name        string          `json:"name"`
			Description string          `json:"description"`
			Thumbnail   string          `json:"thumbnail"`
			PublicURL   string          `json:"public_url"`
			FilesURL    string          `json:"files_url"`
			Creator     struct {
				Name string `json:"name"`
			} `json:"creator"`
		} `json:"hits"`
	}
	u := strings.TrimRight(t.BaseURL, "/") + "/search/" + url.PathEscape(query) + "?" + url.Values{"access_token": {t.Token}}.Encode()
	if err := getJSON(ctx, t.Client, u, &data); err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(data.Hits))
	for _, h := range data.Hits {
		out = append(out, Result{
			ID:          idString(h.ID),
			Name:        h.Name,
			Description: h.Description,
			Thumbnail:   h.Thumbnail,
			URL:         h.PublicURL,
			FileURL:     h.FilesURL,
			Source:      t.Name(),
			Creator:     orUnknown(h.Creator.Name),
		})
	}
	return out, nil
}

// Printables searches printables.com through its public API
type Printables struct {
	BaseURL string
	Client  *http.Client
}

func (p *Printables) Name() string { return "Printables" }

func (p *Printables) Search(ctx context.Context, query string) ([]Result, error) {
	var data struct {
		Items []struct {
			ID           json.RawMessage `json:"id"`
			Name         string          `json:"name"`
			Summary      string          `json:"summary"`
			ThumbnailURL string          `json:"thumbnail_url"`
			DownloadURL  string          `json:"download_url"`
			Image        struct {
				URL string `json:"url"`
			} `json:"image"`
			User struct {
				Name string `json:"name"`
			} `json:"user"`
		} `json:"items"`
	}
	u := strings.TrimRight(p.BaseURL, "/") + "/v1/search?" + url.Values{"q": {query}, "limit": {"10"}}.Encode()
	if err := getJSON(ctx, p.Client, u, &data); err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(data.Items))
	for _, it := range data.Items {
		id := idString(it.ID)
		thumb := it.Image.URL
		if thumb == "" {
			thumb = it.ThumbnailURL
		}
		out = append(out, Result{
			ID:          id,
			Name:        it.Name,
			Description: it.Summary,
			Thumbnail:   thumb,
			URL:         "https://www.printables.com/model/" + id,
			FileURL:     it.DownloadURL,
			Source:      p.Name(),
			Creator:     orUnknown(it.User.Name),
		})
	}
	return out, nil
}
