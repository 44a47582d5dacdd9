package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/google/uuid"

	"github.com/JKeiyuru/cornells-sub002/internal/models"
)

type Config struct {
	URL      string
	User     string
	Password string
	Index    string
}

// Client keeps the active catalog mirrored in one Elasticsearch index.
type Client struct {
	es    *elasticsearch.Client
	index string
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: new client: %w", err)
	}

	res, err := es.Info(es.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError("info", res.Status(), res.Body)
	}

	index := cfg.Index
	if index == "" {
		index = "products"
	}
	return &Client{es: es, index: index}, nil
}

func responseError(op, status string, body io.Reader) error {
	msg, _ := io.ReadAll(io.LimitReader(body, 512))
	return fmt.Errorf("elasticsearch: %s: %s: %s", op, status, strings.TrimSpace(string(msg)))
}

type productDoc struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Brand       string   `json:"brand"`
	Categories  []string `json:"categories"`
	Price       float64  `json:"price"`
	IsFeatured  bool     `json:"isFeatured"`
}

// IndexProduct upserts the product, or removes it when it is no longer active.
func (c *Client) IndexProduct(ctx context.Context, p *models.Product) error {
	if !p.IsActive {
		return c.DeleteProduct(ctx, p.ID)
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(productDoc{
		Title:       p.Title,
		Description: p.Description,
		Brand:       p.Brand,
		Categories:  p.Categories,
		Price:       p.EffectivePrice(),
		IsFeatured:  p.IsFeatured,
	}); err != nil {
		return err
	}

	res, err := c.es.Index(c.index, &buf,
		c.es.Index.WithContext(ctx),
		c.es.Index.WithDocumentID(p.ID.String()),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch: index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index", res.Status(), res.Body)
	}
	return nil
}

func (c *Client) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	res, err := c.es.Delete(c.index, id.String(), c.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch: delete: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return responseError("delete", res.Status(), res.Body)
	}
	return nil
}

// Search returns matching product ids in relevance order.
func (c *Client) Search(ctx context.Context, query string, from, size int) (int64, []uuid.UUID, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"title^3", "brand^2", "categories", "description"},
				"fuzziness": "AUTO",
			},
		},
		"from":    from,
		"size":    size,
		"_source": false,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, err
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("elasticsearch: search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, responseError("search", res.Status(), res.Body)
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("elasticsearch: decode: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		id, err := uuid.Parse(h.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return r.Hits.Total.Value, ids, nil
}
