// Package search keeps an Elasticsearch index of the catalog.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/teslix_shop/internal/models"
)

type Config struct {
	URL      string
	Username string
	Password string
	Index    string
}

type ESIndex struct {
	client *elasticsearch.Client
	index  string
}

type document struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Price       string `json:"price"`
}

func NewESIndex(ctx context.Context, cfg Config) (*ESIndex, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch info: %s", res.Status())
	}

	return &ESIndex{client: client, index: cfg.Index}, nil
}

func (ix *ESIndex) Index(ctx context.Context, p models.Product) error {
	body, err := json.Marshal(document{
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
	})
	if err != nil {
		return err
	}

	res, err := ix.client.Index(
		ix.index,
		bytes.NewReader(body),
		ix.client.Index.WithDocumentID(strconv.FormatUint(uint64(p.ID), 10)),
		ix.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index product %d: %w", p.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index product %d: %s", p.ID, res.Status())
	}
	return nil
}

func (ix *ESIndex) Remove(ctx context.Context, id uint) error {
	res, err := ix.client.Delete(ix.index, strconv.FormatUint(uint64(id), 10), ix.client.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("remove product %d: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("remove product %d: %s", id, res.Status())
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search returns matching product ids ordered by relevance.
func (ix *ESIndex) Search(ctx context.Context, q string, offset, limit int) (int64, []uint, error) {
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     q,
				"fields":    []string{"name^3", "slug^2", "description"},
				"fuzziness": "AUTO",
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return 0, nil, err
	}

	res, err := ix.client.Search(
		ix.client.Search.WithContext(ctx),
		ix.client.Search.WithIndex(ix.index),
		ix.client.Search.WithBody(bytes.NewReader(body)),
		ix.client.Search.WithFrom(offset),
		ix.client.Search.WithSize(limit),
		ix.client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search products: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		return 0, nil, fmt.Errorf("search products: %s: %s", res.Status(), raw)
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return 0, nil, fmt.Errorf("decode search response: %w", err)
	}

	ids := make([]uint, 0, len(sr.Hits.Hits))
	for _, h := range sr.Hits.Hits {
		id, err := strconv.ParseUint(h.ID, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(id))
	}
	return sr.Hits.Total.Value, ids, nil
}
