// Package wikidata is a thin client for the Wikidata SPARQL endpoint,
// used to seed document corpora from knowledge-graph concepts.
package wikidata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/Zereker/docstore/pkg/log"
)

const (
	// DefaultEndpoint is the public Wikidata query service.
	DefaultEndpoint = "https://query.wikidata.org/sparql"

	// entityPrefix is stripped from entity URIs to obtain bare Q-ids.
	entityPrefix = "http://www.wikidata.org/entity/"
)

// Wikidata concept (Q) identifiers.
const (
	ConceptPublicCompany = "Q891723"
	ConceptCountry       = "Q6256"
)

// Wikidata property (P) identifiers.
const (
	PropertyInstanceOf = "P31"
	PropertyCountry    = "P17"
)

// Entity is one item returned by an instance query.
type Entity struct {
	// URI is the full entity URI.
	URI string `json:"uri"`

	// ID is the bare Q-identifier.
	ID string `json:"id"`
}

// Client queries the Wikidata SPARQL endpoint over HTTP.
type Client struct {
	logger   *slog.Logger
	endpoint string
	http     *http.Client
}

// NewClient creates a client for the given endpoint. An empty endpoint
// uses the public query service.
func NewClient(endpoint string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		logger:   log.Logger("wikidata"),
		endpoint: endpoint,
		http:     &http.Client{Timeout: 60 * time.Second},
	}
}

// SPARQL runs a raw SPARQL query and returns the JSON response body.
func (c *Client) SPARQL(ctx context.Context, query string) (json.RawMessage, error) {
	u := fmt.Sprintf("%s?query=%s", c.endpoint, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to build sparql request")
	}
	req.Header.Set("Accept", "application/sparql-results+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.WithMessage(err, "sparql request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to read sparql response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("sparql request failed: status %d", resp.StatusCode)
	}
	return body, nil
}

// Instances returns the entities holding the given property with the
// given concept as value, e.g. every instance-of country.
func (c *Client) Instances(ctx context.Context, property, concept string) ([]Entity, error) {
	query := fmt.Sprintf(`
SELECT ?item
WHERE
{
  ?item wdt:%s wd:%s.
}
`, property, concept)

	c.logger.Debug("running instance query", "property", property, "concept", concept)

	raw, err := c.SPARQL(ctx, query)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Results struct {
			Bindings []struct {
				Item struct {
					Value string `json:"value"`
				} `json:"item"`
			} `json:"bindings"`
		} `json:"results"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, errors.WithMessage(err, "failed to parse sparql response")
	}

	entities := make([]Entity, 0, len(parsed.Results.Bindings))
	for _, binding := range parsed.Results.Bindings {
		uri := binding.Item.Value
		entities = append(entities, Entity{
			URI: uri,
			ID:  strings.TrimPrefix(uri, entityPrefix),
		})
	}
	return entities, nil
}
