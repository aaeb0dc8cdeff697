// Package miro is a client for the Miro REST API (v2), scoped to a
// single board.
//
// The access token is revealed exactly once, at construction, to build
// the Authorization header; it never appears in errors or logs.
package miro

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dkemmer/servicegate/internal/infrastructure/config"
)

// defaultBaseURL is the production Miro API endpoint.
const defaultBaseURL = "https://api.miro.com/v2"

// requestTimeout bounds a single API call when the caller's context
// carries no deadline of its own.
const requestTimeout = 30 * time.Second

// Client calls the Miro board API.
type Client struct {
	baseURL    string
	boardID    string
	authHeader string
	httpClient *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint (used by tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a board-scoped Miro client from validated configuration.
func New(cfg config.MiroConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		boardID:    cfg.BoardID,
		authHeader: "Bearer " + cfg.AccessToken.Reveal(),
		httpClient: &http.Client{Timeout: requestTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Item is a generic board item as returned by the items endpoints.
type Item struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Data     map[string]any `json:"data,omitempty"`
	Position *Position      `json:"position,omitempty"`
}

// Position is a board coordinate pair.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Card is a card item on the board.
type Card struct {
	ID   string         `json:"id"`
	Data map[string]any `json:"data,omitempty"`
}

// Connector is a connection between two board items.
type Connector struct {
	ID    string         `json:"id"`
	Shape string         `json:"shape,omitempty"`
	Style map[string]any `json:"style,omitempty"`
}

// CardSpec describes a card to create.
type CardSpec struct {
	Content  string
	Position Position
}

// listEnvelope is the common {"data": [...]} list response wrapper.
type listEnvelope[T any] struct {
	Data []T `json:"data"`
}

// BoardItems returns the items on the board, optionally filtered by
// item type.
func (c *Client) BoardItems(ctx context.Context, itemType string) ([]Item, error) {
	endpoint := fmt.Sprintf("/boards/%s/items", url.PathEscape(c.boardID))
	if itemType != "" {
		endpoint += "?type=" + url.QueryEscape(itemType)
	}

	var out listEnvelope[Item]
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// CreateCard creates a card on the board.
func (c *Client) CreateCard(ctx context.Context, content string, pos Position) (*Card, error) {
	endpoint := fmt.Sprintf("/boards/%s/cards", url.PathEscape(c.boardID))
	body := map[string]any{
		"data": map[string]any{
			"content":  content,
			"position": pos,
		},
	}

	var out Card
	if err := c.do(ctx, http.MethodPost, endpoint, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCard replaces the content of an existing card.
func (c *Client) UpdateCard(ctx context.Context, cardID, content string) (*Card, error) {
	endpoint := fmt.Sprintf("/boards/%s/cards/%s", url.PathEscape(c.boardID), url.PathEscape(cardID))
	body := map[string]any{
		"data": map[string]any{
			"content": content,
		},
	}

	var out Card
	if err := c.do(ctx, http.MethodPatch, endpoint, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteCard removes a card from the board.
func (c *Client) DeleteCard(ctx context.Context, cardID string) error {
	endpoint := fmt.Sprintf("/boards/%s/cards/%s", url.PathEscape(c.boardID), url.PathEscape(cardID))
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil)
}

// defaultConnectorStyle is applied when the caller passes no style.
var defaultConnectorStyle = map[string]any{
	"strokeColor": "#000000",
	"strokeWidth": 1,
	"strokeStyle": "normal",
}

// CreateConnector links two board items. Shape is one of "straight",
// "elbowed", "curved"; a nil style gets a plain black line.
func (c *Client) CreateConnector(ctx context.Context, startItemID, endItemID, shape string, style map[string]any) (*Connector, error) {
	if shape == "" {
		shape = "straight"
	}
	if style == nil {
		style = defaultConnectorStyle
	}

	endpoint := fmt.Sprintf("/boards/%s/connectors", url.PathEscape(c.boardID))
	body := map[string]any{
		"data": map[string]any{
			"startItem": map[string]any{"id": startItemID},
			"endItem":   map[string]any{"id": endItemID},
			"shape":     shape,
			"style":     style,
		},
	}

	var out Connector
	if err := c.do(ctx, http.MethodPost, endpoint, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Connectors lists the connectors on the board, optionally restricted
// to those touching one item.
func (c *Client) Connectors(ctx context.Context, itemID string) ([]Connector, error) {
	endpoint := fmt.Sprintf("/boards/%s/connectors", url.PathEscape(c.boardID))
	if itemID != "" {
		endpoint += "?item_id=" + url.QueryEscape(itemID)
	}

	var out listEnvelope[Connector]
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// UpdateConnector changes a connector's shape and/or style. Empty
// shape and nil style leave the respective attribute untouched.
func (c *Client) UpdateConnector(ctx context.Context, connectorID, shape string, style map[string]any) (*Connector, error) {
	data := map[string]any{}
	if shape != "" {
		data["shape"] = shape
	}
	if style != nil {
		data["style"] = style
	}

	endpoint := fmt.Sprintf("/boards/%s/connectors/%s", url.PathEscape(c.boardID), url.PathEscape(connectorID))
	body := map[string]any{"data": data}

	var out Connector
	if err := c.do(ctx, http.MethodPatch, endpoint, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteConnector removes a connector from the board.
func (c *Client) DeleteConnector(ctx context.Context, connectorID string) error {
	endpoint := fmt.Sprintf("/boards/%s/connectors/%s", url.PathEscape(c.boardID), url.PathEscape(connectorID))
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil)
}

// CreateRelatedCards creates the cards in order, connecting each to
// its predecessor. Creation stops at the first failure; cards already
// created are returned alongside the error.
func (c *Client) CreateRelatedCards(ctx context.Context, cards []CardSpec, shape string) ([]*Card, error) {
	created := make([]*Card, 0, len(cards))
	var previous *Card

	for i, spec := range cards {
		card, err := c.CreateCard(ctx, spec.Content, spec.Position)
		if err != nil {
			return created, fmt.Errorf("creating card %d: %w", i, err)
		}
		created = append(created, card)

		if previous != nil {
			if _, err := c.CreateConnector(ctx, previous.ID, card.ID, shape, nil); err != nil {
				return created, fmt.Errorf("connecting card %d: %w", i, err)
			}
		}
		previous = card
	}

	return created, nil
}

// do performs one API request. Non-2xx responses become errors carrying
// the method, path, and status, but never the response body or headers
// (either may echo credentials back).
func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.authHeader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: unexpected status %d", method, endpoint, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
