// Package api is the typed client for the QueryDesk platform REST API.
// Every call goes through the {code, message, data} response envelope;
// callers receive the unwrapped payload or a *api.Error.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"querydesk/internal/apis/dtos"
	"querydesk/internal/models"
)

type Client struct {
	baseURL   string
	authToken string
	http      *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// SetToken installs the bearer token used for subsequent requests.
func (c *Client) SetToken(token string) {
	c.authToken = token
}

func (c *Client) get(endpoint string) *httpRequest {
	return newHTTPRequest(c.http, http.MethodGet, c.baseURL, endpoint).Auth(c.authToken)
}

func (c *Client) post(endpoint string) *httpRequest {
	return newHTTPRequest(c.http, http.MethodPost, c.baseURL, endpoint).Auth(c.authToken)
}

func (c *Client) put(endpoint string) *httpRequest {
	return newHTTPRequest(c.http, http.MethodPut, c.baseURL, endpoint).Auth(c.authToken)
}

func (c *Client) delete(endpoint string) *httpRequest {
	return newHTTPRequest(c.http, http.MethodDelete, c.baseURL, endpoint).Auth(c.authToken)
}

// Login exchanges credentials for an access token. The token is not
// installed on the client; the auth layer decides what to do with it.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	body := dtos.LoginRequest{Username: username, Password: password}
	var res dtos.LoginResponse
	if err := c.post("/api/v1/auth/login").Json(body).Do(ctx, &res); err != nil {
		return "", err
	}
	return res.Token, nil
}

func (c *Client) Register(ctx context.Context, username, password string) error {
	body := dtos.RegisterRequest{Username: username, Password: password}
	return c.post("/api/v1/auth/register").Json(body).Do(ctx, nil)
}

func (c *Client) Me(ctx context.Context) (models.User, error) {
	var user models.User
	err := c.get("/api/v1/users/me").Do(ctx, &user)
	return user, err
}

func (c *Client) CheckUsername(ctx context.Context, username string) (bool, error) {
	var res dtos.CheckUsernameResponse
	err := c.get("/api/v1/users/check-username/" + username).Do(ctx, &res)
	return res.Exists, err
}

func (c *Client) OwnedDataSources(ctx context.Context) ([]models.DataSource, error) {
	var sources []models.DataSource
	err := c.get("/api/v1/data-sources/owned").Do(ctx, &sources)
	return sources, err
}

func (c *Client) AvailableDataSources(ctx context.Context) ([]models.DataSource, error) {
	var sources []models.DataSource
	err := c.get("/api/v1/data-sources/available").Do(ctx, &sources)
	return sources, err
}

func (c *Client) CreateDataSource(ctx context.Context, req dtos.CreateDataSourceRequest) (models.DataSource, error) {
	var created models.DataSource
	err := c.post("/api/v1/data-sources").Json(req).Do(ctx, &created)
	return created, err
}

func (c *Client) DataSource(ctx context.Context, id string) (models.DataSource, error) {
	var source models.DataSource
	err := c.get("/api/v1/data-sources/" + id).Do(ctx, &source)
	return source, err
}

func (c *Client) UpdateDataSource(ctx context.Context, id string, req dtos.UpdateDataSourceRequest) (models.DataSource, error) {
	var updated models.DataSource
	err := c.put("/api/v1/data-sources/" + id).Json(req).Do(ctx, &updated)
	return updated, err
}

func (c *Client) DeleteDataSource(ctx context.Context, id string) error {
	return c.delete("/api/v1/data-sources/" + id).Do(ctx, nil)
}

func (c *Client) Owners(ctx context.Context, sourceID string) ([]models.Owner, error) {
	var owners []models.Owner
	err := c.get("/api/v1/data-sources/" + sourceID + "/owners").Do(ctx, &owners)
	return owners, err
}

func (c *Client) AddOwner(ctx context.Context, sourceID, username string) (models.Owner, error) {
	body := dtos.AddOwnerRequest{Username: username}
	var owner models.Owner
	err := c.post("/api/v1/data-sources/" + sourceID + "/owners").Json(body).Do(ctx, &owner)
	return owner, err
}

func (c *Client) RemoveOwner(ctx context.Context, sourceID string, ownerID int64) error {
	return c.delete(fmt.Sprintf("/api/v1/data-sources/%s/owners/%d", sourceID, ownerID)).Do(ctx, nil)
}

func (c *Client) Suggestions(ctx context.Context, sourceID string) ([]string, error) {
	var res dtos.SuggestionsResponse
	err := c.get("/api/v1/chat/suggestions/" + sourceID).Do(ctx, &res)
	return res.Suggestions, err
}

// Query sends a natural-language question for a data source. The
// translation to SQL happens entirely on the backend.
func (c *Client) Query(ctx context.Context, sourceID, question string) (dtos.QueryResponse, error) {
	body := dtos.QueryRequest{Question: question}
	var res dtos.QueryResponse
	err := c.post("/api/v1/data-sources/" + sourceID + "/query").Json(body).Do(ctx, &res)
	return res, err
}

// Connect sends credentials through the legacy connect-and-describe
// flow and returns the discovered schema.
func (c *Client) Connect(ctx context.Context, req dtos.ConnectRequest) (*models.Schema, error) {
	var schema models.Schema
	if err := c.post("/db/connect").Json(req).Do(ctx, &schema); err != nil {
		return nil, err
	}
	return &schema, nil
}
