package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/xxxsen/bmark/internal/model"
	"github.com/xxxsen/bmark/internal/pkg/response"
)

const apiPrefix = "/api/v1"

var ErrAIUnavailable = errors.New("ai tag suggestion not configured")

// Client talks to the bmark API. It implements board.Storage; bookmark
// calls are scoped to the bearer token's owner by the server.
type Client struct {
	server string
	http   *http.Client

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

func New(server string, opts ...Option) *Client {
	c := &Client{
		server: strings.TrimRight(strings.TrimSpace(server), "/"),
		http:   &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Server() string {
	return c.server
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

type Properties struct {
	Properties     map[string]bool `json:"properties"`
	OAuthProviders []string        `json:"oauth_providers"`
	Tags           []model.TagInfo `json:"tags"`
	FaviconBase    string          `json:"favicon_base"`
}

type AuthResult struct {
	Token string         `json:"token"`
	User  model.Identity `json:"user"`
}

type ImportResult struct {
	Total   int `json:"total"`
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
}

func (c *Client) Properties(ctx context.Context) (*Properties, error) {
	var out Properties
	if err := c.do(ctx, http.MethodGet, "/properties", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, email, password string) (*AuthResult, error) {
	return c.authenticate(ctx, "/auth/register", email, password)
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	return c.authenticate(ctx, "/auth/login", email, password)
}

func (c *Client) authenticate(ctx context.Context, path, email, password string) (*AuthResult, error) {
	var out AuthResult
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

func (c *Client) Session(ctx context.Context) (*model.Identity, error) {
	var out struct {
		User model.Identity `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/session", nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// OAuthURL asks the server for the provider consent URL. The provider
// redirects back to the server, which then redirects to redirect with
// either token or error in the query.
func (c *Client) OAuthURL(ctx context.Context, provider, redirect string) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	path := "/auth/oauth/" + url.PathEscape(provider) + "/url?redirect=" + url.QueryEscape(redirect)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

func (c *Client) List(ctx context.Context, ownerID string) ([]model.Bookmark, error) {
	var out struct {
		Bookmarks []model.Bookmark `json:"bookmarks"`
	}
	if err := c.do(ctx, http.MethodGet, "/bookmarks", nil, &out); err != nil {
		return nil, err
	}
	return out.Bookmarks, nil
}

func (c *Client) Insert(ctx context.Context, ownerID string, fields model.BookmarkFields) (*model.Bookmark, error) {
	return c.writeBookmark(ctx, http.MethodPost, "/bookmarks", fields)
}

func (c *Client) Update(ctx context.Context, id string, fields model.BookmarkFields) (*model.Bookmark, error) {
	return c.writeBookmark(ctx, http.MethodPut, "/bookmarks/"+url.PathEscape(id), fields)
}

func (c *Client) writeBookmark(ctx context.Context, method, path string, fields model.BookmarkFields) (*model.Bookmark, error) {
	var out struct {
		Bookmark model.Bookmark `json:"bookmark"`
	}
	if err := c.do(ctx, method, path, fields, &out); err != nil {
		return nil, err
	}
	return &out.Bookmark, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/bookmarks/"+url.PathEscape(id), nil, nil)
}

func (c *Client) SuggestTag(ctx context.Context, title, link, note string) (model.Tag, error) {
	var out struct {
		Tag model.Tag `json:"tag"`
	}
	body := map[string]string{"title": title, "url": link, "note": note}
	if err := c.do(ctx, http.MethodPost, "/ai/suggest-tag", body, &out); err != nil {
		return model.TagNone, err
	}
	return out.Tag, nil
}

// Export downloads the caller's bookmarks. Success is a file attachment,
// failure a regular envelope.
func (c *Client) Export(ctx context.Context, format string) (*ExportFile, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/export?format="+url.QueryEscape(format), nil, "")
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	disposition := resp.Header.Get("Content-Disposition")
	if disposition == "" {
		return nil, decodeEnvelope(resp.StatusCode, data, nil)
	}
	name := "bookmarks"
	if _, params, err := mime.ParseMediaType(disposition); err == nil && params["filename"] != "" {
		name = params["filename"]
	}
	return &ExportFile{Name: name, ContentType: resp.Header.Get("Content-Type"), Data: data}, nil
}

// Import uploads a Netscape bookmark file as the multipart field "file".
func (c *Client) Import(ctx context.Context, filename string, r io.Reader) (*ImportResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/import", &buf, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}
	var out ImportResult
	if err := c.send(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
		contentType = "application/json"
	}
	req, err := c.newRequest(ctx, method, path, reader, contentType)
	if err != nil {
		return err
	}
	return c.send(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.server+apiPrefix+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) send(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	return decodeEnvelope(resp.StatusCode, data, out)
}

func decodeEnvelope(status int, data []byte, out interface{}) error {
	env, err := response.Decode(data)
	if err != nil {
		return fmt.Errorf("unexpected response (status %d): %w", status, err)
	}
	if env.Code != 0 {
		return &APIError{Code: env.Code, Msg: env.Msg}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}
