// Package client 是简历 HTTP API 的客户端，供 cvctl 使用并实现 autosave.Saver。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cvbuilder/internal/autosave"
	"cvbuilder/internal/resume"
)

const defaultTimeout = 15 * time.Second

// APIError 表示没有专门映射的非 2xx 响应。
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New 构造 API 客户端，baseURL 形如 http://localhost:8080。
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

func (c *Client) SetToken(token string) { c.token = token }

type TokenResponse struct {
	AccessToken        string `json:"access_token"`
	TokenType          string `json:"token_type"`
	ExpiresIn          int    `json:"expires_in"`
	MustChangePassword bool   `json:"must_change_password"`
}

// Login 用邮箱密码换取令牌，并保存 access token。
func (c *Client) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	var out TokenResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/v1/auth/login", body, &out); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	c.token = out.AccessToken
	return &out, nil
}

type CreateRequest struct {
	Title      string          `json:"title"`
	TemplateID string          `json:"template_id,omitempty"`
	Content    *resume.Content `json:"content,omitempty"`
}

func (c *Client) Create(ctx context.Context, req CreateRequest) (*resume.Document, error) {
	var doc resume.Document
	if err := c.do(ctx, http.MethodPost, "/v1/resumes", req, &doc); err != nil {
		return nil, fmt.Errorf("create resume: %w", err)
	}
	return &doc, nil
}

func (c *Client) List(ctx context.Context) ([]resume.Document, error) {
	var docs []resume.Document
	if err := c.do(ctx, http.MethodGet, "/v1/resumes", nil, &docs); err != nil {
		return nil, fmt.Errorf("list resumes: %w", err)
	}
	return docs, nil
}

func (c *Client) Get(ctx context.Context, id string) (*resume.Document, error) {
	var doc resume.Document
	if err := c.do(ctx, http.MethodGet, "/v1/resumes/"+id, nil, &doc); err != nil {
		return nil, fmt.Errorf("get resume %s: %w", id, err)
	}
	return &doc, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/v1/resumes/"+id, nil, nil); err != nil {
		return fmt.Errorf("delete resume %s: %w", id, err)
	}
	return nil
}

type autosaveBody struct {
	Title   *string         `json:"title,omitempty"`
	Content *resume.Content `json:"content,omitempty"`
	Version *int64          `json:"version,omitempty"`
}

// Autosave 发送一次条件写入：409 转为 *autosave.ConflictError，404 转为 autosave.ErrNotFound。
func (c *Client) Autosave(ctx context.Context, id string, req autosave.SaveRequest) (*resume.Document, error) {
	var doc resume.Document
	body := autosaveBody{Title: req.Title, Content: req.Content, Version: req.Version}
	if err := c.do(ctx, http.MethodPost, "/v1/resumes/"+id+"/autosave", body, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

type ExportResponse struct {
	ExportID string `json:"export_id"`
	TaskID   string `json:"task_id"`
}

// ExportStatus 描述导出任务的状态。
type ExportStatus struct {
	ID            string `json:"id"`
	ResumeID      string `json:"resume_id"`
	Mode          string `json:"mode"`
	Status        string `json:"status"`
	ResumeVersion int64  `json:"resume_version"`
	Error         string `json:"error,omitempty"`
}

func (c *Client) Export(ctx context.Context, id, mode string) (*ExportResponse, error) {
	var out ExportResponse
	if err := c.do(ctx, http.MethodPost, "/v1/resumes/"+id+"/export", map[string]string{"mode": mode}, &out); err != nil {
		return nil, fmt.Errorf("export resume %s: %w", id, err)
	}
	return &out, nil
}

func (c *Client) ExportStatus(ctx context.Context, exportID string) (*ExportStatus, error) {
	var out ExportStatus
	if err := c.do(ctx, http.MethodGet, "/v1/exports/"+exportID, nil, &out); err != nil {
		return nil, fmt.Errorf("export status %s: %w", exportID, err)
	}
	return &out, nil
}

func (c *Client) ExportLink(ctx context.Context, exportID string) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/exports/"+exportID+"/link", nil, &out); err != nil {
		return "", fmt.Errorf("export link %s: %w", exportID, err)
	}
	return out.URL, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
	var payload struct {
		Error          string `json:"error"`
		CurrentVersion *int64 `json:"current_version"`
	}
	_ = json.Unmarshal(raw, &payload)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return autosave.ErrNotFound
	case http.StatusConflict:
		if payload.CurrentVersion != nil {
			return &autosave.ConflictError{CurrentVersion: *payload.CurrentVersion}
		}
	}
	msg := payload.Error
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}

func IsNotFound(err error) bool { return errors.Is(err, autosave.ErrNotFound) }
