package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the scorekeep HTTP API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a Client with the given request timeout.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type apiResponse struct {
	Success bool   `json:"success"`
	UID     string `json:"uid"`
	Pseudo  string `json:"pseudo"`
	Token   string `json:"token"`
	Error   string `json:"error"`
}

// StatusError is returned for any non-200 answer.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	var out map[string]string
	return c.do(ctx, http.MethodGet, "/healthz", nil, &out)
}

// Register creates the player's account and fills in UID and Token.
func (c *Client) Register(ctx context.Context, p *Player) error {
	var out apiResponse
	if err := c.do(ctx, http.MethodPost, "/register", p, &out); err != nil {
		return err
	}
	p.UID, p.Token = out.UID, out.Token
	return nil
}

// Login signs the player in and returns the pseudo the server reports.
func (c *Client) Login(ctx context.Context, p Player) (string, error) {
	body := map[string]string{"email": p.Email, "password": p.Password, "apiKey": c.apiKey}
	var out apiResponse
	if err := c.do(ctx, http.MethodPost, "/login", body, &out); err != nil {
		return "", err
	}
	return out.Pseudo, nil
}

// SubmitScore posts one score.
func (c *Client) SubmitScore(ctx context.Context, pseudo string, score float64) error {
	body := map[string]any{"pseudo": pseudo, "score": score, "apiKey": c.apiKey}
	var out apiResponse
	return c.do(ctx, http.MethodPost, "/score", body, &out)
}

// Leaderboard fetches GET /leaderboard.
func (c *Client) Leaderboard(ctx context.Context) ([]Entry, error) {
	var out []Entry
	if err := c.do(ctx, http.MethodGet, "/leaderboard", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var e apiResponse
		_ = json.Unmarshal(raw, &e)
		return &StatusError{Status: resp.StatusCode, Message: e.Error}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
