package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// TokenSource supplies the bearer token of the current session.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client talks to the sync backend. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

func NewClient(baseURL string, httpClient *http.Client, tokens TokenSource) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient, tokens: tokens}
}

// call performs one request and decodes the envelope into T. Mutating requests
// fail with UNAUTHORIZED before any network traffic when there is no usable token.
func call[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any) (T, error) {
	var zero T

	token, err := c.tokens.Token(ctx)
	if err != nil && method != http.MethodGet {
		return zero, NewError(CodeUnauthorized, "no valid session: %v", err)
	}

	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return zero, NewError(CodeValidation, "encoding request: %v", err)
		}

		reader = bytes.NewReader(payload)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return zero, NewError(CodeInternal, "building request: %v", err)
	}

	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return zero, NewError(CodeNetwork, "%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var result Result[T]
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return zero, NewError(codeForStatus(resp.StatusCode), "%s %s: %s", method, path, resp.Status)
		}

		if errors.Is(err, io.EOF) {
			return zero, NewError(CodeDecode, "%s %s: empty response", method, path)
		}

		return zero, NewError(CodeDecode, "%s %s: %v", method, path, err)
	}

	if !result.Success && result.Error == nil {
		result.Error = NewError(codeForStatus(resp.StatusCode), "%s %s: %s", method, path, resp.Status)
	}

	return result.Unwrap()
}

func codeForStatus(status int) Code {
	switch status {
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return CodeValidation
	case http.StatusConflict:
		return CodeConflict
	}

	return CodeInternal
}

func walletPath(parts ...string) string {
	return "/api/v1/wallets" + joinPath(parts)
}

func transactionsPath(walletID string, parts ...string) string {
	return fmt.Sprintf("/api/v1/wallets/%s/transactions", url.PathEscape(walletID)) + joinPath(parts)
}

func joinPath(parts []string) string {
	var b strings.Builder

	for _, p := range parts {
		b.WriteString("/")
		b.WriteString(url.PathEscape(p))
	}

	return b.String()
}
