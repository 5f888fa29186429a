package chloris

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
)

// apiRequest performs a bearer-authenticated JSON request and returns the
// response status and body. Transport failures are reported as api kind
// errors; non-success statuses are left to the caller.
func (c *Client) apiRequest(ctx context.Context, method, url string, body any, op string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, ErrAPI(op, 0, "").WithCause(err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, ErrAPI(op, 0, "").WithCause(err)
	}
	token, err := c.identityToken(ctx)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, ErrAPI(op, 0, "").WithCause(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, ErrAPI(op, resp.StatusCode, "").WithCause(err)
	}
	return resp.StatusCode, data, nil
}

// apiJSON performs a bearer-authenticated JSON request, requires a 200
// response, and decodes the body into out when non-nil.
func (c *Client) apiJSON(ctx context.Context, method, url string, body, out any, op string) error {
	status, data, err := c.apiRequest(ctx, method, url, body, op)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return ErrAPI(op, status, string(data))
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return ErrAPI(op, status, string(data)).WithCause(err)
		}
	}
	return nil
}
