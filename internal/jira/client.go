package jira

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// searchPageSize bounds the dedup search; filtering happens client-side so
// only one page is ever fetched.
const searchPageSize = 100

// Client talks to the Jira Cloud REST v3 API (plus the service desk API for
// the setup wizard). Auth is a pre-encoded base64 email:api_token pair sent
// as a basic-auth header.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

func NewClient(baseURL, authToken string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authToken:  authToken,
		httpClient: &http.Client{},
	}
}

func (c *Client) newRequest(method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrapf(err, "build %s request for %s", method, path)
	}
	req.Header.Set("Authorization", "Basic "+c.authToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) getJSON(path string) ([]byte, error) {
	req, err := c.newRequest(http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req, path)
}

func (c *Client) postJSON(path string, v interface{}) ([]byte, error) {
	bs, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrapf(err, "marshal request body for %s", path)
	}
	req, err := c.newRequest(http.MethodPost, path, bytes.NewReader(bs))
	if err != nil {
		return nil, err
	}
	return c.do(req, path)
}

func (c *Client) do(req *http.Request, path string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "request %s", path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "read response from %s", path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apiError(path, resp.StatusCode, body)
	}
	return body, nil
}

// apiError surfaces the structured failure detail Jira puts in the response
// body (errorMessages plus per-field errors) when it parses, else the raw
// response text.
func apiError(path string, code int, body []byte) error {
	var parts []string
	for _, m := range gjson.GetBytes(body, "errorMessages").Array() {
		parts = append(parts, m.String())
	}
	gjson.GetBytes(body, "errors").ForEach(func(k, v gjson.Result) bool {
		parts = append(parts, k.String()+": "+v.String())
		return true
	})

	detail := strings.TrimSpace(string(body))
	if len(parts) > 0 {
		detail = strings.Join(parts, "; ")
	}
	return errors.Errorf("jira request %s failed with status %d: %s", path, code, detail)
}
