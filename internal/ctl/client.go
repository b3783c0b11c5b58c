package ctl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

// slowClient covers endpoints that may hit the network or run SGP4 sweeps
// server-side (TLE fetch, pass prediction).
var slowClient = &http.Client{Timeout: 60 * time.Second}

// doJSON performs one request against the daemon and decodes the JSON
// response into dst (which may be nil). Error responses carry the daemon's
// message when one is present in the body.
func doJSON(client *http.Client, method, baseURL, path string, body, dst any) error {
	url := strings.TrimRight(baseURL, "/") + path

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return responseError(resp, path)
	}
	if dst == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

// getJSON sends a GET request and decodes the JSON response into dst.
func getJSON(baseURL, path string, dst any) error {
	return doJSON(httpClient, http.MethodGet, baseURL, path, nil, dst)
}

// postJSON sends a POST request with a JSON body and decodes the response.
func postJSON(baseURL, path string, body, dst any) error {
	return doJSON(httpClient, http.MethodPost, baseURL, path, body, dst)
}

// getJSONSlow is getJSON with the long-timeout client, for pass prediction
// and TLE refresh endpoints.
func getJSONSlow(baseURL, path string, dst any) error {
	return doJSON(slowClient, http.MethodGet, baseURL, path, nil, dst)
}

// postJSONSlow is postJSON with the long-timeout client.
func postJSONSlow(baseURL, path string, body, dst any) error {
	return doJSON(slowClient, http.MethodPost, baseURL, path, body, dst)
}

// getRaw sends a GET request and returns the raw response body.
func getRaw(baseURL, path string) (int, []byte, error) {
	url := strings.TrimRight(baseURL, "/") + path
	resp, err := httpClient.Get(url)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, b, nil
}

// responseError turns a non-2xx response into an error, preferring the
// daemon's own error message when the body carries one.
func responseError(resp *http.Response, path string) error {
	b, _ := io.ReadAll(resp.Body)

	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(b, &payload); err == nil && payload.Error != "" {
		return fmt.Errorf("HTTP %s: %s", resp.Status, payload.Error)
	}
	if msg := strings.TrimSpace(string(b)); msg != "" {
		return fmt.Errorf("HTTP %s: %s", resp.Status, msg)
	}
	return fmt.Errorf("HTTP %s from %s", resp.Status, path)
}

// printJSON prints v as indented JSON to stdout.
func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
