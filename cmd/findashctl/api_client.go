package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/domain"
)

// apiError is a non-2xx answer of the API.
type apiError struct {
	Status int
	Body   domain.ErrorResponse
	Raw    string
}

func (e *apiError) Error() string {
	if e.Body.Code != "" {
		return fmt.Sprintf("API error (%d, %s): %s", e.Status, e.Body.Code, e.Body.Error)
	}
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Raw)
}

func httpClient() *http.Client {
	return &http.Client{Timeout: apiTimeout}
}

// apiGet performs a GET request and returns the body and status code.
func apiGet(path string) ([]byte, int, error) {
	return apiDo(http.MethodGet, path, nil)
}

// apiPost performs a POST request with a JSON body.
func apiPost(path string, data interface{}) ([]byte, int, error) {
	return apiDo(http.MethodPost, path, data)
}

func apiDo(method, path string, data interface{}) ([]byte, int, error) {
	var reader io.Reader
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return nil, 0, err
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, strings.TrimSuffix(apiAddr, "/")+path, reader)
	if err != nil {
		return nil, 0, err
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient().Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	if resp.StatusCode >= 400 {
		apiErr := &apiError{Status: resp.StatusCode, Raw: string(body)}
		_ = json.Unmarshal(body, &apiErr.Body)
		return nil, resp.StatusCode, apiErr
	}
	return body, resp.StatusCode, nil
}

// decodeInto unmarshals body into v, or prints it verbatim in JSON mode.
// It reports whether the caller should render v.
func decodeInto(body []byte, v interface{}) (bool, error) {
	if outputJSON {
		var out bytes.Buffer
		if err := json.Indent(&out, body, "", "  "); err != nil {
			fmt.Println(string(body))
		} else {
			fmt.Println(out.String())
		}
		return false, nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return false, fmt.Errorf("invalid response: %w", err)
	}
	return true, nil
}
