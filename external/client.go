package external

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/credik/underwrite/logger"
	"go.uber.org/zap"
)

// Response is the uniform envelope every collaborator call returns. The
// orchestration core only ever looks at Success; payload internals are for
// the stage that made the call.
type Response struct {
	Success      bool           `json:"success"`
	Data         map[string]any `json:"data,omitempty"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	StatusCode   int            `json:"statusCode,omitempty"`
}

func failure(statusCode int, format string, args ...any) *Response {
	return &Response{
		Success:      false,
		ErrorMessage: fmt.Sprintf(format, args...),
		StatusCode:   statusCode,
	}
}

type baseClient struct {
	serviceName string
	baseUrl     string
	apiKey      string
	httpClient  *http.Client
	timeout     time.Duration
}

func newBaseClient(serviceName string, baseUrl string, apiKey string, timeout time.Duration) *baseClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &baseClient{
		serviceName: serviceName,
		baseUrl:     baseUrl,
		apiKey:      apiKey,
		httpClient:  &http.Client{},
		timeout:     timeout,
	}
}

func (c *baseClient) doRequest(ctx context.Context, method string, endpoint string, body map[string]any, params map[string]string) *Response {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody *bytes.Buffer = bytes.NewBuffer(nil)
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return failure(0, "%s request encode error: %v", c.serviceName, err)
		}
		reqBody = bytes.NewBuffer(data)
	}
	reqUrl := fmt.Sprintf("%s/%s", c.baseUrl, endpoint)
	if len(params) > 0 {
		q := url.Values{}
		for k, v := range params {
			q.Set(k, v)
		}
		reqUrl = reqUrl + "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, reqUrl, reqBody)
	if err != nil {
		return failure(0, "%s request error: %v", c.serviceName, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "underwrite/1.0")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
			logger.Error("external call timeout", zap.String("service", c.serviceName), zap.String("endpoint", endpoint))
			return failure(http.StatusRequestTimeout, "%s timeout", c.serviceName)
		}
		logger.Error("external call failed", zap.String("service", c.serviceName), zap.String("endpoint", endpoint), zap.Error(err))
		return failure(0, "%s error: %v", c.serviceName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Error("external call non-200", zap.String("service", c.serviceName), zap.String("endpoint", endpoint), zap.Int("status", resp.StatusCode))
		return failure(resp.StatusCode, "%s error: status %d", c.serviceName, resp.StatusCode)
	}
	var data map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return failure(resp.StatusCode, "%s response decode error: %v", c.serviceName, err)
	}
	return &Response{Success: true, Data: data, StatusCode: resp.StatusCode}
}
