package fulfillment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"topup-gateway/internal/logger"
)

const (
	FunctionName  = "process-topup"
	ActionFulfill = "fulfill"
)

var ErrDispatchFailed = errors.New("fulfillment dispatch failed")

// Dispatcher hands a paid order to the fulfillment function.
type Dispatcher interface {
	Dispatch(ctx context.Context, orderID string) error
}

type Request struct {
	OrderID string `json:"orderId"`
	Action  string `json:"action"`
}

// FunctionClient invokes the process-topup function over HTTP.
type FunctionClient struct {
	baseURL    string
	serviceKey string
	timeout    time.Duration
	httpClient *http.Client
	log        *logger.Logger
}

func NewFunctionClient(baseURL, serviceKey string, timeout time.Duration, log *logger.Logger) *FunctionClient {
	return &FunctionClient{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		timeout:    timeout,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(
				&http.Transport{
					MaxIdleConns:        100,
					MaxIdleConnsPerHost: 100,
				},
				otelhttp.WithSpanNameFormatter(func(string, *http.Request) string {
					return "invoke-" + FunctionName
				}),
			),
		},
		log: log,
	}
}

// Dispatch posts the order to process-topup. The otelhttp transport records the
// client span and propagates trace context.
func (c *FunctionClient) Dispatch(ctx context.Context, orderID string) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(Request{OrderID: orderID, Action: ActionFulfill})
	if err != nil {
		return fmt.Errorf("%w: encode request: %v", ErrDispatchFailed, err)
	}

	url := c.baseURL + "/" + FunctionName
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrDispatchFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.serviceKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	}

	c.log.LogOrder("DISPATCH", orderID, fmt.Sprintf("Invoking %s", FunctionName))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("FULFILLMENT", fmt.Sprintf("Failed to invoke %s for order %s: %v", FunctionName, orderID, err))
		return fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reason := errorReason(resp)
		c.log.Error("FULFILLMENT", fmt.Sprintf("%s rejected order %s with status %d: %s", FunctionName, orderID, resp.StatusCode, reason))
		return fmt.Errorf("%w: %s", ErrDispatchFailed, reason)
	}

	c.log.LogOrder("DISPATCHED", orderID, fmt.Sprintf("%s accepted the order", FunctionName))
	return nil
}

// errorReason extracts a readable reason from a non-2xx function response.
func errorReason(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return fmt.Sprintf("%s returned status %s", FunctionName, resp.Status)
}
