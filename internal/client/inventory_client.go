package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"stockgate/internal/models"
)

// DependencyError means the inventory service could not be reached or gave
// an unusable answer. Callers must fail closed: no order may be created on
// an ambiguous validation result.
type DependencyError struct {
	Service string
	Err     error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// ShortageError is the inventory service's definite "no": at least one
// demand cannot be satisfied.
type ShortageError struct {
	Message string
}

func (e *ShortageError) Error() string { return e.Message }

type InventoryClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewInventoryClient(baseURL string) *InventoryClient {
	return &InventoryClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// ValidateStock asks the inventory service whether every demand in the
// order is satisfiable right now. Returns nil on success, *ShortageError on
// a 400, *DependencyError on anything else.
func (c *InventoryClient) ValidateStock(ctx context.Context, req models.CreateOrderRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/validate-stock"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &DependencyError{Service: "inventory-service", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusBadRequest:
		var payload struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.Error == "" {
			return &ShortageError{Message: "stock validation failed"}
		}
		return &ShortageError{Message: payload.Error}
	default:
		return &DependencyError{
			Service: "inventory-service",
			Err:     fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}
}

// GetProduct fetches a product from the inventory service
func (c *InventoryClient) GetProduct(ctx context.Context, productID int) (*models.Product, error) {
	url := fmt.Sprintf("%s/products/%d", c.baseURL, productID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &DependencyError{Service: "inventory-service", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("product %d not found", productID)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &DependencyError{
			Service: "inventory-service",
			Err:     fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var product models.Product
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &product, nil
}
