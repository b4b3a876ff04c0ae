package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/meghashyamc/blobreindex/config"
	"github.com/meghashyamc/blobreindex/logger"
)

const (
	headerAPIKey      = "api-key"
	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"

	maxErrorBodySize = 4 << 10
)

type Client struct {
	endpoint   string
	apiKey     string
	apiVersion string
	httpClient *http.Client
	logger     logger.Logger
}

type IndexerExecutionResult struct {
	Status         string     `json:"status"`
	ErrorMessage   string     `json:"errorMessage,omitempty"`
	StartTime      *time.Time `json:"startTime,omitempty"`
	EndTime        *time.Time `json:"endTime,omitempty"`
	ItemsProcessed int        `json:"itemsProcessed"`
	ItemsFailed    int        `json:"itemsFailed"`
}

type IndexerStatus struct {
	Status     string                  `json:"status"`
	LastResult *IndexerExecutionResult `json:"lastResult,omitempty"`
}

type listIndexesResponse struct {
	Value []struct {
		Name string `json:"name"`
	} `json:"value"`
}

func New(logger logger.Logger, cfg *config.Config) *Client {
	return &Client{
		endpoint:   strings.TrimRight(cfg.GetSearchEndpoint(), "/"),
		apiKey:     cfg.GetSearchAdminKey(),
		apiVersion: cfg.GetSearchAPIVersion(),
		httpClient: &http.Client{Timeout: cfg.GetRequestTimeout()},
		logger:     logger,
	}
}

// RunIndexer asks the search service to start a run of the named indexer.
// The service acknowledges with 202 and runs the indexer asynchronously.
func (c *Client) RunIndexer(ctx context.Context, indexerName string) error {
	resp, err := c.do(ctx, http.MethodPost, "/indexers/"+url.PathEscape(indexerName)+"/run", nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return newStatusError("run indexer", resp)
	}
	c.logger.Debug("indexer triggered successfully", "indexer", indexerName)

	return nil
}

func (c *Client) GetIndexerStatus(ctx context.Context, indexerName string) (*IndexerStatus, error) {
	resp, err := c.do(ctx, http.MethodGet, "/indexers/"+url.PathEscape(indexerName)+"/status", nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newStatusError("get indexer status", resp)
	}

	var status IndexerStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		c.logger.Error("failed to decode indexer status", "indexer", indexerName, "err", err.Error())
		return nil, fmt.Errorf("failed to decode indexer status: %w", err)
	}

	return &status, nil
}

func (c *Client) ListIndexNames(ctx context.Context) ([]string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/indexes", url.Values{"$select": {"name"}}, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newStatusError("list indexes", resp)
	}

	var listResponse listIndexesResponse
	if err := json.NewDecoder(resp.Body).Decode(&listResponse); err != nil {
		c.logger.Error("failed to decode index list", "err", err.Error())
		return nil, fmt.Errorf("failed to decode index list: %w", err)
	}

	names := make([]string, 0, len(listResponse.Value))
	for _, index := range listResponse.Value {
		names = append(names, index.Name)
	}

	return names, nil
}

// DeleteIndex removes the named index. An index that is already gone is not an error.
func (c *Client) DeleteIndex(ctx context.Context, indexName string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/indexes/"+url.PathEscape(indexName), nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK, http.StatusNotFound:
		return nil
	default:
		return newStatusError("delete index", resp)
	}
}

func (c *Client) CreateIndex(ctx context.Context, index Index) error {
	body, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal index definition: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/indexes", nil, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return newStatusError("create index", resp)
	}

	return nil
}

func (c *Client) do(ctx context.Context, method string, path string, query url.Values, body []byte) (*http.Response, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api-version", c.apiVersion)
	requestURL := c.endpoint + path + "?" + query.Encode()

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set(headerContentType, contentTypeJSON)
	req.Header.Set(headerAPIKey, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("request to search service failed", "method", method, "path", path, "err", err.Error())
		return nil, fmt.Errorf("request to search service failed: %w", err)
	}

	return resp, nil
}

func newStatusError(operation string, resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	return &StatusError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}
