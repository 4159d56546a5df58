package sina

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	hqNodePath = "/quotes_service/api/json_v2.php/Market_Center.getHQNodeDataSimple"
	indexNode  = "hs_s" // 沪深指数

	DefaultPageSize = 80
	maxPages        = 50
)

type RESTClient struct {
	client   *resty.Client
	pageSize int
	logger   *zap.Logger
}

func NewRESTClient(baseURL string, timeout time.Duration) *RESTClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Referer", "https://finance.sina.com.cn/")

	return &RESTClient{
		client:   client,
		pageSize: DefaultPageSize,
		logger:   zap.NewNop(),
	}
}

// WithLogger sets the logger used to report skipped rows.
func (c *RESTClient) WithLogger(logger *zap.Logger) *RESTClient {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// WithPageSize overrides the number of rows requested per page.
func (c *RESTClient) WithPageSize(n int) *RESTClient {
	if n > 0 {
		c.pageSize = n
	}
	return c
}

// GetIndexSpot fetches the full Shanghai/Shenzhen index table, paging until
// the provider returns a short page.
func (c *RESTClient) GetIndexSpot(ctx context.Context) ([]IndexQuote, error) {
	var all []IndexQuote

	for page := 1; page <= maxPages; page++ {
		rows, served, err := c.getPage(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		all = append(all, rows...)

		if served < c.pageSize {
			break
		}
	}

	return all, nil
}

// getPage returns the decodable rows of one page and how many rows the page
// held. A row with unparsable fields is skipped rather than failing the page;
// callers looking for that symbol see it as missing.
func (c *RESTClient) getPage(ctx context.Context, page int) ([]IndexQuote, int, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"page":   strconv.Itoa(page),
			"num":    strconv.Itoa(c.pageSize),
			"sort":   "symbol",
			"asc":    "1",
			"node":   indexNode,
			"_s_r_a": "page",
		}).
		Get(hqNodePath)
	if err != nil {
		return nil, 0, fmt.Errorf("http request failed: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, 0, fmt.Errorf("sina error %d: %s", resp.StatusCode(), resp.String())
	}

	// past the last page sina answers "null" or "[]"
	var raw []json.RawMessage
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, 0, fmt.Errorf("decode response: %w", err)
	}

	rows := make([]IndexQuote, 0, len(raw))
	for _, r := range raw {
		var q IndexQuote
		if err := json.Unmarshal(r, &q); err != nil {
			c.logger.Warn("skipping malformed quote row",
				zap.String("symbol", rowSymbol(r)),
				zap.Int("page", page),
				zap.Error(err),
			)
			continue
		}
		rows = append(rows, q)
	}

	return rows, len(raw), nil
}

// rowSymbol pulls the symbol out of a row that failed to decode in full.
func rowSymbol(r json.RawMessage) string {
	var head struct {
		Symbol string `json:"symbol"`
	}
	_ = json.Unmarshal(r, &head)
	return head.Symbol
}
