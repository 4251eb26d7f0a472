package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procsift/procsift/internal/fetcher"
	"github.com/procsift/procsift/internal/logging"
)

func tendersItemJSON(id string) map[string]any {
	return map[string]any{
		"id":   id,
		"name": "Поставка труб",
		"attributeCategories": []map[string]any{
			{
				"code": "main",
				"attributes": []map[string]any{
					{"code": attrStatus, "value": map[string]string{"code": "tenders_open_for_proposals"}},
					{"code": attrEndDate, "value": "2099-12-31"},
					{"code": attrNumber, "value": "2024-000123"},
					{"code": attrCustomer, "value": map[string]string{"code": "org-1", "name": "ООО Организатор"}},
					{"code": attrType, "value": map[string]string{"value": "Запрос предложений"}},
					{"code": attrCategory, "value": []map[string]string{
						{"value": "Металлопрокат"}, {"value": "Трубы"},
					}},
					{"code": attrContact, "value": map[string]string{"value": "Иванов Петр <ivanov@example.com>"}},
					{"code": attrRegion, "value": []map[string]string{{"value": "Екатеринбург"}}},
					{"code": attrDocs, "value": []map[string]string{
						{"name": "ТЗ", "url": "https://tenders.example.com/docs/1"},
					}},
				},
			},
		},
	}
}

func newTestTendersSource(t *testing.T, handler http.HandlerFunc) (*TendersSource, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	fetch := fetcher.New(fetcher.Pacing{}, logging.New(slog.LevelError, "text"))
	return NewTendersSource("tenders", srv.URL, 100, fetch), srv
}

func TestFetchPageExtractsRecords(t *testing.T) {
	src, srv := newTestTendersSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/tenders", r.URL.Path)
		// Page 1 maps to the portal's zero-based page parameter.
		assert.Equal(t, "0", r.URL.Query().Get("page"))
		assert.Equal(t, "100", r.URL.Query().Get("pageSize"))

		json.NewEncoder(w).Encode(map[string]any{
			"data":       []any{tendersItemJSON("t-1")},
			"totalPages": 7,
		})
	})

	page, err := src.FetchPage(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 7, page.TotalPages)
	require.Len(t, page.Records, 1)

	rec := page.Records[0]
	assert.Equal(t, "t-1", rec.OrderID)
	assert.Equal(t, OrderTypeCommercial, rec.OrderType)
	assert.Equal(t, srv.URL+"/tenders/t-1", rec.URL)
	assert.Equal(t, "2024-000123", rec.Number)
	assert.Equal(t, "tenders_open_for_proposals", rec.StatusCode)
	assert.Equal(t, "2099-12-31", rec.EndDate)
	assert.Equal(t, "org-1", rec.CustomerID)
	assert.NotEmpty(t, rec.Payload)
}

func TestFetchPageSkipsMalformedItems(t *testing.T) {
	src, _ := newTestTendersSource(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []any{
				map[string]any{"name": "no id"},
				tendersItemJSON("t-2"),
			},
			"totalPages": 1,
		})
	})

	page, err := src.FetchPage(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "t-2", page.Records[0].OrderID)
}

func TestFetchDetailFlattensAttributes(t *testing.T) {
	src, _ := newTestTendersSource(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data":       []any{tendersItemJSON("t-1")},
			"totalPages": 1,
		})
	})

	page, err := src.FetchPage(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, page.Records, 1)

	raw, err := src.FetchDetail(context.Background(), page.Records[0])
	require.NoError(t, err)

	var detail struct {
		Number     string   `json:"number"`
		Name       string   `json:"name"`
		Type       string   `json:"type"`
		EndDate    string   `json:"endDate"`
		Categories []string `json:"categories"`
		Contact    string   `json:"contact"`
		Regions    []string `json:"regions"`
		Documents  []struct {
			Name string `json:"name"`
			URL  string `json:"url"`
		} `json:"documents"`
	}
	require.NoError(t, json.Unmarshal(raw, &detail))

	assert.Equal(t, "2024-000123", detail.Number)
	assert.Equal(t, "Поставка труб", detail.Name)
	assert.Equal(t, "Запрос предложений", detail.Type)
	assert.Equal(t, "2099-12-31", detail.EndDate)
	assert.Equal(t, []string{"Металлопрокат", "Трубы"}, detail.Categories)
	assert.Equal(t, "Иванов Петр <ivanov@example.com>", detail.Contact)
	assert.Equal(t, []string{"Екатеринбург"}, detail.Regions)
	require.Len(t, detail.Documents, 1)
	assert.Equal(t, "ТЗ", detail.Documents[0].Name)
}

func TestFetchCustomerServedFromPageCache(t *testing.T) {
	src, _ := newTestTendersSource(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data":       []any{tendersItemJSON("t-1")},
			"totalPages": 1,
		})
	})

	_, err := src.FetchPage(context.Background(), 1)
	require.NoError(t, err)

	_, payload, err := src.FetchCustomer(context.Background(), "org-1")
	require.NoError(t, err)

	var organizer struct {
		Code string `json:"code"`
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(payload, &organizer))
	assert.Equal(t, "org-1", organizer.Code)
	assert.Equal(t, "ООО Организатор", organizer.Name)

	_, _, err = src.FetchCustomer(context.Background(), "unknown")
	assert.Error(t, err)
}

func TestFetchPagePagination(t *testing.T) {
	var pagesRequested []string
	src, _ := newTestTendersSource(t, func(w http.ResponseWriter, r *http.Request) {
		pagesRequested = append(pagesRequested, r.URL.Query().Get("page"))
		json.NewEncoder(w).Encode(map[string]any{"data": []any{}, "totalPages": 3})
	})

	for n := 1; n <= 3; n++ {
		_, err := src.FetchPage(context.Background(), n)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"0", "1", "2"}, pagesRequested)
}

func TestNumberFallbackAttribute(t *testing.T) {
	item := tendersItemJSON("t-1")
	attrs := item["attributeCategories"].([]map[string]any)[0]["attributes"].([]map[string]any)
	for i, a := range attrs {
		if a["code"] == attrNumber {
			attrs[i] = map[string]any{"code": attrNumber2, "value": "FALLBACK-42"}
		}
	}

	src, _ := newTestTendersSource(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []any{item}, "totalPages": 1})
	})

	page, err := src.FetchPage(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "FALLBACK-42", page.Records[0].Number)
}

func TestFetchPageBadListing(t *testing.T) {
	src, _ := newTestTendersSource(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[1,2,3]`)
	})

	// Valid JSON, wrong shape.
	_, err := src.FetchPage(context.Background(), 1)
	assert.Error(t, err)
}
