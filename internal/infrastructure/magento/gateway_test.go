package magento

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/erp/salesreport/internal/domain/sales"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAPIRoot(t *testing.T) {
	tests := []struct {
		name  string
		base  string
		store string
		want  string
	}{
		{"bare host", "https://shop.example", "", "https://shop.example/rest/default/V1"},
		{"trailing slash", "https://shop.example/", "", "https://shop.example/rest/default/V1"},
		{"subdirectory install", "https://shop.example/loja", "", "https://shop.example/loja/rest/default/V1"},
		{"rest only", "https://shop.example/rest", "", "https://shop.example/rest/default/V1"},
		{"rest with store", "https://shop.example/rest/br", "", "https://shop.example/rest/br/V1"},
		{"already versioned", "https://shop.example/rest/V1", "", "https://shop.example/rest/V1"},
		{"already versioned with store", "https://shop.example/rest/default/V1/", "", "https://shop.example/rest/default/V1"},
		{"custom store code", "https://shop.example", "br", "https://shop.example/rest/br/V1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveAPIRoot(tt.base, tt.store)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ResolveAPIRoot("not a url", "")
	assert.ErrorIs(t, err, ErrConfigInvalidBaseURL)
}

func TestQuery_Encode(t *testing.T) {
	q := Query{
		"searchCriteria[filter_groups][0][filters][0][value]": "2026-01-05 00:00:00",
		"plus": "a+b",
	}

	got := q.Encode()

	assert.Equal(t,
		"plus=a%2Bb&searchCriteria%5Bfilter_groups%5D%5B0%5D%5Bfilters%5D%5B0%5D%5Bvalue%5D=2026-01-05%2000%3A00%3A00",
		got)
	assert.NotContains(t, got, "+")
	assert.Equal(t, "", Query(nil).Encode())
}

func TestGateway_Get(t *testing.T) {
	t.Run("decodes JSON and sends %20 encoded query", func(t *testing.T) {
		var rawQuery, path string
		client, _ := createTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			rawQuery = r.URL.RawQuery
			path = r.URL.Path
			writeJSON(w, http.StatusOK, `{"name":"Shoes"}`)
		})

		var out struct {
			Name string `json:"name"`
		}
		err := client.gateway.Get(context.Background(), "categories/5", Query{"f": "a b"}, &out)
		require.NoError(t, err)
		assert.Equal(t, "Shoes", out.Name)
		assert.Equal(t, "/rest/default/V1/categories/5", path)
		assert.Equal(t, "f=a%20b", rawQuery)
	})

	t.Run("404 matches ErrNotFound", func(t *testing.T) {
		client, _ := createTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, `{"message":"not found"}`)
		})

		err := client.gateway.Get(context.Background(), "products/x", nil, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, sales.ErrNotFound)

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
		assert.Contains(t, apiErr.Body, "not found")
	})

	t.Run("other statuses are API errors", func(t *testing.T) {
		client, _ := createTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, `{"message":"consumer is not authorized"}`)
		})

		err := client.gateway.Get(context.Background(), "orders", nil, nil)
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.True(t, apiErr.IsUnauthorized())
		assert.False(t, errors.Is(err, sales.ErrNotFound))
	})

	t.Run("invalid JSON", func(t *testing.T) {
		client, _ := createTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `{not json`)
		})

		var out map[string]any
		err := client.gateway.Get(context.Background(), "orders", nil, &out)
		assert.ErrorIs(t, err, ErrInvalidResponse)
	})
}
