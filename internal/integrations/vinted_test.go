package integrations

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newVintedTestServer(handler http.HandlerFunc) (*httptest.Server, *VintedClient) {
	server := httptest.NewServer(handler)
	client := NewVintedClient(zap.NewNop(), server.URL, 5*time.Second)
	return server, client
}

func vintedItemsJSON(start, count int) string {
	out := `{"items":[`
	for i := 0; i < count; i++ {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf(
			`{"id":%d,"title":"Item %d","price":{"amount":"%d.50","currency_code":"EUR"},"brand_title":"Nike","size_title":"M","url":"https://example.com/%d"}`,
			start+i, start+i, 10+i, start+i)
	}
	return out + `]}`
}

func TestVintedValidateToken(t *testing.T) {
	server, client := newVintedTestServer(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer good-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{"brands":[]}`))
	})
	defer server.Close()

	assert.NoError(t, client.ValidateToken(context.Background(), "good-token"))
}

func TestVintedValidateTokenRejected(t *testing.T) {
	server, client := newVintedTestServer(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	defer server.Close()

	err := client.ValidateToken(context.Background(), "bad-token")
	assert.ErrorIs(t, err, ErrCredentialRejected)
}

func TestVintedSoldItemsQuery(t *testing.T) {
	var gotQuery map[string]string
	server, client := newVintedTestServer(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"search_text": q.Get("search_text"),
			"is_for_sale": q.Get("is_for_sale"),
			"per_page":    q.Get("per_page"),
			"order":       q.Get("order"),
		}
		w.Write([]byte(vintedItemsJSON(1, 2)))
	})
	defer server.Close()

	items, err := client.SoldItems(context.Background(), "tok", "nike hoodie", 1)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "nike hoodie", gotQuery["search_text"])
	assert.Equal(t, "0", gotQuery["is_for_sale"])
	assert.Equal(t, "96", gotQuery["per_page"])
	assert.Equal(t, "relevance", gotQuery["order"])
	assert.Equal(t, "10.5", items[0].Price.String())
	assert.Equal(t, "Nike", items[0].Brand)
}

func TestVintedSoldItemsStopsOnShortPage(t *testing.T) {
	var pages []string
	server, client := newVintedTestServer(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		if page == "1" {
			w.Write([]byte(vintedItemsJSON(1, soldItemsPerPage)))
			return
		}
		// Short second page ends the fetch before page 3.
		w.Write([]byte(vintedItemsJSON(1000, 10)))
	})
	defer server.Close()

	items, err := client.SoldItems(context.Background(), "tok", "query", 3)
	require.NoError(t, err)
	assert.Len(t, items, soldItemsPerPage+10)
	assert.Equal(t, []string{"1", "2"}, pages)
}

func TestVintedSoldItemsRejected(t *testing.T) {
	server, client := newVintedTestServer(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	defer server.Close()

	_, err := client.SoldItems(context.Background(), "tok", "query", 1)
	assert.ErrorIs(t, err, ErrCredentialRejected)
}

func TestVintedSoldItemsSkipsUnparseablePrices(t *testing.T) {
	server, client := newVintedTestServer(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[
			{"id":1,"title":"ok","price":{"amount":"12.00"}},
			{"id":2,"title":"broken","price":{"amount":"n/a"}}
		]}`))
	})
	defer server.Close()

	items, err := client.SoldItems(context.Background(), "tok", "query", 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(1), items[0].ID)
}

func TestFindRepresentativeItem(t *testing.T) {
	items := []SoldItem{
		{ID: 1, Title: "Adidas Samba OG black"},
		{ID: 2, Title: "Nike Air Force 1 white 42"},
		{ID: 3, Title: "Puma Suede classic"},
	}

	best, ok := FindRepresentativeItem(items, "nike air force 1 white")
	require.True(t, ok)
	assert.Equal(t, int64(2), best.ID)
}

func TestFindRepresentativeItemBelowFloor(t *testing.T) {
	items := []SoldItem{
		{ID: 1, Title: "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzz"},
	}

	_, ok := FindRepresentativeItem(items, "nike air force 1")
	assert.False(t, ok)
}

func TestFindRepresentativeItemEmptyList(t *testing.T) {
	_, ok := FindRepresentativeItem(nil, "anything")
	assert.False(t, ok)
}

func TestNormalizeTitle(t *testing.T) {
	assert.Equal(t, "nike air force", normalizeTitle("  Nike   AIR  force "))
}

func TestTitleSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, titleSimilarity("same", "same"))
	assert.Equal(t, 1.0, titleSimilarity("", ""))
	assert.Equal(t, 0.0, titleSimilarity("abcd", "wxyz"))
	assert.InDelta(t, 0.75, titleSimilarity("abcd", "abcx"), 0.001)
}
