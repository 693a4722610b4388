package integrations

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSuperbuyTestServer(handler http.HandlerFunc) (*httptest.Server, *SuperbuyClient) {
	server := httptest.NewServer(handler)
	client := NewSuperbuyClient(zap.NewNop(), server.URL, 5*time.Second)
	return server, client
}

func TestSuperbuyValidateCookie(t *testing.T) {
	server, client := newSuperbuyTestServer(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/member/info", r.URL.Path)
		assert.Equal(t, "sid=abc123", r.Header.Get("Cookie"))
		w.Write([]byte(`{"state":0}`))
	})
	defer server.Close()

	assert.NoError(t, client.ValidateCookie(context.Background(), "sid=abc123"))
}

func TestSuperbuyValidateCookieRejected(t *testing.T) {
	server, client := newSuperbuyTestServer(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	defer server.Close()

	err := client.ValidateCookie(context.Background(), "sid=expired")
	assert.ErrorIs(t, err, ErrCredentialRejected)
}

func TestSuperbuyValidateCookieServerError(t *testing.T) {
	server, client := newSuperbuyTestServer(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	defer server.Close()

	err := client.ValidateCookie(context.Background(), "sid=abc")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCredentialRejected)
}

func TestSuperbuyFetchParcels(t *testing.T) {
	server, client := newSuperbuyTestServer(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/package/list", r.URL.Path)
		w.Write([]byte(`{"data":{"packageList":[
			{"orderNo":"SB-1001","statusName":"In transit","carrierName":"4PX","trackingNumber":"TRK111"},
			{"orderNo":"SB-1002","statusName":"Delivered","carrierName":"EMS","trackingNumber":"TRK222"}
		]}}`))
	})
	defer server.Close()

	parcels, err := client.FetchParcels(context.Background(), "sid=abc123")
	require.NoError(t, err)
	require.Len(t, parcels, 2)
	assert.Equal(t, "SB-1001", parcels[0].OrderNo)
	assert.Equal(t, "In transit", parcels[0].Status)
	assert.Equal(t, "4PX", parcels[0].Carrier)
	assert.Equal(t, "TRK111", parcels[0].TrackingN)
}

func TestSuperbuyFetchParcelsExpiredSession(t *testing.T) {
	server, client := newSuperbuyTestServer(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	defer server.Close()

	_, err := client.FetchParcels(context.Background(), "sid=expired")
	assert.ErrorIs(t, err, ErrCredentialRejected)
}
