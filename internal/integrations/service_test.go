package integrations

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/logistix-app/logistix/internal/database"
	"github.com/logistix-app/logistix/pkg/models"
)

type connectorFixture struct {
	svc      *Service
	db       *gorm.DB
	userID   uuid.UUID
	superbuy *httptest.Server
	vinted   *httptest.Server
}

// newConnectorFixture wires the integrations service against stub upstreams.
// Handlers may be nil for providers a test never touches.
func newConnectorFixture(t *testing.T, superbuyHandler, vintedHandler http.HandlerFunc) *connectorFixture {
	t.Helper()
	tdm := database.NewTestDatabaseManager(zap.NewNop())
	db, cleanup, err := tdm.CreateTestDatabase(t.Name())
	require.NoError(t, err)
	t.Cleanup(cleanup)

	if superbuyHandler == nil {
		superbuyHandler = func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }
	}
	if vintedHandler == nil {
		vintedHandler = func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }
	}
	sbServer := httptest.NewServer(superbuyHandler)
	t.Cleanup(sbServer.Close)
	vServer := httptest.NewServer(vintedHandler)
	t.Cleanup(vServer.Close)

	superbuy := NewSuperbuyClient(zap.NewNop(), sbServer.URL, 5*time.Second)
	vinted := NewVintedClient(zap.NewNop(), vServer.URL, 5*time.Second)

	return &connectorFixture{
		svc:      NewService(zap.NewNop(), db, superbuy, vinted),
		db:       db,
		userID:   uuid.New(),
		superbuy: sbServer,
		vinted:   vServer,
	}
}

func TestConnectSuperbuy(t *testing.T) {
	f := newConnectorFixture(t, nil, nil)

	conn, err := f.svc.Connect(context.Background(), f.userID, ProviderSuperbuy, "sid=abc")
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionStatusConnected, conn.Status)
	assert.Equal(t, "sid=abc", conn.Credential)
}

func TestConnectRejectedCredentialNotStored(t *testing.T) {
	f := newConnectorFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, nil)

	_, err := f.svc.Connect(context.Background(), f.userID, ProviderSuperbuy, "sid=bad")
	assert.ErrorIs(t, err, ErrCredentialRejected)

	_, err = f.svc.Status(context.Background(), f.userID, ProviderSuperbuy)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestConnectUnknownProvider(t *testing.T) {
	f := newConnectorFixture(t, nil, nil)

	_, err := f.svc.Connect(context.Background(), f.userID, "ebay", "token")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestReconnectReplacesCredential(t *testing.T) {
	f := newConnectorFixture(t, nil, nil)
	ctx := context.Background()

	first, err := f.svc.Connect(ctx, f.userID, ProviderVinted, "token-1")
	require.NoError(t, err)
	second, err := f.svc.Connect(ctx, f.userID, ProviderVinted, "token-2")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "token-2", second.Credential)

	var count int64
	require.NoError(t, f.db.Model(&models.IntegrationConnection{}).
		Where("user_id = ?", f.userID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestDisconnectClearsCredential(t *testing.T) {
	f := newConnectorFixture(t, nil, nil)
	ctx := context.Background()

	_, err := f.svc.Connect(ctx, f.userID, ProviderSuperbuy, "sid=abc")
	require.NoError(t, err)
	require.NoError(t, f.svc.Disconnect(ctx, f.userID, ProviderSuperbuy))

	conn, err := f.svc.Status(ctx, f.userID, ProviderSuperbuy)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionStatusDisconnected, conn.Status)
	assert.Empty(t, conn.Credential)
}

func TestDisconnectNeverConnected(t *testing.T) {
	f := newConnectorFixture(t, nil, nil)
	err := f.svc.Disconnect(context.Background(), f.userID, ProviderVinted)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestSyncSuperbuy(t *testing.T) {
	f := newConnectorFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/package/list" {
			w.Write([]byte(`{"data":{"packageList":[
				{"orderNo":"SB-1","statusName":"In transit"},
				{"orderNo":"SB-2","statusName":"Delivered"}
			]}}`))
			return
		}
		w.WriteHeader(http.StatusOK)
	}, nil)
	ctx := context.Background()

	_, err := f.svc.Connect(ctx, f.userID, ProviderSuperbuy, "sid=abc")
	require.NoError(t, err)

	result, err := f.svc.SyncSuperbuy(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Parcels)

	conn, err := f.svc.Status(ctx, f.userID, ProviderSuperbuy)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionStatusConnected, conn.Status)
	require.NotNil(t, conn.LastSyncAt)
}

func TestSyncSuperbuyUpstreamFailureMarksError(t *testing.T) {
	f := newConnectorFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/package/list" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}, nil)
	ctx := context.Background()

	_, err := f.svc.Connect(ctx, f.userID, ProviderSuperbuy, "sid=abc")
	require.NoError(t, err)

	_, err = f.svc.SyncSuperbuy(ctx, f.userID)
	require.Error(t, err)

	conn, statusErr := f.svc.Status(ctx, f.userID, ProviderSuperbuy)
	require.NoError(t, statusErr)
	assert.Equal(t, models.ConnectionStatusError, conn.Status)
	assert.NotEmpty(t, conn.LastError)
	// The credential survives so the user can retry without reconnecting.
	assert.Equal(t, "sid=abc", conn.Credential)
}

func TestSyncSuperbuyNotConnected(t *testing.T) {
	f := newConnectorFixture(t, nil, nil)

	_, err := f.svc.SyncSuperbuy(context.Background(), f.userID)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestSyncSuperbuyAfterDisconnect(t *testing.T) {
	f := newConnectorFixture(t, nil, nil)
	ctx := context.Background()

	_, err := f.svc.Connect(ctx, f.userID, ProviderSuperbuy, "sid=abc")
	require.NoError(t, err)
	require.NoError(t, f.svc.Disconnect(ctx, f.userID, ProviderSuperbuy))

	_, err = f.svc.SyncSuperbuy(ctx, f.userID)
	assert.ErrorIs(t, err, ErrNotConnected)
}
