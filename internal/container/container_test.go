package container

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Database.Path = filepath.Join(dir, "traveldesk.db")
	cfg.Storage.DocumentDir = filepath.Join(dir, "documents")
	cfg.Auth.JWTSecret = "container-test-secret-0123456789abcdef"
	cfg.Auth.BcryptCost = 4
	cfg.Worker.RedeliveryPollInterval = time.Hour
	cfg.Bootstrap = BootstrapConfig{
		AdminEmail:    "admin@example.com",
		AdminPassword: "S3cret!pass",
	}
	return cfg
}

func TestNewContainer_Validation(t *testing.T) {
	_, err := NewContainer(nil, zap.NewNop())
	assert.Error(t, err)

	_, err = NewContainer(DefaultConfig(), nil)
	assert.Error(t, err)

	// default config has no signing secret
	_, err = NewContainer(DefaultConfig(), zap.NewNop())
	assert.Error(t, err)
}

func TestContainer_Lifecycle(t *testing.T) {
	c, err := NewContainer(testConfig(t), zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, c.Start(context.Background()))
	assert.True(t, c.Ready())
	assert.Error(t, c.Start(context.Background()), "second start must fail")

	health := c.Health(context.Background())
	assert.True(t, health.Overall)
	assert.True(t, health.Components["database"].Healthy)
	assert.True(t, health.Components["workers"].Healthy)
	require.Len(t, health.Workers, 1)
	assert.Equal(t, "NotificationRedeliveryWorker", health.Workers[0].Name)

	assert.NotNil(t, c.Services().Auth)
	assert.NotNil(t, c.WorkflowEngine())
	assert.Len(t, c.Notifiers(), 1)
	assert.Equal(t, "log", c.Notifiers()[0].Channel())

	require.NoError(t, c.Close())
	assert.False(t, c.Ready())
	assert.Error(t, c.Close())
	assert.Error(t, c.Start(context.Background()))
}

func TestContainer_BootstrapAdminCanLogIn(t *testing.T) {
	c, err := NewContainer(testConfig(t), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	router := c.Server().Router()

	body, _ := json.Marshal(map[string]string{
		"email":    "admin@example.com",
		"password": "S3cret!pass",
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var login struct {
		Token string `json:"token"`
		Role  string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	assert.Equal(t, "admin", login.Role)
	require.NotEmpty(t, login.Token)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestContainer_BootstrapRunsOnce(t *testing.T) {
	cfg := testConfig(t)

	first, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, first.Start(context.Background()))
	require.NoError(t, first.Close())

	second, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, second.Start(context.Background()))
	defer second.Close()

	users, err := second.Services().Admin.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
