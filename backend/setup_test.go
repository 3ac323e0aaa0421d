package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSetupRouter(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	root := t.TempDir()
	dataDir := filepath.Join(root, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	setup := &SetupHandler{DataDir: dataDir, ContentRoot: filepath.Join(dataDir, "content")}
	return setupModeRouter(&Config{}, setup), dataDir
}

func postJSON(t *testing.T, router *gin.Engine, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSetupStatus(t *testing.T) {
	router, dataDir := newSetupRouter(t)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/setup/status", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var status struct {
		NeedsInit bool   `json:"needsInit"`
		DataDir   string `json:"dataDir"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.True(t, status.NeedsInit)
	assert.Equal(t, dataDir, status.DataDir)
}

func TestValidateRejectsSqliteOutsideDataDir(t *testing.T) {
	router, dataDir := newSetupRouter(t)
	outside := filepath.Join(filepath.Dir(dataDir), "outside", "nested", "evil.db")

	cases := []string{
		outside,
		filepath.Join(dataDir, "..", "escape.db"),
		dataDir,
		"file:" + filepath.Join(dataDir, "a.db"),
		filepath.Join(dataDir, "a.db") + "?mode=rwc",
	}
	for _, dsn := range cases {
		w := postJSON(t, router, "/api/v1/setup/validate", SetupPayload{Database: DBConfig{Type: "sqlite", DSN: dsn}})
		assert.Equal(t, http.StatusBadRequest, w.Code, dsn)
		assert.Contains(t, w.Body.String(), `"field":"database"`, dsn)
	}

	_, err := os.Stat(filepath.Dir(outside))
	assert.True(t, os.IsNotExist(err), "拒绝的请求不应创建目录")
	_, err = os.Stat(filepath.Join(filepath.Dir(dataDir), "escape.db"))
	assert.True(t, os.IsNotExist(err))
}

func TestValidateAcceptsSqliteInsideDataDir(t *testing.T) {
	router, dataDir := newSetupRouter(t)
	dsn := filepath.Join(dataDir, "photoaffix.db")

	w := postJSON(t, router, "/api/v1/setup/validate", SetupPayload{
		Database: DBConfig{Type: "sqlite", DSN: dsn},
		Sources:  SourcesConfig{HTTPTimeoutSeconds: 10},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		EnvVars string   `json:"envVars"`
		Schemes []string `json:"schemes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.EnvVars, "PHOTOAFFIX_DATABASE_DSN="+dsn+"\n")
	assert.Contains(t, resp.Schemes, "content")
}

func TestValidateSqliteMissingSubdirectoryIsNotCreated(t *testing.T) {
	router, dataDir := newSetupRouter(t)
	nested := filepath.Join(dataDir, "nested")

	w := postJSON(t, router, "/api/v1/setup/validate", SetupPayload{Database: DBConfig{Type: "sqlite", DSN: filepath.Join(nested, "a.db")}})
	assert.Equal(t, http.StatusConflict, w.Code)
	_, err := os.Stat(nested)
	assert.True(t, os.IsNotExist(err))
}

func TestSqlitePathWithin(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, sqlitePathWithin(dir, filepath.Join(dir, "a.db")))
	assert.True(t, sqlitePathWithin(dir, filepath.Join(dir, "sub", "a.db")))
	assert.False(t, sqlitePathWithin(dir, dir))
	assert.False(t, sqlitePathWithin(dir, filepath.Join(dir+"-other", "a.db")))
	assert.False(t, sqlitePathWithin("", filepath.Join(dir, "a.db")))
	assert.False(t, sqlitePathWithin(dir, ""))
}
