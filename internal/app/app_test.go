package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logclassifier/internal/config"
	"logclassifier/internal/infrastructure"
	"logclassifier/internal/shared/testutil"
	"logclassifier/pkg/contracts/events"
)

func createMockFS() fstest.MapFS {
	return fstest.MapFS{
		"index.html": &fstest.MapFile{
			Data: []byte(`<html><head><title>{{.Title}}</title></head><body>
<select>{{range .Sources}}<option>{{.}}</option>{{end}}</select>
<span>v{{.Version}}</span></body></html>`),
		},
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.BaseDir = t.TempDir()
	cfg.Classifier.Epochs = 20
	cfg.Classifier.FeatureDim = 1024
	cfg.Classifier.Workers = 2
	cfg.Jobs.Workers = 1
	cfg.Jobs.StopTimeout = 5 * time.Second
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Security.RateLimit.Enabled = false
	return cfg
}

func newTestApp(t *testing.T) *Application {
	t.Helper()
	logger := testutil.DiscardLogger()
	otelCfg := &infrastructure.OTelConfig{
		ServiceName:    "log-classifier-test",
		ServiceVersion: config.AppVersion,
		Environment:    "test",
		TraceExporter:  "none",
		MetricExporter: "none",
	}

	app, err := New(testConfig(t), logger, otelCfg, createMockFS())
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = app.Stop(ctx)
	})
	return app
}

func doRequest(app *Application, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func uploadCSV(t *testing.T, app *Application, content string) string {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "logs.csv")
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := doRequest(app, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeJSON(t, rec)
	assert.Equal(t, float64(testutil.SampleLogsRows), body["rows"])
	id, _ := body["upload_id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestNew_WiresComponents(t *testing.T) {
	app := newTestApp(t)

	assert.NotNil(t, app.Router)
	assert.NotNil(t, app.Server)
	assert.NotNil(t, app.Pipeline)
	assert.NotNil(t, app.Store)
	assert.NotNil(t, app.WebSocketHub)
	assert.NotNil(t, app.JobQueue)
	require.NotNil(t, app.Services)
	assert.NotNil(t, app.Services.Classification)
	assert.NotNil(t, app.Services.Jobs)
	assert.NotNil(t, app.Services.Health)
	assert.Equal(t, ":8080", app.Server.Addr)

	_, err := os.Stat(app.Paths.ResourcesDir)
	assert.NoError(t, err)
	_, err = os.Stat(app.Paths.DatabaseFile)
	assert.NoError(t, err)
}

func TestRouter_HealthEndpoints(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		path string
		code int
	}{
		{"/api/health", http.StatusOK},
		{"/api/health/live", http.StatusOK},
		{"/api/health/ready", http.StatusOK},
		{"/api/version", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := doRequest(app, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestRouter_Index(t *testing.T) {
	app := newTestApp(t)

	rec := doRequest(app, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, config.AppName)
	for _, src := range config.KnownSources {
		assert.Contains(t, body, "<option>"+src+"</option>")
	}
}

func TestRouter_NotFound(t *testing.T) {
	app := newTestApp(t)

	rec := doRequest(app, httptest.NewRequest(http.MethodGet, "/api/does-not-exist", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(app, httptest.NewRequest(http.MethodPut, "/api/predict", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_UploadClassifyDownload(t *testing.T) {
	app := newTestApp(t)
	uploadID := uploadCSV(t, app, testutil.SampleLogsCSV)

	rec := doRequest(app, httptest.NewRequest(http.MethodPost, "/api/uploads/"+uploadID+"/classify", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeJSON(t, rec)
	assert.Equal(t, "Classification complete!", body["message"])

	run, ok := body["run"].(map[string]interface{})
	require.True(t, ok)
	runID, _ := run["id"].(string)
	require.NotEmpty(t, runID)
	assert.Equal(t, float64(testutil.SampleLogsRows), run["total"])

	data, err := os.ReadFile(app.Paths.OutputCSV)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, testutil.SampleLogsRows+1)
	assert.Equal(t, "source,log_message,host,target_label", lines[0])
	assert.Equal(t, "ModernCRM,User User123 logged in.,web-1,User Action", lines[1])
	assert.Equal(t, "BillingSystem,Backup completed successfully.,db-1,System Notification", lines[2])

	rec = doRequest(app, httptest.NewRequest(http.MethodGet, "/api/runs/"+runID+"/download", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), config.DownloadFileName)
	assert.Equal(t, string(data), rec.Body.String())

	rec = doRequest(app, httptest.NewRequest(http.MethodGet, "/api/runs/"+runID+"/download?format=xlsx", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), config.DownloadXLSXName)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))

	rec = doRequest(app, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeJSON(t, rec)["count"])
}

func TestRouter_UploadRejectsMissingColumns(t *testing.T) {
	app := newTestApp(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "bad.csv")
	require.NoError(t, err)
	_, err = io.WriteString(fw, testutil.MissingColumnsCSV)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := doRequest(app, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "CSV must contain 'source' and 'log_message' columns.")
}

func TestRouter_Predict(t *testing.T) {
	app := newTestApp(t)

	rec := doRequest(app, httptest.NewRequest(http.MethodPost, "/api/predict",
		strings.NewReader(`{"source":"ModernCRM","log_message":"  User User7 logged out.  "}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeJSON(t, rec)
	assert.Equal(t, "User Action", body["label"])
	assert.Equal(t, "Predicted Label: User Action", body["message"])

	rec = doRequest(app, httptest.NewRequest(http.MethodPost, "/api/predict",
		strings.NewReader(`{"source":"ModernCRM","log_message":"   "}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please enter a log message to classify.")
}

func TestRouter_Pipeline(t *testing.T) {
	app := newTestApp(t)

	rec := doRequest(app, httptest.NewRequest(http.MethodGet, "/api/pipeline", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	stages, ok := body["stages"].([]interface{})
	require.True(t, ok)
	assert.Len(t, stages, 3)
	assert.Equal(t, []interface{}{"LegacyCRM"}, body["llm_sources"])
}

func TestRouter_JobLifecycle(t *testing.T) {
	app := newTestApp(t)
	app.JobQueue.Start(context.Background())
	uploadID := uploadCSV(t, app, testutil.SampleLogsCSV)

	rec := doRequest(app, httptest.NewRequest(http.MethodPost, "/api/jobs",
		strings.NewReader(`{"upload_id":"`+uploadID+`"}`)))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	jobID, _ := decodeJSON(t, rec)["id"].(string)
	require.NotEmpty(t, jobID)
	assert.Equal(t, "/api/jobs/"+jobID, rec.Header().Get("Location"))

	require.Eventually(t, func() bool {
		rec := doRequest(app, httptest.NewRequest(http.MethodGet, "/api/jobs/"+jobID, nil))
		if rec.Code != http.StatusOK {
			return false
		}
		return decodeJSON(t, rec)["status"] == "completed"
	}, 10*time.Second, 20*time.Millisecond)

	rec = doRequest(app, httptest.NewRequest(http.MethodGet, "/api/jobs/"+jobID, nil))
	body := decodeJSON(t, rec)
	assert.Equal(t, float64(100), body["progress"])
	assert.NotEmpty(t, body["run_id"])
}

func TestRouter_WebSocket(t *testing.T) {
	app := newTestApp(t)
	srv := httptest.NewServer(app.Router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg events.WebSocketMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, events.MessageTypeConnect, msg.Type)
}
