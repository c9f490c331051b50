package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vaultai/internal/app"
	"vaultai/internal/backend"
	"vaultai/internal/bootstrap"
	"vaultai/internal/config"
	"vaultai/internal/model"
)

func newTestApp(t *testing.T) *bootstrap.ServerApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg, err := config.LoadFile("does-not-exist.toml")
	require.NoError(t, err)
	cfg.DevServer.GinMode = gin.TestMode
	cfg.DevServer.TempDir = t.TempDir()
	cfg.DevServer.StreamDelayMS = 0
	cfg.DevServer.FragmentSize = 7
	cfg.DevServer.Transcription = "canned words"
	cfg.Redis.Enabled = false
	cfg.Vision.ModelPath = ""

	srvApp, err := bootstrap.NewServerWith(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	return srvApp
}

func newTestServer(t *testing.T) (*httptest.Server, *backend.Client) {
	t.Helper()
	srv := httptest.NewServer(NewRouter(newTestApp(t)))
	t.Cleanup(srv.Close)
	return srv, backend.NewClient(backend.Config{BaseURL: srv.URL, RequestTimeout: 5 * time.Second}, nil)
}

func TestHealth(t *testing.T) {
	router := NewRouter(newTestApp(t))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(nethttp.MethodGet, "/", nil))

	require.Equal(t, nethttp.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "running", body["status"])
	deps, ok := body["dependencies"].(map[string]any)
	require.True(t, ok)
	for _, name := range []string{"redis", "mysql", "rabbitmq"} {
		assert.Equal(t, map[string]any{"ok": true, "message": "disabled"}, deps[name], name)
	}
}

func TestUploadWithoutFiles(t *testing.T) {
	router := NewRouter(newTestApp(t))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(nethttp.MethodPost, "/upload", nil))

	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"No files provided"}`, rec.Body.String())
}

func TestAskWithoutDocuments(t *testing.T) {
	_, client := newTestServer(t)

	_, err := client.OpenAnswerStream(context.Background(), "anything")
	var serverErr *backend.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, "No documents uploaded yet", serverErr.Message)
}

func TestAskWithoutQuestion(t *testing.T) {
	_, client := newTestServer(t)
	_, err := client.Upload(context.Background(), []backend.UploadFile{{Name: "a.txt", Content: strings.NewReader("alpha")}})
	require.NoError(t, err)

	_, err = client.OpenAnswerStream(context.Background(), "")
	var serverErr *backend.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, "No question provided", serverErr.Message)
}

func TestUploadSkipsUnchangedAndUnsupported(t *testing.T) {
	_, client := newTestServer(t)
	ctx := context.Background()

	accepted, err := client.Upload(ctx, []backend.UploadFile{
		{Name: "finance.txt", Content: strings.NewReader("revenue grew")},
		{Name: "archive.zip", Content: strings.NewReader("PK")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"finance.txt"}, accepted)

	accepted, err = client.Upload(ctx, []backend.UploadFile{{Name: "finance.txt", Content: strings.NewReader("revenue grew")}})
	require.NoError(t, err)
	assert.Empty(t, accepted)

	files, err := client.ListFiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"finance.txt"}, files)
}

func TestFileLifecycle(t *testing.T) {
	srv, client := newTestServer(t)
	ctx := context.Background()

	_, err := client.Upload(ctx, []backend.UploadFile{
		{Name: "a.txt", Content: strings.NewReader("one")},
		{Name: "b.txt", Content: strings.NewReader("two")},
	})
	require.NoError(t, err)

	resp, err := nethttp.Get(client.SourceURL("a.txt"))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "one", string(body))

	resp, err = nethttp.Get(srv.URL + "/temp/missing.txt")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)

	info, err := client.SessionInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, info.TotalDocuments)
	assert.Equal(t, model.FileIndex{Start: 0, End: 1, Count: 1}, info.FileIndices["a.txt"])

	require.NoError(t, client.Delete(ctx, "a.txt"))
	var serverErr *backend.ServerError
	require.ErrorAs(t, client.Delete(ctx, "a.txt"), &serverErr)
	assert.Equal(t, nethttp.StatusNotFound, serverErr.StatusCode)

	require.NoError(t, client.ClearSession(ctx))
	files, err := client.ListFiles(ctx)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestTranscribe(t *testing.T) {
	_, client := newTestServer(t)

	text, err := client.Transcribe(context.Background(), []byte("RIFF...."))
	require.NoError(t, err)
	assert.Equal(t, "canned words", text)

	_, err = client.Transcribe(context.Background(), nil)
	var serverErr *backend.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, nethttp.StatusBadRequest, serverErr.StatusCode)
}

func TestTranscribeWithoutAudioField(t *testing.T) {
	router := NewRouter(newTestApp(t))

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("other", "x"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(nethttp.MethodPost, "/transcribe", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"No audio file provided"}`, rec.Body.String())
}

func TestCORS(t *testing.T) {
	router := NewRouter(newTestApp(t))

	req := httptest.NewRequest(nethttp.MethodOptions, "/ask", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, nethttp.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(nethttp.MethodOptions, "/ask", nil)
	req.Header.Set("Origin", "http://evil.test")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, nethttp.StatusForbidden, rec.Code)
}

// The full client pipeline against the development backend: upload, ask,
// stream assembly and citation routing.
func TestSessionAgainstDevBackend(t *testing.T) {
	_, client := newTestServer(t)
	ctx := context.Background()

	uploads := app.NewUploadRegistry(client, nil)
	presenter := &recordingPresenter{}
	session := app.NewSessionController(
		client,
		client,
		uploads,
		nil,
		app.NewCitationRouter(presenter, nil, time.Millisecond, nil),
		nil,
	)

	confirmed, err := session.Upload(ctx, []backend.UploadFile{
		{Name: "finance.txt", Content: strings.NewReader("Revenue grew twelve percent in the third quarter.")},
		{Name: "office.txt", Content: strings.NewReader("The office moved downtown.")},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"finance.txt", "office.txt"}, confirmed)

	require.NoError(t, session.Ask(ctx, "How much did revenue grow?"))

	snap := session.Snapshot()
	require.Len(t, snap.Messages, 2)
	answer := snap.Messages[1]
	assert.False(t, answer.Streaming)
	assert.True(t, strings.HasPrefix(answer.Content, "<div>"), answer.Content)
	assert.NotContains(t, answer.Content, "```")
	assert.NotContains(t, answer.Content, `"sources"`)
	require.NotEmpty(t, answer.Citations)
	assert.Equal(t, model.KindTextChunk, answer.Citations[0].Kind)
	assert.Equal(t, "finance.txt", answer.Citations[0].SourceID)

	require.NoError(t, session.OpenCitation(ctx, 1, 0))
	assert.Equal(t, []string{"Source from: finance.txt"}, presenter.titles)

	require.NoError(t, session.Clear(ctx))
	files, err := client.ListFiles(ctx)
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Empty(t, session.Snapshot().Uploads)
}

type recordingPresenter struct {
	titles []string
}

func (p *recordingPresenter) OpenDocument(string, int)    {}
func (p *recordingPresenter) ShowExcerpt(title, _ string) { p.titles = append(p.titles, title) }
func (p *recordingPresenter) OpenImage(string)            {}

