package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"vaultai/internal/model"
)

const (
	maxErrorBody        = 64 << 10
	recordingFilename   = "recording.wav"
	defaultRequestLimit = 60 * time.Second
)

type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// UploadFile is one member of a multipart upload batch.
type UploadFile struct {
	Name    string
	Content io.Reader
}

// Client talks to the answering backend. Non-streaming calls are bounded by
// the request timeout; the answer stream is bounded only by its context.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	requestTimeout time.Duration
	logger         *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestLimit
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:     &http.Client{},
		requestTimeout: timeout,
		logger:         logger,
	}
}

// SourceURL is where the backend serves an uploaded file.
func (c *Client) SourceURL(filename string) string {
	return c.baseURL + "/temp/" + url.PathEscape(filename)
}

// OpenAnswerStream posts the question and returns the raw answer body.
// Read errors other than io.EOF on the returned reader match ErrTransport.
func (c *Client) OpenAnswerStream(ctx context.Context, question string) (io.ReadCloser, error) {
	bodyBytes, err := json.Marshal(map[string]string{"question": question})
	if err != nil {
		return nil, fmt.Errorf("marshal ask request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ask", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build ask request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError("ask request", err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, decodeServerError(resp)
	}

	c.logger.Debug("answer stream opened", zap.Int("status", resp.StatusCode))
	return &answerBody{body: resp.Body}, nil
}

// Upload sends the whole batch in one multipart request and returns the
// filenames the backend accepted.
func (c *Client) Upload(ctx context.Context, files []UploadFile) ([]string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := writer.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, fmt.Errorf("create form file failed: %w", err)
		}
		if f.Content != nil {
			if _, err := io.Copy(part, f.Content); err != nil {
				return nil, fmt.Errorf("copy %s into upload failed: %w", f.Name, err)
			}
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer failed: %w", err)
	}

	var parsed struct {
		Filenames []string `json:"filenames"`
	}
	if err := c.do(ctx, "upload", http.MethodPost, "/upload", writer.FormDataContentType(), &buf, &parsed); err != nil {
		return nil, err
	}
	return parsed.Filenames, nil
}

func (c *Client) Delete(ctx context.Context, filename string) error {
	return c.do(ctx, "delete", http.MethodDelete, "/files/"+url.PathEscape(filename), "", nil, nil)
}

// Transcribe uploads one recorded payload. An empty payload is still sent.
func (c *Client) Transcribe(ctx context.Context, audio []byte) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename="%s"`, recordingFilename))
	header.Set("Content-Type", "audio/wav")
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("create audio part failed: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("write audio part failed: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer failed: %w", err)
	}

	var parsed struct {
		Transcription string `json:"transcription"`
	}
	if err := c.do(ctx, "transcribe", http.MethodPost, "/transcribe", writer.FormDataContentType(), &buf, &parsed); err != nil {
		return "", err
	}
	return parsed.Transcription, nil
}

func (c *Client) ClearSession(ctx context.Context) error {
	return c.do(ctx, "clear session", http.MethodPost, "/clear-session", "", nil, nil)
}

// ListFiles returns the backend's current file snapshot. Entries may be
// plain names or objects with a name field.
func (c *Client) ListFiles(ctx context.Context) ([]string, error) {
	var parsed struct {
		Files []json.RawMessage `json:"files"`
	}
	if err := c.do(ctx, "list files", http.MethodGet, "/files", "", nil, &parsed); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(parsed.Files))
	for _, raw := range parsed.Files {
		var name string
		if err := json.Unmarshal(raw, &name); err == nil {
			names = append(names, name)
			continue
		}
		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(raw, &obj); err == nil && obj.Name != "" {
			names = append(names, obj.Name)
		}
	}
	return names, nil
}

func (c *Client) SessionInfo(ctx context.Context) (*model.SessionInfo, error) {
	var info model.SessionInfo
	if err := c.do(ctx, "session info", http.MethodGet, "/session-info", "", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) do(ctx context.Context, op, method, path, contentType string, body io.Reader, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s request failed: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(op+" request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		serverErr := decodeServerError(resp)
		c.logger.Warn("backend returned error",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.Error(serverErr),
		)
		return serverErr
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError("read "+op+" response", err)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse %s response failed: %w", op, err)
	}
	return nil
}

func decodeServerError(resp *http.Response) *ServerError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	serverErr := &ServerError{StatusCode: resp.StatusCode}

	var parsed struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error != "" {
		serverErr.Message = parsed.Error
	} else if text := strings.TrimSpace(string(raw)); text != "" {
		serverErr.Message = text
	}
	return serverErr
}

type answerBody struct {
	body io.ReadCloser
}

func (a *answerBody) Read(p []byte) (int, error) {
	n, err := a.body.Read(p)
	if err != nil && err != io.EOF {
		return n, transportError("read answer stream", err)
	}
	return n, err
}

func (a *answerBody) Close() error {
	return a.body.Close()
}
