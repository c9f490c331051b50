package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vaultai/internal/corpus"
	"vaultai/internal/transport/http/response"
)

const maxUploadSize = 50 << 20 // 50 MB per file

type FileHandler struct {
	corpus *corpus.Service
	logger *zap.Logger
}

type UploadResponse struct {
	Message   string   `json:"message"`
	Filenames []string `json:"filenames"`
}

type FileListResponse struct {
	Files           []string `json:"files"`
	TotalChunks     int      `json:"total_chunks"`
	VectorStoreSize int      `json:"vector_store_size"`
}

func NewFileHandler(svc *corpus.Service, logger *zap.Logger) *FileHandler {
	return &FileHandler{corpus: svc, logger: logger}
}

// Upload accepts a multipart form with one or more "files" parts.
func (h *FileHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		response.Error(c, http.StatusBadRequest, "No files provided")
		return
	}

	batch := make([]corpus.UploadedFile, 0, len(form.File["files"]))
	for _, fh := range form.File["files"] {
		if fh.Size > maxUploadSize {
			response.Error(c, http.StatusBadRequest, fmt.Sprintf("%s is too large (max 50MB)", fh.Filename))
			return
		}
		f, err := fh.Open()
		if err != nil {
			response.Error(c, http.StatusInternalServerError, "failed to read file")
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			response.Error(c, http.StatusInternalServerError, "failed to read file")
			return
		}
		batch = append(batch, corpus.UploadedFile{Name: fh.Filename, Data: data})
	}

	names, err := h.corpus.Ingest(c.Request.Context(), batch)
	if err != nil {
		h.logger.Error("upload failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.OK(c, UploadResponse{Message: "Files processed successfully", Filenames: names})
}

func (h *FileHandler) List(c *gin.Context) {
	total := h.corpus.TotalChunks()
	response.OK(c, FileListResponse{
		Files:           h.corpus.Files(),
		TotalChunks:     total,
		VectorStoreSize: total,
	})
}

func (h *FileHandler) Delete(c *gin.Context) {
	name := c.Param("filename")
	if err := h.corpus.Remove(c.Request.Context(), name); err != nil {
		if errors.Is(err, corpus.ErrFileNotFound) {
			response.Error(c, http.StatusNotFound, "File not found: "+name)
			return
		}
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.OK(c, gin.H{"message": "File removed successfully", "filename": name})
}

func (h *FileHandler) SessionInfo(c *gin.Context) {
	response.OK(c, h.corpus.Info())
}

func (h *FileHandler) ClearSession(c *gin.Context) {
	h.corpus.Reset(c.Request.Context())
	response.Message(c, "Session cleared successfully")
}

// Temp serves an uploaded file back from the temp dir.
func (h *FileHandler) Temp(c *gin.Context) {
	path, err := h.corpus.TempPath(c.Param("filename"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := os.Stat(path); err != nil {
		response.Error(c, http.StatusNotFound, "File not found")
		return
	}
	c.File(path)
}
