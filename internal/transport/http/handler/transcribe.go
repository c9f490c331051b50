package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"vaultai/internal/corpus"
	"vaultai/internal/transport/http/response"
)

const maxAudioSize = 25 << 20 // 25 MB

type TranscribeHandler struct {
	corpus *corpus.Service
}

type TranscribeResponse struct {
	Transcription string `json:"transcription"`
}

func NewTranscribeHandler(svc *corpus.Service) *TranscribeHandler {
	return &TranscribeHandler{corpus: svc}
}

func (h *TranscribeHandler) Transcribe(c *gin.Context) {
	file, err := c.FormFile("audio")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "No audio file provided")
		return
	}
	if file.Size > maxAudioSize {
		response.Error(c, http.StatusBadRequest, "audio too large (max 25MB)")
		return
	}
	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to read audio")
		return
	}
	defer f.Close()
	audio, err := io.ReadAll(f)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to read audio")
		return
	}

	text, err := h.corpus.Transcribe(audio)
	if err != nil {
		if errors.Is(err, corpus.ErrNoAudio) {
			response.Error(c, http.StatusBadRequest, "No audio file provided")
			return
		}
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.OK(c, TranscribeResponse{Transcription: text})
}
