package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/laia-quote-agent/agent/agents/checkout"
	"github.com/tanpawarit/laia-quote-agent/agent/agents/orchestrator"
	logx "github.com/tanpawarit/laia-quote-agent/pkg/logger"
)

const (
	uploadField       = "aforo_file"
	uploadFieldAlt    = "file"
	paymentFailureMsg = "Ocurrió un problema al realizar los cálculos. Contacta al administrador."
	uploadFailureMsg  = "Ocurrió un error técnico al procesar el archivo."
)

type chatSendRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Query     string `json:"query"`
}

type chatSendResponse struct {
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

type okResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func (h *handlers) handleChatSend(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)

	var req chatSendRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	reply, err := h.chat.HandleMessage(r.Context(), sessionID, req.Query)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, chatSendResponse{SessionID: sessionID, Response: reply})
	case errors.Is(err, orchestrator.ErrInvalidMessage), errors.Is(err, orchestrator.ErrMessageTooLong):
		writeError(w, http.StatusUnprocessableEntity, codeInvalidRequest, err.Error())
	default:
		log.Error().
			Str("session_id", sessionID).
			Str("err", logx.Truncate(logx.MaskString(err.Error()), 300)).
			Msg("chat send failed")
		writeJSON(w, http.StatusInternalServerError, chatSendResponse{SessionID: sessionID, Response: h.cfg.Apology})
	}
}

func (h *handlers) handleChatReset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)

	var req sessionRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if err := h.chat.Reset(r.Context(), req.SessionID); err != nil {
		if errors.Is(err, orchestrator.ErrInvalidSession) {
			writeError(w, http.StatusUnprocessableEntity, codeInvalidRequest, err.Error())
			return
		}
		log.Error().Str("err", logx.Truncate(err.Error(), 300)).Msg("chat reset failed")
		writeError(w, http.StatusInternalServerError, codeInternal, "reset failed")
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *handlers) handleAforoUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, checkout.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, codeTooLarge, "El archivo supera el tamaño máximo de 10 MB.")
			return
		}
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	sessionID := strings.TrimSpace(r.FormValue("session_id"))
	if sessionID == "" {
		writeError(w, http.StatusUnprocessableEntity, codeInvalidRequest, "session_id is required")
		return
	}

	file, header, err := r.FormFile(uploadField)
	if errors.Is(err, http.ErrMissingFile) {
		file, header, err = r.FormFile(uploadFieldAlt)
	}
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, codeInvalidRequest, "aforo_file is required")
		return
	}
	defer file.Close()

	res, err := h.checkout.Upload(r.Context(), checkout.Upload{
		SessionID: sessionID,
		Filename:  header.Filename,
		Size:      header.Size,
		Body:      file,
	})
	if err != nil {
		if msg, ok := checkout.UserMessage(err); ok {
			writeError(w, http.StatusUnprocessableEntity, codeUnprocessable, msg)
			return
		}
		log.Error().
			Str("session_id", sessionID).
			Str("err", logx.Truncate(logx.MaskString(err.Error()), 300)).
			Msg("aforo upload failed")
		writeError(w, http.StatusInternalServerError, codeInternal, uploadFailureMsg)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true, Message: res.Message, Data: res})
}

func (h *handlers) handlePaymentSimulate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)

	var req sessionRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		writeError(w, http.StatusUnprocessableEntity, codeInvalidRequest, "session_id is required")
		return
	}

	res, err := h.checkout.SimulatePayment(r.Context(), sessionID)
	if err != nil {
		if msg, ok := checkout.UserMessage(err); ok {
			writeError(w, http.StatusUnprocessableEntity, codeUnprocessable, msg)
			return
		}
		log.Error().
			Str("session_id", sessionID).
			Str("err", logx.Truncate(logx.MaskString(err.Error()), 300)).
			Msg("payment simulation failed")
		writeError(w, http.StatusInternalServerError, codeInternal, paymentFailureMsg)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true, Message: res.Message, Data: res})
}
