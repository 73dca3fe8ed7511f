package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tanpawarit/laia-quote-agent/agent/agents/checkout"
	"github.com/tanpawarit/laia-quote-agent/agent/agents/orchestrator"
)

const testToken = "secret-token"

type fakeChat struct {
	reply     string
	err       error
	sessionID string
	text      string
	reset     []string
}

func (f *fakeChat) HandleMessage(_ context.Context, sessionID, text string) (string, error) {
	f.sessionID = sessionID
	f.text = text
	return f.reply, f.err
}

func (f *fakeChat) Reset(_ context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return orchestrator.ErrInvalidSession
	}
	f.reset = append(f.reset, sessionID)
	return nil
}

type fakeCheckout struct {
	upload     checkout.Upload
	uploadBody string
	uploadErr  error
	payErr     error
	paySession string
}

func (f *fakeCheckout) Upload(_ context.Context, in checkout.Upload) (checkout.UploadResult, error) {
	f.upload = in
	raw, _ := io.ReadAll(in.Body)
	f.uploadBody = string(raw)
	if f.uploadErr != nil {
		return checkout.UploadResult{}, f.uploadErr
	}
	return checkout.UploadResult{QuoteNumber: "COT-ABC123", Message: "### 🧾 Servicios confirmados"}, nil
}

func (f *fakeCheckout) SimulatePayment(_ context.Context, sessionID string) (checkout.PaymentResult, error) {
	f.paySession = sessionID
	if f.payErr != nil {
		return checkout.PaymentResult{}, f.payErr
	}
	return checkout.PaymentResult{PaymentRef: "SIM-0123456789", Status: "paid", Message: "Cálculo completado."}, nil
}

type fakeObserver struct {
	samples []string
}

func (f *fakeObserver) ObserveHTTP(route string, code int) {
	f.samples = append(f.samples, fmt.Sprintf("%s %d", route, code))
}

func newTestRouter(t *testing.T, chat *fakeChat, co *fakeCheckout, obs *fakeObserver) http.Handler {
	t.Helper()
	deps := Deps{Chat: chat, Checkout: co, Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})}
	if obs != nil {
		deps.Observer = obs
	}
	h, err := NewRouter(deps, Config{AgentToken: testToken, Apology: "Lo siento"})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	return h
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderAgentKey, testToken)
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestNewRouterRequiresServices(t *testing.T) {
	if _, err := NewRouter(Deps{Checkout: &fakeCheckout{}}, Config{}); err == nil {
		t.Fatal("expected error without chat service")
	}
	if _, err := NewRouter(Deps{Chat: &fakeChat{}}, Config{}); err == nil {
		t.Fatal("expected error without checkout service")
	}
}

func TestAgentKey(t *testing.T) {
	chat := &fakeChat{reply: "hola"}
	h := newTestRouter(t, chat, &fakeCheckout{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/send", strings.NewReader(`{"query":"hola"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing key: status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/chat/send", strings.NewReader(`{"query":"hola"}`))
	req.Header.Set(HeaderAgentKey, "wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong key: status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/chat/send", strings.NewReader(`{"query":"hola"}`))
	req.Header.Set(HeaderAuthorization, BearerPrefix+testToken)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("bearer key: status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestAgentKeyTokenNotSet(t *testing.T) {
	h, err := NewRouter(Deps{Chat: &fakeChat{}, Checkout: &fakeCheckout{}}, Config{})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/chat/send", `{"query":"hola"}`))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decode[errorResponse](t, rec); got.Error.Code != codeTokenNotSet {
		t.Fatalf("code = %q", got.Error.Code)
	}
}

func TestChatSend(t *testing.T) {
	chat := &fakeChat{reply: "Hola, soy David."}
	obs := &fakeObserver{}
	h := newTestRouter(t, chat, &fakeCheckout{}, obs)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/chat/send", `{"session_id":"s-1","query":"hola"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	got := decode[chatSendResponse](t, rec)
	if got.SessionID != "s-1" || got.Response != "Hola, soy David." {
		t.Fatalf("unexpected response %+v", got)
	}
	if chat.text != "hola" {
		t.Fatalf("text = %q", chat.text)
	}
	if len(obs.samples) != 1 || obs.samples[0] != "POST /api/chat/send 200" {
		t.Fatalf("samples = %v", obs.samples)
	}
}

func TestChatSendGeneratesSessionID(t *testing.T) {
	chat := &fakeChat{reply: "ok"}
	h := newTestRouter(t, chat, &fakeCheckout{}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/chat/send", `{"query":"hola"}`))
	got := decode[chatSendResponse](t, rec)
	if got.SessionID == "" || got.SessionID != chat.sessionID {
		t.Fatalf("session id = %q, chat saw %q", got.SessionID, chat.sessionID)
	}
}

func TestChatSendErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{name: "unknown field", body: `{"query":"hola","extra":1}`, status: http.StatusBadRequest},
		{name: "empty body", body: ``, status: http.StatusBadRequest},
		{name: "empty message", body: `{"query":" "}`, err: orchestrator.ErrInvalidMessage, status: http.StatusUnprocessableEntity},
		{name: "too long", body: `{"query":"x"}`, err: orchestrator.ErrMessageTooLong, status: http.StatusUnprocessableEntity},
		{name: "turn failure", body: `{"query":"hola"}`, err: errors.New("store down"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(t, &fakeChat{err: tt.err}, &fakeCheckout{}, nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/chat/send", tt.body))
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d; body = %s", rec.Code, tt.status, rec.Body.String())
			}
		})
	}
}

func TestChatSendFailureReturnsApology(t *testing.T) {
	h := newTestRouter(t, &fakeChat{err: errors.New("boom")}, &fakeCheckout{}, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/chat/send", `{"session_id":"s-1","query":"hola"}`))
	got := decode[chatSendResponse](t, rec)
	if got.Response != "Lo siento" || got.SessionID != "s-1" {
		t.Fatalf("unexpected response %+v", got)
	}
}

func TestChatSendBodyTooLarge(t *testing.T) {
	h, err := NewRouter(Deps{Chat: &fakeChat{}, Checkout: &fakeCheckout{}}, Config{AgentToken: testToken, MaxBodyBytes: 16})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/chat/send", `{"query":"`+strings.Repeat("a", 64)+`"}`))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestChatReset(t *testing.T) {
	chat := &fakeChat{}
	h := newTestRouter(t, chat, &fakeCheckout{}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/chat/reset", `{"session_id":"s-9"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(chat.reset) != 1 || chat.reset[0] != "s-9" {
		t.Fatalf("reset = %v", chat.reset)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/chat/reset", `{"session_id":""}`))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty session: status = %d", rec.Code)
	}
}

func multipartRequest(t *testing.T, field, filename, content, sessionID string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if sessionID != "" {
		if err := mw.WriteField("session_id", sessionID); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = fw.Write([]byte(content))
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/aforos/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(HeaderAgentKey, testToken)
	return req
}

func TestAforoUpload(t *testing.T) {
	co := &fakeCheckout{}
	h := newTestRouter(t, &fakeChat{}, co, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, multipartRequest(t, "aforo_file", "aforo.xlsx", "sheet-bytes", "s-1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if co.upload.SessionID != "s-1" || co.upload.Filename != "aforo.xlsx" || co.uploadBody != "sheet-bytes" {
		t.Fatalf("unexpected upload %+v body %q", co.upload, co.uploadBody)
	}
	got := decode[okResponse](t, rec)
	if !got.OK || got.Message != "### 🧾 Servicios confirmados" {
		t.Fatalf("unexpected response %+v", got)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, multipartRequest(t, "file", "conteo.xls", "x", "s-2"))
	if rec.Code != http.StatusOK || co.upload.Filename != "conteo.xls" {
		t.Fatalf("alternate field: status = %d upload = %+v", rec.Code, co.upload)
	}
}

func TestAforoUploadErrors(t *testing.T) {
	userErr := &checkout.Error{Message: "Solo se aceptan archivos .xls o .xlsx.", Err: checkout.ErrUnsupportedFile}

	tests := []struct {
		name    string
		field   string
		session string
		err     error
		status  int
		message string
	}{
		{name: "missing session", field: "aforo_file", status: http.StatusUnprocessableEntity},
		{name: "missing file", session: "s-1", status: http.StatusUnprocessableEntity},
		{name: "user error", field: "aforo_file", session: "s-1", err: userErr, status: http.StatusUnprocessableEntity, message: userErr.Message},
		{name: "internal", field: "aforo_file", session: "s-1", err: errors.New("disk full"), status: http.StatusInternalServerError, message: uploadFailureMsg},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(t, &fakeChat{}, &fakeCheckout{uploadErr: tt.err}, nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, multipartRequest(t, tt.field, "aforo.pdf", "x", tt.session))
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d; body = %s", rec.Code, tt.status, rec.Body.String())
			}
			if tt.message != "" {
				if got := decode[errorResponse](t, rec); got.Error.Message != tt.message {
					t.Fatalf("message = %q", got.Error.Message)
				}
			}
		})
	}
}

func TestPaymentSimulate(t *testing.T) {
	co := &fakeCheckout{}
	h := newTestRouter(t, &fakeChat{}, co, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/payments/simulate", `{"session_id":"s-1"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if co.paySession != "s-1" {
		t.Fatalf("session = %q", co.paySession)
	}
	got := decode[okResponse](t, rec)
	if !got.OK || got.Message != "Cálculo completado." {
		t.Fatalf("unexpected response %+v", got)
	}
}

func TestPaymentSimulateErrors(t *testing.T) {
	userErr := &checkout.Error{Message: "No hay servicios seleccionados.", Err: checkout.ErrNoServices}

	tests := []struct {
		name    string
		body    string
		err     error
		status  int
		message string
	}{
		{name: "missing session", body: `{"session_id":""}`, status: http.StatusUnprocessableEntity},
		{name: "precondition", body: `{"session_id":"s-1"}`, err: userErr, status: http.StatusUnprocessableEntity, message: userErr.Message},
		{name: "calculation", body: `{"session_id":"s-1"}`, err: fmt.Errorf("%w: timeout", checkout.ErrCalculation), status: http.StatusInternalServerError, message: paymentFailureMsg},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(t, &fakeChat{}, &fakeCheckout{payErr: tt.err}, nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/payments/simulate", tt.body))
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d; body = %s", rec.Code, tt.status, rec.Body.String())
			}
			if tt.message != "" {
				if got := decode[errorResponse](t, rec); got.Error.Message != tt.message {
					t.Fatalf("message = %q", got.Error.Message)
				}
			}
		})
	}
}

func TestHealthAndMetricsAreOpen(t *testing.T) {
	h := newTestRouter(t, &fakeChat{}, &fakeCheckout{}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "# metrics" {
		t.Fatalf("metrics status = %d body = %q", rec.Code, rec.Body.String())
	}
}
