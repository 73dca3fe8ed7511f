// Package checkout turns an uploaded aforo spreadsheet into a quote and runs
// the simulated payment that releases the final calculation.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
	quotex "github.com/tanpawarit/laia-quote-agent/agent/quote"
	"github.com/tanpawarit/laia-quote-agent/agent/record"
	statex "github.com/tanpawarit/laia-quote-agent/agent/state"
	"github.com/tanpawarit/laia-quote-agent/pkg/calendar"
	logx "github.com/tanpawarit/laia-quote-agent/pkg/logger"
)

const (
	MaxUploadBytes = 10 << 20
	QuoteValidDays = 7

	DefaultService  = "SVC_COLAS"
	DefaultCustomer = "Cliente"

	sourceUpload  = "aforo_upload"
	sourcePayment = "payment_simulation"
)

var (
	ErrUnsupportedFile = errors.New("unsupported aforo file")
	ErrFileTooLarge    = errors.New("aforo file too large")
	ErrNoServices      = errors.New("no services selected")
	ErrNoAforo         = errors.New("no aforo file uploaded")
	ErrNoQuote         = errors.New("no quote generated")
	ErrAforoInvalid    = errors.New("aforo file is invalid")
	ErrMissingMuH      = errors.New("road capacity mu_h is missing")
	ErrCalculation     = errors.New("calculation failed")
)

// Error carries a message that is safe to show to the customer.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Err.Error() + ": " + e.Message }
func (e *Error) Unwrap() error { return e.Err }

func userError(sentinel error, msg string) error {
	return &Error{Message: msg, Err: sentinel}
}

// UserMessage returns the customer-facing message carried by err, if any.
func UserMessage(err error) (string, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Message, true
	}
	return "", false
}

type Deps struct {
	Store      statex.Store
	Catalog    *quotex.Catalog
	Records    record.Repository
	Files      FileStore
	Extractor  contractx.AforoExtractor
	Calculator contractx.Calculator
	Timezone   string
}

type Service struct {
	store   statex.Store
	catalog *quotex.Catalog
	records record.Repository
	files   FileStore
	aforo   contractx.AforoExtractor
	calc    contractx.Calculator
	loc     *time.Location
	now     func() time.Time
}

func New(deps Deps) (*Service, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("state store is required")
	case deps.Catalog == nil:
		return nil, errors.New("service catalog is required")
	case deps.Records == nil:
		return nil, errors.New("record repository is required")
	case deps.Files == nil:
		return nil, errors.New("file store is required")
	case deps.Extractor == nil:
		return nil, errors.New("aforo extractor is required")
	case deps.Calculator == nil:
		return nil, errors.New("calculator is required")
	}
	return &Service{
		store:   deps.Store,
		catalog: deps.Catalog,
		records: deps.Records,
		files:   deps.Files,
		aforo:   deps.Extractor,
		calc:    deps.Calculator,
		loc:     calendar.Location(deps.Timezone),
		now:     time.Now,
	}, nil
}

// Upload describes one received spreadsheet.
type Upload struct {
	SessionID string
	Filename  string
	Size      int64
	Body      io.Reader
}

type UploadResult struct {
	QuoteID     int64    `json:"quote_id"`
	QuoteNumber string   `json:"quote_number"`
	InvoiceID   string   `json:"invoice_id"`
	Services    []string `json:"services"`
	File        string   `json:"file"`
	Message     string   `json:"message"`
}

// Upload stores the spreadsheet, prices the selected services and records a
// draft quote on the session. The reply lists services but never amounts.
func (s *Service) Upload(ctx context.Context, in Upload) (UploadResult, error) {
	ext := strings.ToLower(filepath.Ext(in.Filename))
	if ext != ".xls" && ext != ".xlsx" {
		return UploadResult{}, userError(ErrUnsupportedFile, "El archivo debe ser una hoja de cálculo .xls o .xlsx.")
	}
	if in.Size > MaxUploadBytes {
		return UploadResult{}, userError(ErrFileTooLarge, "El archivo supera el tamaño máximo de 10 MB.")
	}

	sess, err := s.loadSession(ctx, in.SessionID)
	if err != nil {
		return UploadResult{}, err
	}

	body := &limitedReader{r: io.LimitReader(in.Body, MaxUploadBytes+1), max: MaxUploadBytes}
	ref, err := s.files.Put(ctx, ext, body)
	if err != nil {
		if body.exceeded {
			return UploadResult{}, userError(ErrFileTooLarge, "El archivo supera el tamaño máximo de 10 MB.")
		}
		return UploadResult{}, fmt.Errorf("store aforo file: %w", err)
	}

	conv := &sess.Conversation
	services, _ := s.catalog.Filter(conv.Services)
	if len(services) == 0 {
		services = []string{DefaultService}
	}

	breakdown := s.catalog.BuildItems(services)
	subtotal := breakdown.Totals.Subtotal
	tax := s.catalog.Tax(subtotal)
	total := quotex.Round2(subtotal + tax)

	q := &record.Quote{
		Number:        record.NewReference("COT-", 6),
		CustomerName:  customerName(conv),
		CustomerEmail: conv.CustomerEmail,
		Status:        record.QuoteDraft,
		ValidUntil:    s.now().In(s.loc).AddDate(0, 0, QuoteValidDays),
		Subtotal:      subtotal,
		TaxTotal:      tax,
		Total:         total,
		Meta: map[string]any{
			"services": services,
			"currency": breakdown.Totals.Currency,
			"symbol":   breakdown.Totals.Symbol,
			"company":  statex.Deref(conv.CompanyName),
			"address":  statex.Deref(conv.ProjectAddress),
		},
	}
	for _, it := range breakdown.Items {
		q.Items = append(q.Items, &record.QuoteItem{
			Code:        it.Code,
			Description: it.Description,
			Quantity:    float64(it.Quantity),
			UnitPrice:   it.UnitPrice,
			TaxRate:     breakdown.Totals.TaxRate,
			LineTotal:   it.LineTotal,
		})
	}
	if err := s.records.CreateQuote(ctx, q); err != nil {
		return UploadResult{}, fmt.Errorf("create quote: %w", err)
	}

	conv.Services = services
	conv.AforoFile = &ref
	conv.QuoteID = q.ID
	conv.QuoteNumber = q.Number
	conv.InvoiceID = record.NewReference("INV-", 6)

	if err := s.saveSession(ctx, sess); err != nil {
		return UploadResult{}, err
	}

	msg := s.uploadMessage(services, q.Number)
	s.recordDialog(ctx, sess.SessionID, "Subida de aforos", "Cotización generada.", sourceUpload)

	log.Info().
		Str("session_id", sess.SessionID).
		Str("quote_number", q.Number).
		Strs("services", services).
		Msg("aforo uploaded and quote generated")

	return UploadResult{
		QuoteID:     q.ID,
		QuoteNumber: q.Number,
		InvoiceID:   conv.InvoiceID,
		Services:    services,
		File:        ref.Path,
		Message:     msg,
	}, nil
}

type PaymentResult struct {
	PaymentRef string         `json:"payment_ref"`
	Status     string         `json:"status"`
	Outputs    map[string]any `json:"outputs,omitempty"`
	Message    string         `json:"message"`
}

// SimulatePayment runs the final calculation for the session's first service
// and settles the quote through the simulated gateway.
func (s *Service) SimulatePayment(ctx context.Context, sessionID string) (PaymentResult, error) {
	sess, err := s.store.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, statex.ErrStateNotFound) {
			return PaymentResult{}, userError(ErrNoServices, "No se encontraron servicios en la sesión.")
		}
		return PaymentResult{}, fmt.Errorf("load session: %w", err)
	}
	conv := &sess.Conversation

	switch {
	case len(conv.Services) == 0:
		return PaymentResult{}, userError(ErrNoServices, "No se encontraron servicios en la sesión.")
	case conv.AforoFile == nil:
		return PaymentResult{}, userError(ErrNoAforo, "No recibimos el archivo de aforos.")
	case conv.QuoteID == 0:
		return PaymentResult{}, userError(ErrNoQuote, "Aún no se ha generado la cotización.")
	}

	path, err := s.files.Path(*conv.AforoFile)
	if err != nil {
		return PaymentResult{}, userError(ErrNoAforo, "No recibimos el archivo de aforos.")
	}
	extraction, err := s.aforo.Extract(ctx, path)
	if err != nil {
		return PaymentResult{}, fmt.Errorf("extract aforo: %w", err)
	}
	if !extraction.Success || extraction.Data == nil {
		msg := extraction.Message
		if msg == "" {
			msg = "El archivo de aforos no es válido."
		}
		return PaymentResult{}, userError(ErrAforoInvalid, msg)
	}

	inputs := map[string]float64{
		"lambda_h": extraction.Data.LambdaH,
		"mu_h":     extraction.Data.MuH,
	}
	if mu := statex.Deref(conv.Survey.MuH); mu > 0 {
		inputs["mu_h"] = mu
	} else if inputs["mu_h"] <= 0 {
		return PaymentResult{}, userError(ErrMissingMuH, "Falta la capacidad de la vía (mu_h). Completa la encuesta técnica antes de simular el pago.")
	}

	serviceID := s.catalog.APIServiceID(conv.Services[0])
	calc, err := s.calc.Run(ctx, serviceID, inputs)
	if err != nil {
		return PaymentResult{}, fmt.Errorf("%w: %w", ErrCalculation, err)
	}
	if !calc.OK {
		detail := calc.Error
		if detail == "" {
			detail = calc.Details
		}
		if detail == "" {
			detail = "Sin detalles"
		}
		return PaymentResult{}, fmt.Errorf("%w: %s", ErrCalculation, detail)
	}

	q, err := s.records.GetQuote(ctx, conv.QuoteID)
	if err != nil {
		return PaymentResult{}, fmt.Errorf("load quote: %w", err)
	}
	payment, err := s.records.PaymentSession(ctx, q)
	if err != nil {
		return PaymentResult{}, fmt.Errorf("payment session: %w", err)
	}
	if err := s.records.MarkPaid(ctx, payment); err != nil {
		return PaymentResult{}, fmt.Errorf("mark paid: %w", err)
	}

	result := "Cálculo completado."
	if out, ok := calc.Outputs["OUT_MSG"].(string); ok && strings.TrimSpace(out) != "" {
		result = out
	}
	msg := "Análisis completado. Resultado: " + result

	s.recordDialog(ctx, sess.SessionID, "Simulación de pago", msg, sourcePayment)

	log.Info().
		Str("session_id", sess.SessionID).
		Str("payment_ref", payment.GatewayRef).
		Str("service", serviceID).
		Msg("payment simulated")

	return PaymentResult{
		PaymentRef: payment.GatewayRef,
		Status:     payment.Status,
		Outputs:    calc.Outputs,
		Message:    msg,
	}, nil
}

func (s *Service) loadSession(ctx context.Context, sessionID string) (*statex.SessionState, error) {
	sess, err := s.store.Load(ctx, sessionID)
	if errors.Is(err, statex.ErrStateNotFound) {
		return statex.NewSessionState(sessionID, s.now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}

func (s *Service) saveSession(ctx context.Context, sess *statex.SessionState) error {
	sess.Touch(s.now())
	if err := sess.Validate(); err != nil {
		return err
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// recordDialog only warns on failure; the dialog log is best effort.
func (s *Service) recordDialog(ctx context.Context, sessionID, userText, reply, source string) {
	err := s.records.RecordDialog(ctx, contractx.Dialog{
		SessionID: sessionID,
		UserText:  userText,
		Reply:     reply,
		Source:    source,
		CreatedAt: s.now(),
	})
	if err != nil {
		log.Warn().
			Str("session_id", sessionID).
			Str("source", source).
			Str("err", logx.Truncate(logx.MaskString(err.Error()), 200)).
			Msg("dialog record failed")
	}
}

func (s *Service) uploadMessage(services []string, number string) string {
	var b strings.Builder
	b.WriteString("### 🧾 Servicios confirmados\n")
	for _, code := range services {
		b.WriteString("- ")
		b.WriteString(s.catalog.Label(code))
		b.WriteString("\n")
	}
	b.WriteString("\nListo. Ya generé tu cotización ")
	b.WriteString(number)
	b.WriteString(". Revísala y, cuando quieras, simula el pago para generar los documentos.")
	return b.String()
}

func customerName(conv *statex.Conversation) string {
	for _, name := range []*string{conv.CustomerName, conv.CompanyName} {
		if v := strings.TrimSpace(statex.Deref(name)); v != "" {
			return v
		}
	}
	return DefaultCustomer
}

// limitedReader remembers whether the body went past max bytes.
type limitedReader struct {
	r        io.Reader
	max      int64
	n        int64
	exceeded bool
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.n += int64(n)
	if l.n > l.max {
		l.exceeded = true
		return n, ErrFileTooLarge
	}
	return n, err
}
