package state

import (
	"errors"
	"fmt"
	"strings"
)

type EntityType string

const (
	EntityPersona EntityType = "persona"
	EntityEmpresa EntityType = "empresa"
)

// ParseEntityType lowercases raw and falls back to persona for anything unknown.
func ParseEntityType(raw string) EntityType {
	switch EntityType(strings.ToLower(strings.TrimSpace(raw))) {
	case EntityEmpresa:
		return EntityEmpresa
	default:
		return EntityPersona
	}
}

type FileRef struct {
	Disk string `json:"disk"`
	Path string `json:"path"`
}

// Survey holds the μ_h survey answers. A nil field is an unanswered question.
type Survey struct {
	TipoVia      *string  `json:"tipo_via,omitempty"`
	Carriles     *int     `json:"carriles,omitempty"`
	ZonaEspecial *string  `json:"zona_especial,omitempty"`
	PendientePct *float64 `json:"pendiente_pct,omitempty"`
	Semaforo     *bool    `json:"semaforo,omitempty"`
	G            *float64 `json:"g,omitempty"`
	C            *float64 `json:"C,omitempty"`
	MuH          *float64 `json:"mu_h,omitempty"`
}

// Conversation is the session-scoped state mutated by tools.
type Conversation struct {
	CustomerName   *string    `json:"customer_name,omitempty"`
	CustomerEmail  *string    `json:"customer_email,omitempty"`
	EntityType     EntityType `json:"entity_type,omitempty"`
	CompanyName    *string    `json:"company_name,omitempty"`
	ProjectAddress *string    `json:"project_address,omitempty"`
	Services       []string   `json:"services,omitempty"`
	Survey         Survey     `json:"mu_survey"`
	AforoFile      *FileRef   `json:"aforo_file,omitempty"`

	QuoteID     int64  `json:"quote_id,omitempty"`
	QuoteNumber string `json:"quote_number,omitempty"`
	InvoiceID   string `json:"invoice_id,omitempty"`
}

var (
	ErrDuplicateService = errors.New("duplicate service code")
	ErrUnknownService   = errors.New("unknown service code")
)

func (c *Conversation) Entity() EntityType {
	if c == nil || c.EntityType == "" {
		return EntityPersona
	}
	return c.EntityType
}

func (c *Conversation) HasService(code string) bool {
	if c == nil {
		return false
	}
	for _, s := range c.Services {
		if s == code {
			return true
		}
	}
	return false
}

// Validate checks the services set. known may be nil to skip the catalog check.
func (c *Conversation) Validate(known func(code string) bool) error {
	if c == nil {
		return ErrNilSessionState
	}
	seen := make(map[string]struct{}, len(c.Services))
	for _, code := range c.Services {
		if _, dup := seen[code]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateService, code)
		}
		seen[code] = struct{}{}
		if known != nil && !known(code) {
			return fmt.Errorf("%w: %s", ErrUnknownService, code)
		}
	}
	return nil
}

/* ----------------------------- service helpers ---------------------------- */

// MergeServices returns the union of current and incoming in first-seen order.
// An empty incoming list returns current unchanged.
func MergeServices(current, incoming []string) []string {
	if len(incoming) == 0 {
		return current
	}
	out := make([]string, 0, len(current)+len(incoming))
	seen := make(map[string]struct{}, len(current)+len(incoming))
	for _, list := range [][]string{current, incoming} {
		for _, s := range list {
			if s == "" {
				continue
			}
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// RemoveServices drops every exact match of remove from current.
func RemoveServices(current, remove []string) []string {
	if len(remove) == 0 {
		return current
	}
	drop := make(map[string]struct{}, len(remove))
	for _, s := range remove {
		drop[s] = struct{}{}
	}
	out := make([]string, 0, len(current))
	for _, s := range current {
		if _, ok := drop[s]; ok {
			continue
		}
		out = append(out, s)
	}
	return out
}

/* ------------------------------ survey helpers ---------------------------- */

// NeedsMoreSurvey reports whether the survey lacks the minimum for μ_h.
func NeedsMoreSurvey(s Survey) bool {
	if s.TipoVia == nil || strings.TrimSpace(*s.TipoVia) == "" {
		return true
	}
	if s.Carriles == nil || *s.Carriles == 0 {
		return true
	}
	if s.Semaforo != nil && *s.Semaforo {
		return s.G == nil || *s.G == 0 || s.C == nil || *s.C == 0
	}
	return false
}

// Merge overwrites the fields of s that are set in patch.
func (s *Survey) Merge(patch Survey) {
	if patch.TipoVia != nil {
		s.TipoVia = patch.TipoVia
	}
	if patch.Carriles != nil {
		s.Carriles = patch.Carriles
	}
	if patch.ZonaEspecial != nil {
		s.ZonaEspecial = patch.ZonaEspecial
	}
	if patch.PendientePct != nil {
		s.PendientePct = patch.PendientePct
	}
	if patch.Semaforo != nil {
		s.Semaforo = patch.Semaforo
	}
	if patch.G != nil {
		s.G = patch.G
	}
	if patch.C != nil {
		s.C = patch.C
	}
	if patch.MuH != nil {
		s.MuH = patch.MuH
	}
}

// Fields returns the answered questions keyed by survey field name.
func (s Survey) Fields() map[string]any {
	out := make(map[string]any, 8)
	if s.TipoVia != nil {
		out["tipo_via"] = *s.TipoVia
	}
	if s.Carriles != nil {
		out["carriles"] = *s.Carriles
	}
	if s.ZonaEspecial != nil {
		out["zona_especial"] = *s.ZonaEspecial
	}
	if s.PendientePct != nil {
		out["pendiente_pct"] = *s.PendientePct
	}
	if s.Semaforo != nil {
		out["semaforo"] = *s.Semaforo
	}
	if s.G != nil {
		out["g"] = *s.G
	}
	if s.C != nil {
		out["C"] = *s.C
	}
	if s.MuH != nil {
		out["mu_h"] = *s.MuH
	}
	return out
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Deref returns the pointed value or the zero value.
func Deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
