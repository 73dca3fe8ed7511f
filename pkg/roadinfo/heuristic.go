// Package roadinfo infers road-context defaults for the μ_h survey from a
// Bogotá project address.
package roadinfo

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
	"github.com/tanpawarit/laia-quote-agent/pkg/textnorm"
)

const (
	StatusOK     = "ok"
	StatusNoData = "no_data"
)

// Road types of the survey.
const (
	RoadAP        = "AP"
	RoadAS        = "AS"
	RoadColectora = "Colectora"
	RoadLocal     = "Local"
)

// Defaults are the survey seeds for one road type.
type Defaults struct {
	Lanes     int
	HasSignal bool
	G         float64
	C         float64
	SlopePct  float64
}

var defaultsByRoad = map[string]Defaults{
	RoadAP:        {Lanes: 3, HasSignal: true, G: 40, C: 90},
	RoadAS:        {Lanes: 2, HasSignal: true, G: 30, C: 80},
	RoadColectora: {Lanes: 2, HasSignal: true, G: 25, C: 70},
	RoadLocal:     {Lanes: 1, HasSignal: false, G: 15, C: 60},
}

func DefaultsFor(roadType string) (Defaults, bool) {
	d, ok := defaultsByRoad[roadType]
	return d, ok
}

var (
	arterialPattern = regexp.MustCompile(`^(autopista|avenida|av\.?|ak|ac|nqs)\b`)
	gridPattern     = regexp.MustCompile(`^(calle|cl|cll|carrera|cra|kr|cr|diagonal|dg|transversal|tv)\.?\s*(\d+)`)
)

var zoneKeywords = []struct {
	zone     string
	keywords []string
}{
	{zone: "escolar", keywords: []string{"colegio", "escuela", "universidad", "jardin infantil", "institucion educativa"}},
	{zone: "comercial", keywords: []string{"centro comercial", "mall", "mercado", "plaza de mercado", "zona comercial"}},
	{zone: "peatonal", keywords: []string{"peatonal", "alameda"}},
}

// Heuristic classifies an address by its Bogotá nomenclature. Avenues and
// highways are arterial principal; grid streets are graded by their number.
type Heuristic struct{}

var _ contractx.AddressInferer = Heuristic{}

func (Heuristic) Infer(_ context.Context, address string) (contractx.Inference, error) {
	folded := textnorm.Fold(address)
	roadType := classify(folded)
	if roadType == "" {
		return contractx.Inference{Status: StatusNoData}, nil
	}

	d := defaultsByRoad[roadType]
	data := &contractx.InferenceData{
		RoadType:   ptr(roadType),
		Lanes:      ptr(d.Lanes),
		SlopePct:   ptr(d.SlopePct),
		HasSignal:  ptr(d.HasSignal),
		IsArterial: ptr(roadType == RoadAP || roadType == RoadAS),
	}
	if d.HasSignal {
		data.G = ptr(d.G)
		data.C = ptr(d.C)
	}
	if zone := zoneOf(folded); zone != "" {
		data.Zone = ptr(zone)
	}
	return contractx.Inference{Status: StatusOK, Data: data}, nil
}

func classify(folded string) string {
	if folded == "" {
		return ""
	}
	if arterialPattern.MatchString(folded) {
		return RoadAP
	}
	m := gridPattern.FindStringSubmatch(folded)
	if m == nil {
		return ""
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return ""
	}
	switch {
	case n%10 == 0:
		return RoadAS
	case n%5 == 0:
		return RoadColectora
	default:
		return RoadLocal
	}
}

func zoneOf(folded string) string {
	for _, z := range zoneKeywords {
		for _, kw := range z.keywords {
			if strings.Contains(folded, kw) {
				return z.zone
			}
		}
	}
	return ""
}

func ptr[T any](v T) *T {
	return &v
}
