package quote

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogRaw []byte

var (
	ErrInvalidCatalog = errors.New("invalid service catalog")
)

type Service struct {
	Code  string  `yaml:"code"`
	Name  string  `yaml:"name"`
	Price float64 `yaml:"price"`
}

type Combo struct {
	Services   []string `yaml:"services"`
	TotalPrice float64  `yaml:"total_price"`
}

// Catalog is process-wide static configuration, read-only after load.
type Catalog struct {
	Services       []Service         `yaml:"services"`
	Combos         []Combo           `yaml:"combos"`
	Currency       string            `yaml:"currency"`
	CurrencySymbol string            `yaml:"currency_symbol"`
	TaxRate        float64           `yaml:"tax_rate"`
	APIServiceMap  map[string]string `yaml:"api_service_map"`

	index map[string]Service
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogRaw)
	if err != nil {
		panic(err)
	}
	return c
}

// LoadCatalog reads a catalog file; an empty path yields the embedded catalog.
func LoadCatalog(path string) (*Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return ParseCatalog(defaultCatalogRaw)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseCatalog(raw)
}

func ParseCatalog(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if err := c.init(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) init() error {
	if len(c.Services) == 0 {
		return fmt.Errorf("%w: no services", ErrInvalidCatalog)
	}
	c.index = make(map[string]Service, len(c.Services))
	for _, svc := range c.Services {
		code := strings.TrimSpace(svc.Code)
		if code == "" {
			return fmt.Errorf("%w: service with empty code", ErrInvalidCatalog)
		}
		if svc.Price < 0 {
			return fmt.Errorf("%w: negative price for %s", ErrInvalidCatalog, code)
		}
		if _, dup := c.index[code]; dup {
			return fmt.Errorf("%w: duplicate code %s", ErrInvalidCatalog, code)
		}
		svc.Code = code
		c.index[code] = svc
	}
	for i, combo := range c.Combos {
		if len(combo.Services) == 0 {
			return fmt.Errorf("%w: combo %d has no services", ErrInvalidCatalog, i)
		}
		for _, code := range combo.Services {
			if _, ok := c.index[code]; !ok {
				return fmt.Errorf("%w: combo %d references unknown code %s", ErrInvalidCatalog, i, code)
			}
		}
	}
	if c.Currency == "" {
		c.Currency = "COP"
	}
	if c.CurrencySymbol == "" {
		c.CurrencySymbol = "$"
	}
	if c.APIServiceMap == nil {
		c.APIServiceMap = map[string]string{}
	}
	return nil
}

func (c *Catalog) Known(code string) bool {
	_, ok := c.index[code]
	return ok
}

func (c *Catalog) Lookup(code string) (Service, bool) {
	svc, ok := c.index[code]
	return svc, ok
}

// Label returns the display name of code, or code itself when unknown.
func (c *Catalog) Label(code string) string {
	if svc, ok := c.index[code]; ok && svc.Name != "" {
		return svc.Name
	}
	return code
}

func (c *Catalog) Codes() []string {
	out := make([]string, 0, len(c.Services))
	for _, svc := range c.Services {
		out = append(out, svc.Code)
	}
	return out
}

// Filter keeps the known codes of input in input order, without duplicates.
func (c *Catalog) Filter(input []string) (known []string, unknown []string) {
	seen := make(map[string]struct{}, len(input))
	for _, raw := range input {
		code := strings.TrimSpace(raw)
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		if c.Known(code) {
			known = append(known, code)
		} else {
			unknown = append(unknown, code)
		}
	}
	return known, unknown
}

// APIServiceID maps a service code to the calculation API identifier.
func (c *Catalog) APIServiceID(code string) string {
	if id, ok := c.APIServiceMap[code]; ok && strings.TrimSpace(id) != "" {
		return id
	}
	return code
}
