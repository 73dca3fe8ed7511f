package tool

import (
	"github.com/cloudwego/eino/schema"
)

const (
	ToolSetCustomer    = "quote_set_customer"
	ToolSetServices    = "quote_set_services"
	ToolCaptureClient  = "capture_client_info"
	ToolGetCalculation = "get_calculation_result"
	ToolFindAppt       = "find_available_appointment"
	ToolMuBootstrap    = "mu_bootstrap_from_address"
)

type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
)

// Param is one declared argument. Items is the element type of arrays.
// Default is applied by the handler when the model omits the argument, so a
// declared-required param with a Default is not enforced by validation.
type Param struct {
	Name     string
	Type     ParamType
	Desc     string
	Items    ParamType
	Required bool
	Default  any
}

// Spec is the wire contract of one tool as declared to the model.
type Spec struct {
	Name        string
	Description string
	Params      []Param
}

var specs = []Spec{
	{
		Name:        ToolSetCustomer,
		Description: "Guarda datos de cliente y proyecto para la cotización.",
		Params: []Param{
			{Name: "customer_name", Type: TypeString, Desc: "Nombre o empresa.", Required: true},
			{Name: "customer_email", Type: TypeString, Desc: "Correo del cliente (opcional)."},
			{Name: "project_address", Type: TypeString, Desc: "Dirección del proyecto (opcional)."},
		},
	},
	{
		Name:        ToolSetServices,
		Description: "Guarda los servicios confirmados por el cliente para la cotización.",
		Params: []Param{
			{Name: "services", Type: TypeArray, Items: TypeString, Desc: `Códigos confirmados: p.ej. ["SVC_VEH","SVC_COLAS"].`, Required: true},
		},
	},
	{
		Name:        ToolCaptureClient,
		Description: "Guarda datos del cliente y fusiona servicios solicitados sin duplicados.",
		Params: []Param{
			{Name: "customer_name", Type: TypeString, Desc: "Nombre del cliente o razón social"},
			{Name: "customer_email", Type: TypeString, Desc: "Correo del cliente"},
			{Name: "entity_type", Type: TypeString, Desc: "persona|empresa"},
			{Name: "company_name", Type: TypeString, Desc: "Si entity_type=empresa"},
			{Name: "address", Type: TypeString, Desc: "Dirección exacta del proyecto"},
			{Name: "requested_services", Type: TypeArray, Items: TypeString, Desc: `Servicios a establecer/añadir (ej: ["SVC_VEH","SVC_COLAS"])`},
			{Name: "add_services", Type: TypeArray, Items: TypeString, Desc: "Servicios adicionales a agregar"},
			{Name: "remove_services", Type: TypeArray, Items: TypeString, Desc: "Servicios a remover del set actual"},
			{Name: "include_queues", Type: TypeBoolean, Desc: "Si hay Vehicular, añadir Colas"},
		},
	},
	{
		Name:        ToolGetCalculation,
		Description: "Ejecuta un cálculo de ingeniería de tránsito (usa μ_h y λ_h).",
		Params: []Param{
			{Name: "service_id", Type: TypeString, Desc: "Código del servicio: SVC_COLAS, SVC_VEH", Required: true},
		},
	},
	{
		Name:        ToolFindAppt,
		Description: "Busca el próximo espacio disponible en el calendario (minutos de duración).",
		Params: []Param{
			{Name: "duration_in_minutes", Type: TypeInteger, Desc: "Duración en minutos", Required: true, Default: 60},
		},
	},
	{
		Name:        ToolMuBootstrap,
		Description: "Inferir contexto vial (tipo de vía, # carriles, semáforo, etc.) desde dirección para pre-cargar encuesta μ_h.",
		Params: []Param{
			{Name: "address", Type: TypeString, Desc: "Dirección exacta del proyecto", Required: true},
		},
	},
}

// Specs returns the declared tools in declaration order.
func Specs() []Spec {
	out := make([]Spec, len(specs))
	copy(out, specs)
	return out
}

func SpecByName(name string) (Spec, bool) {
	for _, s := range specs {
		if s.Name == name {
			return s, true
		}
	}
	return Spec{}, false
}

// Infos returns the eino tool declarations bound to chat models.
func Infos() []*schema.ToolInfo {
	out := make([]*schema.ToolInfo, 0, len(specs))
	for _, s := range specs {
		out = append(out, s.ToolInfo())
	}
	return out
}

func (s Spec) ToolInfo() *schema.ToolInfo {
	params := make(map[string]*schema.ParameterInfo, len(s.Params))
	for _, p := range s.Params {
		info := &schema.ParameterInfo{
			Type:     einoType(p.Type),
			Desc:     p.Desc,
			Required: p.Required,
		}
		if p.Type == TypeArray {
			info.ElemInfo = &schema.ParameterInfo{Type: einoType(p.Items)}
		}
		params[p.Name] = info
	}
	return &schema.ToolInfo{
		Name:        s.Name,
		Desc:        s.Description,
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}
}

// RequiredNames lists the declared-required params in declaration order.
func (s Spec) RequiredNames() []string {
	var out []string
	for _, p := range s.Params {
		if p.Required {
			out = append(out, p.Name)
		}
	}
	return out
}

// ValidationSchema is the JSON schema used to check incoming arguments.
func (s Spec) ValidationSchema() map[string]any {
	props := make(map[string]any, len(s.Params))
	required := make([]any, 0, len(s.Params))
	for _, p := range s.Params {
		prop := map[string]any{"type": string(p.Type)}
		if p.Type == TypeArray {
			prop["items"] = map[string]any{"type": string(p.Items)}
		}
		props[p.Name] = prop
		if p.Required && p.Default == nil {
			required = append(required, p.Name)
		}
	}
	out := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

func einoType(t ParamType) schema.DataType {
	switch t {
	case TypeInteger:
		return schema.Integer
	case TypeBoolean:
		return schema.Boolean
	case TypeArray:
		return schema.Array
	default:
		return schema.String
	}
}
