package prompt

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
)

// SystemPromptFileEnv overrides the embedded system instructions.
const SystemPromptFileEnv = "LAIA_SYSTEM_PROMPT_FILE"

const (
	IdentityMarker = "## Identidad"
	BootstrapAck   = "Entendido. Responderé siempre en español y seguiré el flujo de LAIA."
	Greeting       = "Hola, soy David. Dime, ¿en qué te puedo ayudar?"
	Fallback       = "Listo. ¿Deseas que te envíe la cotización estimada y continuar al pago para generar los documentos de radicación?"
	Apology        = "Lo siento, tuve un problema para procesar tu solicitud en este momento."
)

//go:embed template/system.txt
var systemRaw string

// PromptSet holds the fixed texts used by the conversation driver.
type PromptSet struct {
	SystemInstructions string
	IdentityMarker     string
	BootstrapAck       string
	Greeting           string
	Fallback           string
	Apology            string
}

// LoadPromptSet returns the embedded prompt set, with the system instructions
// read from LAIA_SYSTEM_PROMPT_FILE when that variable is set.
func LoadPromptSet() (PromptSet, error) {
	set := DefaultPromptSet()

	path := strings.TrimSpace(os.Getenv(SystemPromptFileEnv))
	if path == "" {
		return set, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return PromptSet{}, fmt.Errorf("%w: read %s: %v", contractx.ErrPromptMissing, path, err)
	}
	instructions := strings.TrimSpace(string(raw))
	if instructions == "" {
		return PromptSet{}, fmt.Errorf("%w: %s is empty", contractx.ErrPromptMissing, path)
	}
	set.SystemInstructions = instructions
	return set, nil
}

func DefaultPromptSet() PromptSet {
	return PromptSet{
		SystemInstructions: strings.TrimSpace(systemRaw),
		IdentityMarker:     IdentityMarker,
		BootstrapAck:       BootstrapAck,
		Greeting:           Greeting,
		Fallback:           Fallback,
		Apology:            Apology,
	}
}
