package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/tanpawarit/laia-quote-agent/agent/agents/checkout"
	"github.com/tanpawarit/laia-quote-agent/api"
)

const chatHelp = `Comandos:
  /aforo <ruta>  sube el archivo de aforo (.xls o .xlsx)
  /pagar         simula el pago y ejecuta el cálculo
  /reset         reinicia la conversación
  /salir         termina la sesión
`

func newChatCommand() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if sessionID == "" {
				sessionID = uuid.NewString()
			}
			r := &repl{
				chat:      a.chat,
				checkout:  a.checkout,
				sessionID: sessionID,
				apology:   a.prompts.Apology,
				out:       cmd.OutOrStdout(),
			}
			return r.run(cmd.Context(), cmd.InOrStdin())
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "resume an existing session id")
	return cmd
}

type repl struct {
	chat      api.Chat
	checkout  api.Checkout
	sessionID string
	apology   string
	out       io.Writer
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	fmt.Fprintf(r.out, "Sesión %s\n%s\n", r.sessionID, chatHelp)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		command, arg, _ := strings.Cut(line, " ")
		switch command {
		case "/salir", "/exit":
			return nil
		case "/ayuda", "/help":
			fmt.Fprint(r.out, chatHelp)
		case "/reset":
			if err := r.chat.Reset(ctx, r.sessionID); err != nil {
				return err
			}
			fmt.Fprintln(r.out, "Conversación reiniciada.")
		case "/aforo":
			r.say(r.upload(ctx, strings.TrimSpace(arg)))
		case "/pagar":
			r.say(r.pay(ctx))
		default:
			reply, err := r.chat.HandleMessage(ctx, r.sessionID, line)
			if err != nil {
				r.say(fmt.Sprintf("Error: %v", err))
				continue
			}
			r.say(reply)
		}
	}
}

func (r *repl) say(text string) {
	fmt.Fprintf(r.out, "LAIA: %s\n", text)
}

func (r *repl) upload(ctx context.Context, path string) string {
	if path == "" {
		return "Indica la ruta del archivo: /aforo <ruta>"
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Sprintf("No pude abrir %s: %v", path, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Sprintf("No pude leer %s: %v", path, err)
	}

	res, err := r.checkout.Upload(ctx, checkout.Upload{
		SessionID: r.sessionID,
		Filename:  filepath.Base(path),
		Size:      info.Size(),
		Body:      f,
	})
	if err != nil {
		return r.failure(err)
	}
	return res.Message
}

func (r *repl) pay(ctx context.Context) string {
	res, err := r.checkout.SimulatePayment(ctx, r.sessionID)
	if err != nil {
		return r.failure(err)
	}
	return res.Message
}

func (r *repl) failure(err error) string {
	if msg, ok := checkout.UserMessage(err); ok {
		return msg
	}
	return fmt.Sprintf("%s (%v)", r.apology, err)
}
