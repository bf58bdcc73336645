package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/LeonardoBeccarini/irrigation-console/internal/model"
)

const usage = `commands:
  halt <chan>                          stop watering on a channel
  arm <chan>                           start a watering event on a channel
  set <chan> <mode> <frequency> <goal> store channel settings (mode 0=Manual 1=Timed 2=Watered)
  show                                 print the widgets
  help                                 this text
  quit                                 leave the console
`

var (
	errQuit = errors.New("quit")
	errHelp = errors.New("help")
	errShow = errors.New("show")
)

// ParseAction traduce una riga del prompt in un comando. Gli argomenti passano
// così come sono scritti: "set 1 x 10 5" produce S1,x,10,5.
func ParseAction(line string) (model.Command, error) {
	f := strings.Fields(line)
	if len(f) == 0 {
		return model.Command{}, errHelp
	}
	switch strings.ToLower(f[0]) {
	case "halt", "h":
		if len(f) != 2 {
			return model.Command{}, fmt.Errorf("usage: halt <chan>")
		}
		return model.Command{Kind: model.KindHalt, Channel: f[1]}, nil
	case "arm", "a":
		if len(f) != 2 {
			return model.Command{}, fmt.Errorf("usage: arm <chan>")
		}
		return model.Command{Kind: model.KindArm, Channel: f[1]}, nil
	case "set", "s":
		if len(f) != 5 {
			return model.Command{}, fmt.Errorf("usage: set <chan> <mode> <frequency> <goal>")
		}
		return model.SetChannelRaw(f[1], f[2], f[3], f[4]), nil
	case "show":
		return model.Command{}, errShow
	case "help", "?":
		return model.Command{}, errHelp
	case "quit", "exit", "q":
		return model.Command{}, errQuit
	default:
		return model.Command{}, fmt.Errorf("unknown action %q", f[0])
	}
}

// Prompt legge azioni riga per riga e le passa al dispatcher.
type Prompt struct {
	in         io.Reader
	out        io.Writer
	dispatcher *Dispatcher
	view       *View
}

func NewPrompt(in io.Reader, out io.Writer, dispatcher *Dispatcher, view *View) *Prompt {
	return &Prompt{in: in, out: out, dispatcher: dispatcher, view: view}
}

// ErrQuit è ritornato da Prompt.Run quando l'utente chiede di uscire.
var ErrQuit = errQuit

// Run ritorna ErrQuit su "quit"; nil a fine input o quando ctx viene cancellato (alla riga successiva).
func (p *Prompt) Run(ctx context.Context) error {
	sc := bufio.NewScanner(p.in)
	fmt.Fprint(p.out, "> ")
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		cmd, err := ParseAction(sc.Text())
		switch {
		case errors.Is(err, errQuit):
			return ErrQuit
		case errors.Is(err, errHelp):
			fmt.Fprint(p.out, usage)
		case errors.Is(err, errShow):
			if p.view != nil {
				p.view.Render(p.out)
			}
		case err != nil:
			fmt.Fprintln(p.out, err)
			fmt.Fprint(p.out, usage)
		default:
			p.dispatcher.Dispatch(cmd)
			fmt.Fprintf(p.out, "sent %s\n", cmd.Encode())
		}
		fmt.Fprint(p.out, "> ")
	}
	return sc.Err()
}
