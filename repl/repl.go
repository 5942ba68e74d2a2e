package repl

import (
	"fmt"
	"io"
	"strings"

	"github.com/lmorg/readline"

	"github.com/vara-lang/vara/hub"
	"github.com/vara-lang/vara/text"
)

func Start(hub *hub.Hub, in io.Reader, out io.Writer) {
	rline := readline.NewInstance()
	for {
		rline.SetPrompt(makePrompt(hub))
		line, err := rline.Readline()
		if err != nil {
			fmt.Println(text.ERROR, err)
			return
		}

		line = strings.TrimSpace(line)

		if line == "" {
			continue
		}

		quitVara := hub.Do(line)
		if quitVara {
			break
		}
	}
}

func makePrompt(hub *hub.Hub) string {
	if hub.GetCurrentServiceName() == "" {
		return text.PROMPT
	}
	return hub.GetCurrentServiceName() + " " + text.PROMPT
}
