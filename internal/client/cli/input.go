package cli

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// prompt prints a label and reads one trimmed line.
func (a *App) prompt(label string) (string, error) {
	a.printf("%s", label)
	line, err := a.in.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func readPasswordFromTerminal() (string, error) {
	defer os.Stdout.WriteString("\n")
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
