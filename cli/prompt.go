package cli

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"
)

var ErrNoTerminal = errors.New("secret not configured and stdin is not a terminal")

// SecretReader obtains a secret that was not supplied by flag, file or environment.
type SecretReader interface {
	ReadSecret(prompt string) ([]byte, error)
}

type terminalSecretReader struct {
	in  *os.File
	out *os.File
}

// NewTerminalSecretReader prompts on stderr and reads from stdin without echo.
func NewTerminalSecretReader() SecretReader {
	return &terminalSecretReader{in: os.Stdin, out: os.Stderr}
}

func (r *terminalSecretReader) ReadSecret(prompt string) ([]byte, error) {
	fd := int(r.in.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("%w: %s", ErrNoTerminal, prompt)
	}

	fmt.Fprintf(r.out, "%s: ", prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(r.out)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", prompt, err)
	}
	return secret, nil
}
