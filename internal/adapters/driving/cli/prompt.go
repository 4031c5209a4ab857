package cli

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// stdinIsTerminal is replaced in tests.
var stdinIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

// confirm asks a yes/no question on the command's input.
func confirm(cmd *cobra.Command, question string) bool {
	cmd.Printf("%s [y/N]: ", question)
	answer := strings.ToLower(readLine(bufio.NewReader(cmd.InOrStdin())))
	return answer == "y" || answer == "yes"
}

// readPassword reads a secret without echo when stdin is a terminal.
func readPassword(cmd *cobra.Command, prompt string) string {
	cmd.Print(prompt)
	if stdinIsTerminal() && cmd.InOrStdin() == io.Reader(os.Stdin) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		cmd.Println()
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	return readLine(bufio.NewReader(cmd.InOrStdin()))
}

func maskSecret(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:2] + "..." + secret[len(secret)-2:]
}
