package accounts

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"
)

// ConfirmationLink joins base and the url escaped token.
func ConfirmationLink(base, token string) string {
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(token)
}

// ConsoleNotifier writes confirmation messages to a writer. Meant for
// development; the output contains live tokens.
type ConsoleNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleNotifier writes to out, or stdout when out is nil.
func NewConsoleNotifier(out io.Writer) *ConsoleNotifier {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleNotifier{out: out}
}

func (n *ConsoleNotifier) SendConfirmation(_ context.Context, email, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	_, err := fmt.Fprintf(n.out, "To: %s\nSubject: Confirm your email\n\nFollow this link to confirm your account:\n%s\n\n", email, link)
	return err
}
