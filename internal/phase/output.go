package phase

import (
	"fmt"
	"strings"

	"github.com/slok/revdeprun/internal/model"
)

// Printer prints standalone messages.
type Printer interface {
	Println(msg string)
}

// EmitOutput forwards the captured streams of a process to the operator as
// diagnostic text. Streams are trimmed and empty ones are skipped.
func EmitOutput(p Printer, label string, o *model.Outcome) {
	if o == nil {
		return
	}

	if stdout := strings.TrimSpace(string(o.Stdout)); stdout != "" {
		p.Println(fmt.Sprintf("%s stdout:\n%s", label, stdout))
	}
	if stderr := strings.TrimSpace(string(o.Stderr)); stderr != "" {
		p.Println(fmt.Sprintf("%s stderr:\n%s", label, stderr))
	}
}
