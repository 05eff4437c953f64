package summary

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/slok/revdeprun/internal/model"
)

// ErrNoSummary is returned when the captured output is empty.
var ErrNoSummary = errors.New("no summary output")

type jsonSummary struct {
	TodoCount      *int64   `json:"todo_count"`
	PrecacheFailed []string `json:"precache_failed"`
	Warnings       []string `json:"warnings"`
}

// Decode decodes the prepare summary from the captured stdout of a phase. The
// output must hold exactly one JSON object with the todo count, list fields
// are optional.
func Decode(stdout []byte) (*model.PrepareSummary, error) {
	if !utf8.Valid(stdout) {
		return nil, fmt.Errorf("summary output is not valid UTF-8")
	}

	data := bytes.TrimSpace(stdout)
	if len(data) == 0 {
		return nil, ErrNoSummary
	}
	if data[0] != '{' {
		return nil, fmt.Errorf("summary output is not a JSON object")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	var s jsonSummary
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("could not decode summary: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("summary output has data after the JSON object")
	}

	if s.TodoCount == nil {
		return nil, fmt.Errorf("summary is missing todo_count")
	}
	if *s.TodoCount < 0 {
		return nil, fmt.Errorf("summary todo_count must be non-negative, got %d", *s.TodoCount)
	}

	res := &model.PrepareSummary{
		TodoCount:      int(*s.TodoCount),
		PrecacheFailed: s.PrecacheFailed,
		Warnings:       s.Warnings,
	}
	if res.PrecacheFailed == nil {
		res.PrecacheFailed = []string{}
	}
	if res.Warnings == nil {
		res.Warnings = []string{}
	}

	return res, nil
}

// Printer prints standalone messages.
type Printer interface {
	Println(msg string)
}

// DecoderConfig is the summary decoder configuration.
type DecoderConfig struct {
	Reporter Printer
	// Label names the output when it's re-emitted.
	Label string
}

func (c *DecoderConfig) defaults() error {
	if c.Reporter == nil {
		return fmt.Errorf("reporter is required")
	}
	if c.Label == "" {
		c.Label = "summary"
	}
	return nil
}

// Decoder decodes summaries and re-emits the raw output when it's malformed.
type Decoder struct {
	reporter Printer
	label    string
}

// NewDecoder returns a new summary decoder.
func NewDecoder(cfg DecoderConfig) (*Decoder, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Decoder{reporter: cfg.Reporter, label: cfg.Label}, nil
}

// Decode is like the package level Decode.
func (d *Decoder) Decode(stdout []byte) (*model.PrepareSummary, error) {
	s, err := Decode(stdout)
	if err != nil {
		if !errors.Is(err, ErrNoSummary) {
			d.reporter.Println(fmt.Sprintf("%s raw output:\n%s", d.label, string(stdout)))
		}
		return nil, err
	}

	return s, nil
}
