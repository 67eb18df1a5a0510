// Package output renders API response bodies for the terminal.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// FormatError reports a body that could not be rendered as JSON. It is a
// warning: the body is still printed verbatim.
type FormatError struct {
	Err error
}

func (e *FormatError) Error() string { return fmt.Sprintf("response is not JSON: %v", e.Err) }

func (e *FormatError) Unwrap() error { return e.Err }

// Format renders body. Unless raw is set, a JSON object carrying a "result"
// field is reduced to that field. Output is compact unless pretty is set;
// object key order is preserved either way. A body that is not JSON comes
// back verbatim together with a *FormatError.
func Format(body []byte, raw, pretty bool) (string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "", nil
	}
	if !json.Valid(trimmed) {
		var v any
		err := json.Unmarshal(trimmed, &v)
		return string(body), &FormatError{Err: err}
	}

	out := trimmed
	if !raw {
		if result, ok := resultField(trimmed); ok {
			out = result
		}
	}

	var buf bytes.Buffer
	var err error
	if pretty {
		err = json.Indent(&buf, out, "", "  ")
	} else {
		err = json.Compact(&buf, out)
	}
	if err != nil {
		return string(body), &FormatError{Err: err}
	}
	return buf.String(), nil
}

func resultField(data []byte) (json.RawMessage, bool) {
	if data[0] != '{' {
		return nil, false
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, false
	}
	result, ok := envelope["result"]
	return result, ok
}

// Printer writes formatted bodies, one per line.
type Printer struct {
	Out    io.Writer
	Raw    bool
	Pretty bool
}

// Print formats body and writes it to p.Out. A *FormatError is returned
// after the verbatim body has been written.
func (p *Printer) Print(body []byte) error {
	text, ferr := Format(body, p.Raw, p.Pretty)
	if text == "" {
		return ferr
	}
	if _, err := io.WriteString(p.Out, text); err != nil {
		return err
	}
	if text[len(text)-1] != '\n' {
		if _, err := io.WriteString(p.Out, "\n"); err != nil {
			return err
		}
	}
	return ferr
}
