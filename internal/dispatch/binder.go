// Package dispatch binds command-line arguments to an operation of the
// command tree and builds the HTTP request for it.
package dispatch

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/mark3labs/cloudflare-cli/internal/suggest"
	"github.com/mark3labs/cloudflare-cli/internal/tree"
)

// Bound holds the validated values of one invocation, in operation
// parameter order. Only parameters that received a value are present.
type Bound struct {
	Params  []BoundParam
	Body    []byte // nil when neither --body nor --body-file was given
	Headers []string
	Raw     bool
	Pretty  bool
}

type BoundParam struct {
	tree.Param
	Values []string
}

// Lookup returns the bound value of the named parameter at loc.
func (b *Bound) Lookup(name string, loc tree.Location) (BoundParam, bool) {
	for _, p := range b.Params {
		if p.Name == name && p.Location == loc {
			return p, true
		}
	}
	return BoundParam{}, false
}

// Binder parses the arguments of one operation invocation.
type Binder struct {
	// Defaults fills parameters, by name, that were not given on the
	// command line.
	Defaults map[string]string
	// Globals are parsed alongside the operation flags so they may appear
	// anywhere on the command line.
	Globals *pflag.FlagSet
	// Stdin backs --body-file -.
	Stdin io.Reader
}

// IdentifierDefaults maps account and zone identifiers onto every
// parameter name the Cloudflare API uses for them.
func IdentifierDefaults(accountID, zoneID string) map[string]string {
	out := map[string]string{}
	if accountID != "" {
		for _, name := range []string{"account_id", "account_identifier", "accountId"} {
			out[name] = accountID
		}
	}
	if zoneID != "" {
		for _, name := range []string{"zone_id", "zone_identifier", "zoneId"} {
			out[name] = zoneID
		}
	}
	return out
}

// Bind parses args against op. Flags follow pflag syntax (--name value or
// --name=value); positional arguments fill unset path parameters in template
// order. pflag.ErrHelp is returned unchanged when --help or -h is given.
func (b *Binder) Bind(op *tree.Operation, args []string) (*Bound, error) {
	fs := pflag.NewFlagSet(op.Name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	values := make([]*paramValue, len(op.Parameters))
	for i, p := range op.Parameters {
		v := &paramValue{param: p}
		values[i] = v
		f := fs.VarPF(v, p.Flag, "", p.Description)
		if p.Type == tree.TypeBoolean {
			f.NoOptDefVal = "true"
		}
	}

	var body, bodyFile string
	if op.HasBody {
		fs.StringVar(&body, "body", "", "JSON request body")
		fs.StringVar(&bodyFile, "body-file", "", "Read the JSON request body from a file (- for stdin)")
	}
	headers := fs.StringArray("header", nil, "Extra request header as key:value (repeatable)")
	raw := fs.Bool("raw", false, "Print the full response envelope")
	pretty := fs.Bool("pretty", false, "Indent JSON output")
	if b.Globals != nil {
		fs.AddFlagSet(b.Globals)
	}

	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil, err
		}
		for _, v := range values {
			if v.failure != nil {
				return nil, v.failure
			}
		}
		return nil, translateFlagError(err, fs)
	}

	bound := &Bound{Headers: *headers, Raw: *raw, Pretty: *pretty}

	if err := b.fillPositional(op, values, fs.Args()); err != nil {
		return nil, err
	}

	for _, v := range values {
		if !v.set {
			if def, ok := b.Defaults[v.param.Name]; ok && def != "" {
				if err := v.Set(def); err != nil {
					return nil, v.failure
				}
			}
		}
		if !v.set {
			if v.param.Required || v.param.Location == tree.InPath {
				return nil, &UsageError{Kind: MissingRequiredParameter, Name: v.param.Name, Flag: v.param.Flag}
			}
			continue
		}
		bound.Params = append(bound.Params, BoundParam{Param: v.param, Values: v.values})
	}

	if op.HasBody {
		data, err := b.LoadBody(fs.Changed("body"), body, bodyFile)
		if err != nil {
			return nil, err
		}
		bound.Body = data
	}
	return bound, nil
}

// fillPositional assigns positional arguments to path parameters not set by
// flag, in template order. With fewer arguments than open parameters, the
// parameters that have a default are skipped first.
func (b *Binder) fillPositional(op *tree.Operation, values []*paramValue, args []string) error {
	byName := map[string]*paramValue{}
	for _, v := range values {
		if v.param.Location == tree.InPath {
			byName[v.param.Name] = v
		}
	}
	var open []*paramValue
	for _, p := range op.PathParams() {
		if v := byName[p.Name]; v != nil && !v.set {
			open = append(open, v)
		}
	}
	if skip := len(open) - len(args); skip > 0 {
		kept := open[:0]
		for _, v := range open {
			if skip > 0 && b.Defaults[v.param.Name] != "" {
				skip--
				continue
			}
			kept = append(kept, v)
		}
		open = kept
	}
	for _, v := range open {
		if len(args) == 0 {
			return nil
		}
		if err := v.Set(args[0]); err != nil {
			return v.failure
		}
		args = args[1:]
	}
	if len(args) > 0 {
		return &UsageError{Kind: InvalidArgument, Name: fmt.Sprintf("unexpected argument %q", args[0])}
	}
	return nil
}

// LoadBody resolves --body and --body-file into the raw request body. inline
// reports whether --body was given; a file of "-" reads b.Stdin.
func (b *Binder) LoadBody(inline bool, body, file string) ([]byte, error) {
	switch {
	case inline && file != "":
		return nil, &UsageError{Kind: InvalidArgument, Name: "--body and --body-file are mutually exclusive"}
	case inline:
		return []byte(body), nil
	case file == "-":
		in := b.Stdin
		if in == nil {
			in = os.Stdin
		}
		data, err := io.ReadAll(in)
		if err != nil {
			return nil, &UsageError{Kind: InvalidArgument, Err: fmt.Errorf("read body from stdin: %w", err)}
		}
		return data, nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, &UsageError{Kind: InvalidArgument, Err: fmt.Errorf("read --body-file: %w", err)}
		}
		return data, nil
	}
	return nil, nil
}

// translateFlagError turns pflag's parse errors into UsageErrors, adding a
// suggestion for mistyped flags.
func translateFlagError(err error, fs *pflag.FlagSet) error {
	msg := err.Error()
	if name, ok := strings.CutPrefix(msg, "unknown flag: --"); ok {
		var defined []string
		fs.VisitAll(func(f *pflag.Flag) { defined = append(defined, f.Name) })
		return &UsageError{Kind: UnknownParameter, Name: "--" + name, Suggestion: suggest.Closest(name, defined)}
	}
	if strings.HasPrefix(msg, "unknown shorthand flag") {
		return &UsageError{Kind: UnknownParameter, Name: msg}
	}
	return &UsageError{Kind: InvalidArgument, Err: err}
}

// paramValue is the pflag.Value behind every parameter flag. Values are
// coerced on Set so a type mismatch surfaces with the parameter's name.
type paramValue struct {
	param   tree.Param
	values  []string
	set     bool
	failure *UsageError
}

func (v *paramValue) String() string { return strings.Join(v.values, ",") }

func (v *paramValue) Type() string { return string(v.param.Type) }

func (v *paramValue) Set(s string) error {
	items := []string{s}
	if v.param.IsList() {
		items = splitList(s)
		if len(items) == 0 {
			v.failure = &UsageError{
				Kind:     TypeMismatch,
				Name:     v.param.Name,
				Flag:     v.param.Flag,
				Expected: "a comma-separated list of " + string(v.param.ValueType()),
				Got:      s,
			}
			return v.failure
		}
	} else {
		v.values = nil
	}
	for _, item := range items {
		canon, ok := coerce(item, v.param.ValueType())
		if !ok {
			v.failure = &UsageError{
				Kind:     TypeMismatch,
				Name:     v.param.Name,
				Flag:     v.param.Flag,
				Expected: string(v.param.ValueType()),
				Got:      item,
			}
			return v.failure
		}
		v.values = append(v.values, canon)
	}
	v.set = true
	return nil
}

// splitList accepts comma-separated values in a single flag occurrence.
// Blank items are dropped, so an all-blank value yields nothing.
func splitList(s string) []string {
	if !strings.Contains(s, ",") {
		if strings.TrimSpace(s) == "" {
			return nil
		}
		return []string{s}
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func coerce(s string, t tree.ParamType) (string, bool) {
	switch t {
	case tree.TypeInteger:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return "", false
		}
		return strconv.FormatInt(n, 10), true
	case tree.TypeNumber:
		trimmed := strings.TrimSpace(s)
		if _, err := strconv.ParseFloat(trimmed, 64); err != nil {
			return "", false
		}
		return trimmed, true
	case tree.TypeBoolean:
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return "", false
		}
		return strconv.FormatBool(b), true
	}
	return s, true
}
