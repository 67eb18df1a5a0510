package discovery

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/mark3labs/cloudflare-cli/internal/tree"
)

// Renderer prints human-readable discovery output.
type Renderer struct {
	w      io.Writer
	name   lipgloss.Style
	dim    lipgloss.Style
	method lipgloss.Style
	head   lipgloss.Style
}

// NewRenderer styles output for w. With color off every style renders as
// plain text.
func NewRenderer(w io.Writer, color bool) *Renderer {
	profile := termenv.Ascii
	if color {
		profile = termenv.ANSI256
	}
	lr := lipgloss.NewRenderer(w, termenv.WithProfile(profile))
	lr.SetColorProfile(profile)
	return &Renderer{
		w:      w,
		name:   lr.NewStyle().Bold(true),
		dim:    lr.NewStyle().Foreground(lipgloss.Color("245")),
		method: lr.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		head:   lr.NewStyle().Underline(true),
	}
}

// List prints one line per resource, optionally followed by its operations.
func (r *Renderer) List(t *tree.CommandTree, withOps bool) error {
	width := 0
	for _, res := range t.Resources {
		width = max(width, len(res.Name))
	}
	for i := range t.Resources {
		res := &t.Resources[i]
		if err := r.line("%s  %s", r.name.Render(pad(res.Name, width)), r.dim.Render(res.DisplayName)); err != nil {
			return err
		}
		if withOps {
			if err := r.operations(res, "  "); err != nil {
				return err
			}
		}
	}
	return nil
}

// Resource prints the operations of a single resource.
func (r *Renderer) Resource(res *tree.Resource) error {
	if err := r.line("%s  %s", r.name.Render(res.Name), r.dim.Render(res.DisplayName)); err != nil {
		return err
	}
	return r.operations(res, "  ")
}

func (r *Renderer) operations(res *tree.Resource, indent string) error {
	width := 0
	for _, op := range res.Operations {
		width = max(width, len(op.Name))
	}
	for _, op := range res.Operations {
		if err := r.line("%s%s  %s %s", indent, pad(op.Name, width), r.method.Render(pad(op.Method, 6)), op.Path); err != nil {
			return err
		}
	}
	return nil
}

// Describe prints the calling contract of one operation.
func (r *Renderer) Describe(resource string, op *tree.Operation) error {
	if err := r.line("%s %s", r.method.Render(op.Method), op.Path); err != nil {
		return err
	}
	if err := r.line("%s %s %s", r.name.Render("usage:"), resource, op.Name+usageSuffix(op)); err != nil {
		return err
	}
	if err := r.line("%s %s", r.name.Render("name:"), op.DisplayName); err != nil {
		return err
	}
	if op.Summary != "" {
		if err := r.line("%s %s", r.name.Render("summary:"), op.Summary); err != nil {
			return err
		}
	}
	if op.Description != "" {
		if err := r.line("%s %s", r.name.Render("description:"), strings.TrimSpace(op.Description)); err != nil {
			return err
		}
	}
	if len(op.Parameters) > 0 || op.HasBody {
		if err := r.line("%s", r.head.Render("parameters:")); err != nil {
			return err
		}
	}
	for _, p := range op.Parameters {
		req := "optional"
		if p.Required || p.Location == tree.InPath {
			req = "required"
		}
		typ := string(p.Type)
		if p.IsList() {
			typ = string(p.ValueType()) + "[]"
		}
		detail := fmt.Sprintf("(%s, %s, %s)", typ, p.Location, req)
		line := fmt.Sprintf("  --%s %s", p.Flag, r.dim.Render(detail))
		if p.Description != "" {
			line += "  " + firstLine(p.Description)
		}
		if err := r.line("%s", line); err != nil {
			return err
		}
	}
	if op.HasBody {
		if err := r.line("  --body, --body-file %s  JSON request body", r.dim.Render("(required)")); err != nil {
			return err
		}
	}
	return nil
}

// Tree prints the whole command tree as an outline.
func (r *Renderer) Tree(t *tree.CommandTree) error {
	if err := r.line("%s  %s", r.name.Render("cloudflare"), r.dim.Render(fmt.Sprintf("v%d %s", t.Version, t.Endpoint))); err != nil {
		return err
	}
	for i, res := range t.Resources {
		branch, stem := "├── ", "│   "
		if i == len(t.Resources)-1 {
			branch, stem = "└── ", "    "
		}
		if err := r.line("%s%s", branch, r.name.Render(res.Name)); err != nil {
			return err
		}
		for j, op := range res.Operations {
			leaf := "├── "
			if j == len(res.Operations)-1 {
				leaf = "└── "
			}
			if err := r.line("%s%s%s %s", stem, leaf, op.Name, r.dim.Render(op.Method+" "+op.Path)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Renderer) line(format string, args ...any) error {
	_, err := fmt.Fprintf(r.w, format+"\n", args...)
	return err
}

func usageSuffix(op *tree.Operation) string {
	var b strings.Builder
	for _, p := range op.PathParams() {
		fmt.Fprintf(&b, " <%s>", p.Name)
	}
	for _, p := range op.Parameters {
		if p.Required && p.Location != tree.InPath {
			fmt.Fprintf(&b, " --%s <%s>", p.Flag, p.ValueType())
		}
	}
	if op.HasBody {
		b.WriteString(" --body <json>")
	}
	return b.String()
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
