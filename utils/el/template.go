// Package el evaluates ${} templates with expr expressions inside them.
// A template that is a single ${expr} yields the expression's value with its
// type preserved; mixed templates render to strings.
package el

import (
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/spitbreak/qpid/utils/str"
)

type Template interface {
	Parse() error
	Execute(data map[string]any) (interface{}, error)
	// HasVar reports whether the template contains a variable.
	HasVar() bool
}

// NewTemplate picks the template implementation for tmpl: a pure ${expr}
// becomes an ExprTemplate, text with embedded ${} a MixedTemplate, plain
// text a NotTemplate. Non-string values pass through unchanged.
func NewTemplate(tmpl any) (Template, error) {
	if v, ok := tmpl.(string); ok {
		trimV := strings.TrimSpace(v)
		if strings.HasPrefix(trimV, str.VarPrefix) && strings.HasSuffix(trimV, str.VarSuffix) && strings.Count(trimV, str.VarPrefix) == 1 {
			return NewExprTemplate(v)
		} else if str.CheckHasVar(v) {
			return NewMixedTemplate(v)
		} else {
			return &NotTemplate{Tmpl: v}, nil
		}
	}
	return &AnyTemplate{Tmpl: tmpl}, nil
}

// ExprTemplate evaluates a single ${expr} with the expr engine.
type ExprTemplate struct {
	Tmpl    string
	Program *vm.Program
	vm      vm.VM
}

var varRegex = regexp.MustCompile(`\$\{([^}]*)\}`)

func NewExprTemplate(tmpl string) (*ExprTemplate, error) {
	// strip the ${} wrapper, leaving the bare expression
	if m := varRegex.FindStringSubmatch(strings.TrimSpace(tmpl)); len(m) == 2 {
		tmpl = m[1]
	}
	t := &ExprTemplate{Tmpl: tmpl}
	if err := t.Parse(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *ExprTemplate) Parse() error {
	if program, err := expr.Compile(t.Tmpl, expr.AllowUndefinedVariables()); err != nil {
		return err
	} else {
		t.Program = program
	}
	return nil
}

func (t *ExprTemplate) Execute(data map[string]any) (interface{}, error) {
	if t.Program != nil {
		return t.vm.Run(t.Program, data)
	}
	return nil, nil
}

func (t *ExprTemplate) HasVar() bool {
	return true
}

// NotTemplate returns its text unchanged.
type NotTemplate struct {
	Tmpl string
}

func (t *NotTemplate) Parse() error {
	return nil
}

func (t *NotTemplate) Execute(data map[string]any) (interface{}, error) {
	return t.Tmpl, nil
}

func (t *NotTemplate) HasVar() bool {
	return false
}

// AnyTemplate returns a non-string value unchanged.
type AnyTemplate struct {
	Tmpl any
}

func (t *AnyTemplate) Parse() error {
	return nil
}

func (t *AnyTemplate) Execute(data map[string]any) (interface{}, error) {
	return t.Tmpl, nil
}

func (t *AnyTemplate) HasVar() bool {
	return false
}

// MixedTemplate renders text with embedded ${expr} variables, e.g.
// "sensor/${device.id}/state".
type MixedTemplate struct {
	Tmpl      string
	variables []struct {
		start int
		end   int
		expr  *vm.Program
	}
	hasVars bool
}

func NewMixedTemplate(tmpl string) (*MixedTemplate, error) {
	t := &MixedTemplate{Tmpl: tmpl}
	if err := t.Parse(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *MixedTemplate) Parse() error {
	if !strings.Contains(t.Tmpl, str.VarPrefix) {
		t.hasVars = false
		return nil
	}

	t.hasVars = true
	for _, loc := range varRegex.FindAllStringSubmatchIndex(t.Tmpl, -1) {
		varExpr := t.Tmpl[loc[2]:loc[3]]
		program, err := expr.Compile(varExpr, expr.AllowUndefinedVariables())
		if err != nil {
			return err
		}
		t.variables = append(t.variables, struct {
			start int
			end   int
			expr  *vm.Program
		}{
			start: loc[0],
			end:   loc[1],
			expr:  program,
		})
	}
	return nil
}

func (t *MixedTemplate) Execute(data map[string]any) (interface{}, error) {
	if !t.hasVars || len(t.variables) == 0 {
		return t.Tmpl, nil
	}

	var sb strings.Builder
	lastPos := 0
	vm := vm.VM{}
	for _, v := range t.variables {
		sb.WriteString(t.Tmpl[lastPos:v.start])
		val, err := vm.Run(v.expr, data)
		if err != nil {
			return nil, err
		}
		sb.WriteString(str.ToString(val))
		lastPos = v.end
	}
	sb.WriteString(t.Tmpl[lastPos:])
	return sb.String(), nil
}

func (t *MixedTemplate) ExecuteAsString(data map[string]any) string {
	val, _ := t.Execute(data)
	return str.ToString(val)
}

func (t *MixedTemplate) HasVar() bool {
	return t.hasVars
}
