package view

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/spf13/cast"
)

// @for headers are interpreted, never executed as code. Supported forms:
//
//	@for(let i = 0; i < items.length; i++)
//	@for(let i = 10, j = 0; i > j; i -= 2, j++)
//	@for(const item of items)
//	@for(let key in user)
//
// Conditions and right-hand sides are evaluated with expr.
var (
	declRe       = regexp.MustCompile(`(?:var|let|const)\s+([a-zA-Z_$][\w$]*)`)
	iteratorRe   = regexp.MustCompile(`^\s*(?:(?:var|let|const)\s+)?([A-Za-z_]\w*)\s+(of|in)\s+([A-Za-z_][\w.]*)\s*$`)
	assignRe     = regexp.MustCompile(`^\s*(?:(?:var|let|const)\s+)?([A-Za-z_]\w*)\s*=([^=].*)$`)
	compoundRe   = regexp.MustCompile(`^\s*([A-Za-z_]\w*)\s*([-+*/%])=([^=].*)$`)
	incrementRe  = regexp.MustCompile(`^\s*(?:(\+\+|--)\s*([A-Za-z_]\w*)|([A-Za-z_]\w*)\s*(\+\+|--))\s*$`)
	lengthRe     = regexp.MustCompile(`([A-Za-z_]\w*(?:\.[A-Za-z_]\w*)*)\.length\b`)
	identifierRe = regexp.MustCompile(`^[A-Za-z_]\w*$`)
	placeholdRe  = regexp.MustCompile(`\{\{\s*([a-zA-Z_$][\w$]*)\s*\}\}`)
)

// processForLoops expands every @for block. A block that fails to evaluate
// becomes "".
func (e *Engine) processForLoops(content string, data map[string]interface{}) string {
	return replaceMatches(forBlockRe, content, func(_ int, m []string) string {
		out, err := e.expandFor(m[1], m[2], data)
		if err != nil {
			e.logger.Debug("@for block dropped", "error", err)
			e.metrics.failed("for")
			return ""
		}
		return out
	})
}

func (e *Engine) expandFor(header, body string, data map[string]interface{}) (string, error) {
	loop, err := compileLoop(header)
	if err != nil {
		return "", fmt.Errorf("%w: @for(%s): %v", ErrDirectiveEvaluation, header, err)
	}

	// Loop-declared names and context keys are substituted in the body.
	names := make(map[string]bool)
	for _, m := range declRe.FindAllStringSubmatch(header, -1) {
		names[m[1]] = true
	}
	env := make(map[string]interface{}, len(data)+len(names))
	for k, v := range data {
		names[k] = true
		if identifierRe.MatchString(k) {
			env[k] = v
		}
	}

	var b strings.Builder
	iterations := 0
	emit := func() error {
		iterations++
		if iterations > e.forLimit {
			return errIterationLimit
		}
		b.WriteString(placeholdRe.ReplaceAllStringFunc(body, func(ph string) string {
			name := placeholdRe.FindStringSubmatch(ph)[1]
			if !names[name] {
				return ph
			}
			v, ok := env[name]
			if !ok {
				return toText(undefined)
			}
			return toText(v)
		}))
		return nil
	}

	if err := loop.run(env, data, emit); err != nil {
		return "", fmt.Errorf("%w: @for(%s): %v", ErrDirectiveEvaluation, header, err)
	}
	return b.String(), nil
}

type assignment struct {
	name string
	prog *vm.Program
}

type forLoop struct {
	// three-clause form
	init []assignment
	cond *vm.Program
	step []assignment

	// iterator form
	iterVar  string
	iterMode string
	iterPath string
}

func compileLoop(header string) (*forLoop, error) {
	if m := iteratorRe.FindStringSubmatch(header); m != nil {
		return &forLoop{iterVar: m[1], iterMode: m[2], iterPath: m[3]}, nil
	}

	clauses := splitTopLevel(header, ';')
	if len(clauses) != 3 {
		return nil, fmt.Errorf("expected 3 clauses, got %d", len(clauses))
	}

	loop := &forLoop{}
	opts := jsOptions(strictHeader(header))
	for _, part := range splitTopLevel(clauses[0], ',') {
		if strings.TrimSpace(part) == "" {
			continue
		}
		m := assignRe.FindStringSubmatch(part)
		if m == nil {
			return nil, fmt.Errorf("unsupported initializer %q", strings.TrimSpace(part))
		}
		prog, err := compileJS(m[2], opts)
		if err != nil {
			return nil, err
		}
		loop.init = append(loop.init, assignment{name: m[1], prog: prog})
	}

	if cond := strings.TrimSpace(clauses[1]); cond != "" {
		prog, err := compileJS(cond, opts)
		if err != nil {
			return nil, err
		}
		loop.cond = prog
	}

	for _, part := range splitTopLevel(clauses[2], ',') {
		if strings.TrimSpace(part) == "" {
			continue
		}
		step, err := compileStep(part, opts)
		if err != nil {
			return nil, err
		}
		loop.step = append(loop.step, step)
	}
	return loop, nil
}

func compileStep(part string, opts []expr.Option) (assignment, error) {
	if m := incrementRe.FindStringSubmatch(part); m != nil {
		name, op := m[2], m[1]
		if name == "" {
			name, op = m[3], m[4]
		}
		// ++ and -- always count, even on string values.
		code := "+" + name + " + 1"
		if op == "--" {
			code = "+" + name + " - 1"
		}
		prog, err := compileJS(code, opts)
		return assignment{name: name, prog: prog}, err
	}
	if m := compoundRe.FindStringSubmatch(part); m != nil {
		prog, err := compileJS(fmt.Sprintf("%s %s (%s)", m[1], m[2], m[3]), opts)
		return assignment{name: m[1], prog: prog}, err
	}
	if m := assignRe.FindStringSubmatch(part); m != nil {
		prog, err := compileJS(m[2], opts)
		return assignment{name: m[1], prog: prog}, err
	}
	return assignment{}, fmt.Errorf("unsupported update %q", strings.TrimSpace(part))
}

// compileJS maps the few browser-isms a loop header uses onto expr syntax.
// Operators keep their browser coercions through opts.
func compileJS(code string, opts []expr.Option) (*vm.Program, error) {
	code = strings.TrimSpace(code)
	code = strings.ReplaceAll(code, "!==", "!=")
	code = strings.ReplaceAll(code, "===", "==")
	code = lengthRe.ReplaceAllString(code, "len($1)")
	return expr.Compile(code, opts...)
}

// strictHeader reports whether every equality test in header is === or !==.
// A header mixing both forms compares loosely throughout.
func strictHeader(header string) bool {
	if !strings.Contains(header, "===") && !strings.Contains(header, "!==") {
		return false
	}
	rest := strings.ReplaceAll(strings.ReplaceAll(header, "===", ""), "!==", "")
	return !strings.Contains(rest, "==") && !strings.Contains(rest, "!=")
}

func (l *forLoop) run(env, data map[string]interface{}, emit func() error) error {
	if l.iterVar != "" {
		return l.iterate(env, data, emit)
	}

	for _, a := range l.init {
		if err := a.apply(env); err != nil {
			return err
		}
	}
	for {
		if l.cond != nil {
			ok, err := expr.Run(l.cond, env)
			if err != nil {
				return err
			}
			if !isTruthy(ok) {
				return nil
			}
		}
		if err := emit(); err != nil {
			return err
		}
		for _, a := range l.step {
			if err := a.apply(env); err != nil {
				return err
			}
		}
	}
}

func (a assignment) apply(env map[string]interface{}) error {
	v, err := expr.Run(a.prog, env)
	if err != nil {
		return err
	}
	env[a.name] = v
	return nil
}

func (l *forLoop) iterate(env, data map[string]interface{}, emit func() error) error {
	target, found := lookupPath(l.iterPath, data)
	if !found {
		// Locals are not part of data; allow iterating those too.
		target, found = env[l.iterPath]
	}

	var values []interface{}
	switch l.iterMode {
	case "of":
		switch {
		case !found || target == nil:
			return fmt.Errorf("%s is not iterable", l.iterPath)
		case isSequence(target):
			values = sequenceItems(target)
		default:
			s, ok := target.(string)
			if !ok {
				return fmt.Errorf("%s is not iterable", l.iterPath)
			}
			for _, r := range s {
				values = append(values, string(r))
			}
		}
	case "in":
		if found && target != nil {
			values = keysOf(target)
		}
	}

	for _, v := range values {
		env[l.iterVar] = v
		if err := emit(); err != nil {
			return err
		}
	}
	return nil
}

// keysOf lists enumerable keys: indices for sequences and strings, sorted keys
// for mappings.
func keysOf(v interface{}) []interface{} {
	if s, ok := v.(string); ok {
		keys := make([]interface{}, 0, len(s))
		for i := range []rune(s) {
			keys = append(keys, strconv.Itoa(i))
		}
		return keys
	}
	if isSequence(v) {
		n := len(sequenceItems(v))
		keys := make([]interface{}, n)
		for i := range keys {
			keys[i] = strconv.Itoa(i)
		}
		return keys
	}

	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Map {
		return nil
	}
	names := make([]string, 0, rv.Len())
	for _, k := range rv.MapKeys() {
		names = append(names, cast.ToString(k.Interface()))
	}
	sort.Strings(names)
	keys := make([]interface{}, len(names))
	for i, n := range names {
		keys[i] = n
	}
	return keys
}

// splitTopLevel splits on sep outside quotes and brackets.
func splitTopLevel(s string, sep rune) []string {
	var (
		parts []string
		depth int
		quote rune
		start int
	)
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == '(' || r == '[' || r == '{':
			depth++
		case r == ')' || r == ']' || r == '}':
			depth--
		case r == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
