// Package script embeds a sandboxed Lisp interpreter for bulk tree
// operations. Organizing a few hundred tabs one drag at a time is tedious;
// a console line like
//
//	(move-under (find-tab "Paper.pdf") (make-group "Thesis"))
//
// does it in one step. User code runs in a zygomys sandbox with no
// filesystem or syscall access, and only the registered tree builtins can
// touch the session.
package script

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/colobas/zotero-tree-style-tabs/pkg/tabtree"
)

// EvalTimeout is the hard limit for a single script run.
const EvalTimeout = 5 * time.Second

// EvalError is a non-fatal script error: a parse error or a runtime error
// in user code.
type EvalError struct {
	Line    int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Result is the outcome of one script run.
type Result struct {
	Output string
	Errors []EvalError
}

// Console runs scripts against a session. Each run builds a fresh sandbox
// so scripts cannot leak state into each other.
type Console struct {
	session *tabtree.Session

	mu         sync.Mutex
	generation uint64
}

// New creates a Console over the given session.
func New(session *tabtree.Session) *Console {
	return &Console{session: session}
}

// Run evaluates one script. Panics inside the interpreter are contained,
// and a run exceeding EvalTimeout is abandoned: its eventual result is
// discarded via a generation check, exactly so a runaway loop cannot wedge
// the sidebar.
func (c *Console) Run(source string) Result {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	type outcome struct {
		out  string
		errs []EvalError
	}
	ch := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{errs: []EvalError{{Message: fmt.Sprintf("panic during evaluation: %v", r)}}}
			}
		}()
		out, errs := c.evaluate(source)
		ch <- outcome{out: out, errs: errs}
	}()

	timer := time.NewTimer(EvalTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		c.mu.Lock()
		current := c.generation
		c.mu.Unlock()
		if gen != current {
			return Result{Errors: []EvalError{{Message: "evaluation superseded by newer request"}}}
		}
		return Result{Output: res.out, Errors: res.errs}
	case <-timer.C:
		return Result{Errors: []EvalError{{Message: fmt.Sprintf("evaluation timed out after %s", EvalTimeout)}}}
	}
}

// evaluate runs the script in a fresh sandbox.
func (c *Console) evaluate(source string) (string, []EvalError) {
	if strings.TrimSpace(source) == "" {
		return "", nil
	}

	env := zygo.NewZlispSandbox()
	defer env.Stop()

	registerBuiltins(env, c.session)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return "", parseZygomysError(err)
	}
	result, err := env.Run()
	if err != nil {
		return "", parseZygomysError(err)
	}
	if result == nil || result == zygo.SexpNull {
		return "", nil
	}
	return result.SexpString(nil), nil
}

// preprocessSource adapts the console dialect to zygomys: kebab-case
// builtin names become underscore form (zygomys reads a bare hyphen as
// subtraction), and traditional ; comments become // comments. String
// literal boundaries are respected.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/8)
	b := []byte(source)
	i := 0
	for i < len(b) {
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ';' {
			result = append(result, '/', '/')
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStart(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isIdentStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// linePattern matches zygomys errors of the form "Error on line N: ...".
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches the simpler "line N: ..." form.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into EvalError values,
// extracting line numbers where the message carries them.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()
	if m := linePattern.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
	}
	if m := linePatternShort.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
