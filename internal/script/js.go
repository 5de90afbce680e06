package script

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/robertkrimen/otto"
	"github.com/robertkrimen/otto/parser"
)

type (
	// jsEnv executes JavaScript on a fresh otto interpreter per call.
	// The host halts a runaway script through the interpreter's interrupt
	// channel; nothing inside the script cooperates in its own timeout
	jsEnv struct{}

	jsInterrupt struct{}
)

var ErrJSSyntax = errors.New("javascript syntax error")

func newJSEnv() *jsEnv {
	return &jsEnv{}
}

func (e *jsEnv) Run(
	ctx context.Context, inv *invocation,
) (out *outcome, err error) {
	vm := otto.New()
	vm.Interrupt = make(chan func(), 1)

	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt <- func() { panic(jsInterrupt{}) }
		case <-finished:
		}
	}()

	defer func() {
		if caught := recover(); caught != nil {
			if _, ok := caught.(jsInterrupt); ok {
				out, err = nil, ctx.Err()
				return
			}
			panic(caught)
		}
	}()

	result := &outcome{}
	if err := e.bind(vm, inv, result); err != nil {
		return nil, err
	}

	if _, runErr := vm.Run(normalizeSource(inv.code)); runErr != nil {
		return nil, errors.New(runErr.Error())
	}
	return result, nil
}

// Check syntax-checks JavaScript without executing it
func (e *jsEnv) Check(code string) ([]string, error) {
	src := normalizeSource(code)
	if _, err := parser.ParseFile(nil, "", src, 0); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrJSSyntax, err)
	}
	return nil, nil
}

// normalizeSource rewrites block-scoped declaration keywords to var so
// scripts written in current JavaScript still run on the ES5 interpreter.
// String literals, comments, property accesses, and object keys are left
// untouched. Regular expression literals are not tracked
func normalizeSource(code string) string {
	var b strings.Builder
	b.Grow(len(code))
	for i := 0; i < len(code); {
		c := code[i]
		switch {
		case c == '/' && i+1 < len(code) && code[i+1] == '/':
			j := strings.IndexByte(code[i:], '\n')
			if j < 0 {
				j = len(code) - i
			}
			b.WriteString(code[i : i+j])
			i += j

		case c == '/' && i+1 < len(code) && code[i+1] == '*':
			end := strings.Index(code[i+2:], "*/")
			if end < 0 {
				b.WriteString(code[i:])
				i = len(code)
				continue
			}
			b.WriteString(code[i : i+end+4])
			i += end + 4

		case c == '"' || c == '\'':
			j := skipStringLiteral(code, i)
			b.WriteString(code[i:j])
			i = j

		case isIdentStart(c):
			j := i + 1
			for j < len(code) && isIdentPart(code[j]) {
				j++
			}
			word := code[i:j]
			if isDeclKeyword(word) && isDeclPosition(code, i, j) {
				b.WriteString("var")
			} else {
				b.WriteString(word)
			}
			i = j

		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

func isDeclKeyword(word string) bool {
	return word == "const" || word == "let"
}

// isDeclPosition reports whether the keyword at [start, end) is a
// declaration rather than a property access or an object literal key
func isDeclPosition(code string, start, end int) bool {
	for i := start - 1; i >= 0; i-- {
		switch code[i] {
		case ' ', '\t', '\r', '\n':
			continue
		case '.':
			return false
		}
		break
	}
	for i := end; i < len(code); i++ {
		switch code[i] {
		case ' ', '\t', '\r', '\n':
			continue
		case ':':
			return false
		}
		break
	}
	return true
}

func skipStringLiteral(code string, start int) int {
	quote := code[start]
	for i := start + 1; i < len(code); i++ {
		switch code[i] {
		case '\\':
			i++
		case quote:
			return i + 1
		}
	}
	return len(code)
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func (e *jsEnv) bind(
	vm *otto.Otto, inv *invocation, result *outcome,
) error {
	if err := vm.Set("input", inv.input); err != nil {
		return err
	}
	if err := vm.Set("context", inv.context); err != nil {
		return err
	}
	if err := e.bindHelpers(vm, inv); err != nil {
		return err
	}

	err := vm.Set("emit", func(call otto.FunctionCall) otto.Value {
		value, _ := call.Argument(0).Export()
		result.value = value
		result.emitCount++
		return otto.UndefinedValue()
	})
	if err != nil {
		return err
	}

	if inv.console != nil {
		return e.bindConsole(vm, inv.console)
	}
	return nil
}

// bindHelpers installs the builtin helper namespace, then overlays the
// caller's entries so caller keys win
func (e *jsEnv) bindHelpers(vm *otto.Otto, inv *invocation) error {
	obj, err := vm.Object("({})")
	if err != nil {
		return err
	}
	for name, fn := range builtinHelpers() {
		if err := obj.Set(name, fn); err != nil {
			return err
		}
	}
	for name, value := range inv.helpers {
		if err := obj.Set(name, value); err != nil {
			return err
		}
	}
	return vm.Set("helpers", obj)
}

func (e *jsEnv) bindConsole(vm *otto.Otto, sink *consoleSink) error {
	capture := func(call otto.FunctionCall) otto.Value {
		args := make([]any, len(call.ArgumentList))
		for i, arg := range call.ArgumentList {
			args[i], _ = arg.Export()
		}
		sink.record(args)
		return otto.UndefinedValue()
	}

	obj, err := vm.Object("({})")
	if err != nil {
		return err
	}
	for _, level := range []string{"log", "warn", "error"} {
		if err := obj.Set(level, capture); err != nil {
			return err
		}
	}
	return vm.Set("console", obj)
}
