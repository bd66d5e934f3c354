// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package trigger

import (
	"errors"
	"fmt"
	"strings"
)

// Operator joins two operands of an Expression.
type Operator int

const (
	// OpAnd requires both operands.
	OpAnd Operator = iota
	// OpOr requires either operand.
	OpOr
)

// String returns the operator token.
func (o Operator) String() string {
	if o == OpOr {
		return Or
	}
	return And
}

// Operand is either a Leaf or a nested *Expression.
type Operand interface {
	operand()
}

// Leaf is an operand bound to a single task output.
type Leaf struct {
	Ref Ref
}

func (Leaf) operand() {}

// Term is an operator followed by the operand it applies.
type Term struct {
	Op      Operator
	Operand Operand
}

// Resolver binds an operand token to the task output it names.
type Resolver func(token string) (Ref, error)

// Expression is a built trigger expression. Each node mirrors one level of
// explicit parentheses in the source text.
type Expression struct {
	first       Operand
	rest        []Term
	conditional bool
}

func (*Expression) operand() {}

// Compile parses text and builds it with resolve.
func Compile(text string, resolve Resolver) (*Expression, error) {
	nested, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return build(nested, resolve, strings.TrimSpace(text))
}

// Build binds a parsed group into an Expression. Operands must sit at even
// positions and "&" or "|" at odd positions; anything else, or an operand
// resolve rejects, fails with a *TriggerExpressionError.
func Build(nested Group, resolve Resolver) (*Expression, error) {
	return build(nested, resolve, nested.String())
}

func build(g Group, resolve Resolver, text string) (*Expression, error) {
	if len(g) == 0 {
		return nil, &TriggerExpressionError{Expression: text, Cause: errors.New("empty expression")}
	}
	if len(g)%2 == 0 {
		return nil, &TriggerExpressionError{Expression: text, Token: elementText(g[len(g)-1])}
	}

	e := &Expression{}
	var op Operator
	for i, el := range g {
		if i%2 == 1 {
			switch el {
			case Word(And):
				op = OpAnd
			case Word(Or):
				op = OpOr
				e.conditional = true
			default:
				return nil, &TriggerExpressionError{Expression: text, Token: elementText(el)}
			}
			continue
		}

		var operand Operand
		switch v := el.(type) {
		case Word:
			if v == And || v == Or {
				return nil, &TriggerExpressionError{Expression: text, Token: string(v)}
			}
			ref, err := resolve(string(v))
			if err != nil {
				return nil, &TriggerExpressionError{Expression: text, Token: string(v), Cause: err}
			}
			operand = Leaf{Ref: ref}
		case Group:
			sub, err := build(v, resolve, v.String())
			if err != nil {
				return nil, &TriggerExpressionError{Expression: text, Cause: err}
			}
			e.conditional = e.conditional || sub.conditional
			operand = sub
		}

		if i == 0 {
			e.first = operand
		} else {
			e.rest = append(e.rest, Term{Op: op, Operand: operand})
		}
	}
	return e, nil
}

func elementText(el Element) string {
	switch v := el.(type) {
	case Word:
		return string(v)
	case Group:
		return "(" + v.String() + ")"
	}
	return ""
}

// IsConditional reports whether "|" appears anywhere in the expression.
func (e *Expression) IsConditional() bool {
	return e.conditional
}

// First returns the leading operand.
func (e *Expression) First() Operand {
	return e.first
}

// Terms returns the operator/operand pairs following the first operand.
func (e *Expression) Terms() []Term {
	return e.rest
}

// Evaluate folds the expression left to right against state. Every leaf
// must be present in state; a missing key is a programming error and
// panics.
func (e *Expression) Evaluate(state map[Ref]bool) bool {
	return e.EvaluateFunc(func(r Ref) bool {
		v, ok := state[r]
		if !ok {
			panic(fmt.Sprintf("trigger: no state for %q evaluating %q", r.String(), e.String()))
		}
		return v
	})
}

// EvaluateFunc is Evaluate with leaf truth values supplied by satisfied.
// All operands are evaluated; there is no short circuit.
func (e *Expression) EvaluateFunc(satisfied func(Ref) bool) bool {
	ret := evaluateOperand(e.first, satisfied)
	for _, t := range e.rest {
		v := evaluateOperand(t.Operand, satisfied)
		if t.Op == OpOr {
			ret = ret || v
		} else {
			ret = ret && v
		}
	}
	return ret
}

func evaluateOperand(o Operand, satisfied func(Ref) bool) bool {
	switch v := o.(type) {
	case Leaf:
		return satisfied(v.Ref)
	case *Expression:
		return v.EvaluateFunc(satisfied)
	}
	panic(fmt.Sprintf("trigger: unknown operand %T", o))
}

// Refs returns the distinct leaf refs in order of first appearance.
func (e *Expression) Refs() []Ref {
	seen := make(RefSet)
	var refs []Ref
	var walk func(*Expression)
	visit := func(o Operand) {
		switch v := o.(type) {
		case Leaf:
			if !seen.Has(v.Ref) {
				seen.Add(v.Ref)
				refs = append(refs, v.Ref)
			}
		case *Expression:
			walk(v)
		}
	}
	walk = func(x *Expression) {
		visit(x.first)
		for _, t := range x.rest {
			visit(t.Operand)
		}
	}
	walk(e)
	return refs
}

// String renders the canonical form, e.g.
// "1/foo succeeded & (1/bar succeeded | 1/baz failed)".
func (e *Expression) String() string {
	return e.Format(Ref.String)
}

// Format renders the expression using leaf to print each ref.
func (e *Expression) Format(leaf func(Ref) string) string {
	var b strings.Builder
	e.format(&b, leaf)
	return b.String()
}

func (e *Expression) format(b *strings.Builder, leaf func(Ref) string) {
	formatOperand(b, e.first, leaf)
	for _, t := range e.rest {
		b.WriteByte(' ')
		b.WriteString(t.Op.String())
		b.WriteByte(' ')
		formatOperand(b, t.Operand, leaf)
	}
}

func formatOperand(b *strings.Builder, o Operand, leaf func(Ref) string) {
	switch v := o.(type) {
	case Leaf:
		b.WriteString(leaf(v.Ref))
	case *Expression:
		b.WriteByte('(')
		v.format(b, leaf)
		b.WriteByte(')')
	}
}
