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

import "strings"

// Operator tokens.
const (
	And = "&"
	Or  = "|"
)

// Element is one item of a parsed Group: either a Word or a nested Group.
type Element interface {
	element()
}

// Word is an operand or operator token, trimmed of surrounding space.
type Word string

func (Word) element() {}

// Group is a parenthesised run of elements. The top level of a parsed
// expression is itself a Group.
type Group []Element

func (Group) element() {}

// String renders the group back to text, parenthesising nested groups.
func (g Group) String() string {
	var b strings.Builder
	for i, el := range g {
		if i > 0 {
			b.WriteByte(' ')
		}
		switch v := el.(type) {
		case Word:
			b.WriteString(string(v))
		case Group:
			b.WriteByte('(')
			b.WriteString(v.String())
			b.WriteByte(')')
		}
	}
	return b.String()
}

// Parse splits text on "&", "|", "(" and ")" into a nested Group.
//
// Empty tokens are discarded and a parenthesised group holding a single
// element collapses to that element, so "a & (b)" parses the same as
// "a & b". Parse only checks that parentheses balance; operand and
// operator alternation is checked by Build.
func Parse(text string) (Group, error) {
	stack := []Group{{}}
	var word strings.Builder

	flush := func() {
		if w := strings.TrimSpace(word.String()); w != "" {
			top := len(stack) - 1
			stack[top] = append(stack[top], Word(w))
		}
		word.Reset()
	}

	for _, r := range text {
		switch r {
		case '&', '|':
			flush()
			top := len(stack) - 1
			stack[top] = append(stack[top], Word(string(r)))
		case '(':
			flush()
			stack = append(stack, Group{})
		case ')':
			flush()
			if len(stack) == 1 {
				return nil, &MalformedExpressionError{Expression: text, Reason: "unmatched ')'"}
			}
			closed := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			top := len(stack) - 1
			if len(closed) == 1 {
				stack[top] = append(stack[top], closed[0])
			} else {
				stack[top] = append(stack[top], closed)
			}
		default:
			word.WriteRune(r)
		}
	}
	flush()

	if len(stack) > 1 {
		return nil, &MalformedExpressionError{Expression: text, Reason: "unmatched '('"}
	}
	return stack[0], nil
}
