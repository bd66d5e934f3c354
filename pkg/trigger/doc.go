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

// Package trigger parses and evaluates logical trigger expressions.
//
// A trigger expression is the left-hand side of a graph dependency, a
// boolean condition over task outputs built from operands, the operators
// "&" and "|", and parentheses:
//
//	foo & (bar | baz:fail)
//
// Parse turns the text into a nested Group of words and sub-groups. Build
// binds every operand to a concrete Ref through a Resolver and returns an
// Expression that can be evaluated against the satisfaction state of its
// leaves.
//
// Operators have no precedence. An expression is folded strictly left to
// right, so "a & b | c" means "(a & b) | c" and "a | b & c" means
// "(a | b) & c". Grouping is expressed only by explicit parentheses.
package trigger
