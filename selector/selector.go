/*
 * Copyright 2025 The SpitBreak Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package selector

import "github.com/spitbreak/qpid/api/types"

// Selector is a compiled message selector. A Selector is immutable and safe
// for concurrent use by any number of goroutines.
type Selector struct {
	text string
	root Expr
}

// Compile parses selector source text into a reusable Selector. On failure
// the error is a *LexError or *ParseError locating the first problem.
func Compile(text string) (*Selector, error) {
	root, err := parse(text)
	if err != nil {
		return nil, err
	}
	return &Selector{text: text, root: root}, nil
}

// MustCompile is like Compile but panics on error, for selectors known good
// at initialization time.
func MustCompile(text string) *Selector {
	s, err := Compile(text)
	if err != nil {
		panic(err)
	}
	return s
}

// Text returns the source the selector was compiled from.
func (s *Selector) Text() string {
	return s.text
}

func (s *Selector) String() string {
	return s.text
}

// Eval evaluates the selector against an environment and returns the full
// three-valued result.
func (s *Selector) Eval(env Env) Tristate {
	return evalBool(s.root, env)
}

// Match collapses the three-valued result to a delivery decision: only a
// definite True matches, Unknown does not deliver.
func (s *Selector) Match(env Env) bool {
	return s.Eval(env) == True
}

// Filter reports whether the message satisfies the selector.
func (s *Selector) Filter(msg types.Message) bool {
	return s.Match(NewMessageEnv(msg))
}
