// Copyright 2025 Anapaya Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package serrors provides errors that carry key/value context. The context is
// rendered in the error string and, when the error is logged through zap, as
// structured fields. All constructors return errors that work with errors.Is
// and errors.As: an error wrapping a cause is its cause, a joined error is both
// of its parts. Two errors created by New with the same message are never
// equal.
package serrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type pair struct {
	key   string
	value any
}

// details is shared by the two error flavours of this package. The pairs are
// held by pointer to keep the error types comparable.
type details struct {
	pairs *[]pair
	cause error
	stack *stack
}

func newDetails(cause error, withStack bool, errCtx []any) details {
	pairs := make([]pair, 0, len(errCtx)/2)
	for i := 0; i+1 < len(errCtx); i += 2 {
		pairs = append(pairs, pair{key: fmt.Sprint(errCtx[i]), value: errCtx[i+1]})
	}
	sort.SliceStable(pairs, func(a, b int) bool { return pairs[a].key < pairs[b].key })

	d := details{pairs: &pairs, cause: cause}
	// Only the innermost error of this package carries a stack trace.
	if withStack && !hasStack(cause) {
		d.stack = callers()
	}
	return d
}

func hasStack(err error) bool {
	if err == nil {
		return false
	}
	var (
		b  basicError
		bp *basicError
		j  joinedError
	)
	return errors.As(err, &b) || errors.As(err, &bp) || errors.As(err, &j)
}

func (d details) suffix() string {
	var sb strings.Builder
	if len(*d.pairs) > 0 {
		sb.WriteString(" {")
		for i, p := range *d.pairs {
			if i > 0 {
				sb.WriteString("; ")
			}
			fmt.Fprintf(&sb, "%s=%v", p.key, p.value)
		}
		sb.WriteString("}")
	}
	if d.cause != nil {
		fmt.Fprintf(&sb, ": %s", d.cause)
	}
	return sb.String()
}

func (d details) marshal(enc zapcore.ObjectEncoder) error {
	if d.cause != nil {
		if m, ok := d.cause.(zapcore.ObjectMarshaler); ok {
			if err := enc.AddObject("cause", m); err != nil {
				return err
			}
		} else {
			enc.AddString("cause", d.cause.Error())
		}
	}
	if d.stack != nil {
		if err := enc.AddArray("stacktrace", d.stack); err != nil {
			return err
		}
	}
	for _, p := range *d.pairs {
		zap.Any(p.key, p.value).AddTo(enc)
	}
	return nil
}

// StackTrace returns the attached stack trace, if any.
func (d details) StackTrace() StackTrace {
	if d.stack == nil {
		return nil
	}
	return d.stack.StackTrace()
}

type basicError struct {
	details
	msg string
}

func (e basicError) Error() string {
	return e.msg + e.details.suffix()
}

func (e basicError) Unwrap() error {
	return e.cause
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (e basicError) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("msg", e.msg)
	return e.details.marshal(enc)
}

type joinedError struct {
	details
	base error
}

func (e joinedError) Error() string {
	return e.base.Error() + e.details.suffix()
}

func (e joinedError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.base}
	}
	return []error{e.base, e.cause}
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (e joinedError) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("msg", e.base.Error())
	return e.details.marshal(enc)
}

// New creates an error with the given message and context and records a stack
// trace. The returned value is a pointer, so that two calls with the same
// message are never equal. Sentinel errors should use errors.New instead.
func New(msg string, errCtx ...any) error {
	return &basicError{
		details: newDetails(nil, true, errCtx),
		msg:     msg,
	}
}

// Wrap returns an error with message msg that wraps cause and carries the
// given context. A stack trace is recorded unless cause already has one.
func Wrap(msg string, cause error, errCtx ...any) error {
	return basicError{
		details: newDetails(cause, true, errCtx),
		msg:     msg,
	}
}

// WrapNoStack is like Wrap but never records a stack trace.
func WrapNoStack(msg string, cause error, errCtx ...any) error {
	return basicError{
		details: newDetails(cause, false, errCtx),
		msg:     msg,
	}
}

// Join returns an error that is both err and cause and carries the given
// context. It is typically used to attach a cause to a sentinel error. Join
// returns nil if both err and cause are nil.
func Join(err, cause error, errCtx ...any) error {
	if err == nil && cause == nil {
		return nil
	}
	if err == nil {
		err, cause = cause, nil
	}
	return joinedError{
		details: newDetails(cause, true, errCtx),
		base:    err,
	}
}

// JoinNoStack is like Join but never records a stack trace.
func JoinNoStack(err, cause error, errCtx ...any) error {
	if err == nil && cause == nil {
		return nil
	}
	if err == nil {
		err, cause = cause, nil
	}
	return joinedError{
		details: newDetails(cause, false, errCtx),
		base:    err,
	}
}

// IsTimeout returns whether err is or is caused by a timeout error.
func IsTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// List is a slice of errors.
type List []error

// Error implements the error interface.
func (e List) Error() string {
	s := make([]string, 0, len(e))
	for _, err := range e {
		s = append(s, err.Error())
	}
	return fmt.Sprintf("[ %s ]", strings.Join(s, "; "))
}

// ToError returns nil for an empty list and the list otherwise.
func (e List) ToError() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// MarshalLogArray implements zapcore.ArrayMarshaler.
func (e List) MarshalLogArray(ae zapcore.ArrayEncoder) error {
	for _, err := range e {
		if m, ok := err.(zapcore.ObjectMarshaler); ok {
			if err := ae.AppendObject(m); err != nil {
				return err
			}
			continue
		}
		ae.AppendString(err.Error())
	}
	return nil
}
