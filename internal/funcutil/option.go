// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package funcutil contains small generic helpers shared by the analysis packages.
package funcutil

import (
	"fmt"
)

// An Optional holds a value or none. The zero Optional is none.
type Optional[T any] struct {
	value T
	ok    bool
}

// Some returns an optional holding x
func Some[T any](x T) Optional[T] {
	return Optional[T]{value: x, ok: true}
}

// None returns an optional holding no value
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and true, or the zero value of T and false if o is none
func (o Optional[T]) Get() (T, bool) { return o.value, o.ok }

// Value returns the value or panics if o is none
func (o Optional[T]) Value() T {
	if !o.ok {
		panic("funcutil: value of a none optional")
	}
	return o.value
}

// ValueOr returns the value, or defaultVal if o is none
func (o Optional[T]) ValueOr(defaultVal T) T {
	if !o.ok {
		return defaultVal
	}
	return o.value
}

func (o Optional[T]) IsSome() bool { return o.ok }
func (o Optional[T]) IsNone() bool { return !o.ok }

func (o Optional[T]) String() string {
	if !o.ok {
		return "none"
	}
	return fmt.Sprintf("some(%v)", o.value)
}

// MapOption applies f to the value of x, if any
func MapOption[T any, S any](x Optional[T], f func(T) S) Optional[S] {
	if !x.ok {
		return None[S]()
	}
	return Some(f(x.value))
}
