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

// Package version parses game version strings and decides whether an
// installed game is compatible with the version the launcher supports.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrEmptyVersion is returned when parsing an empty version string.
var ErrEmptyVersion = errors.New("version string is empty")

// Triplet is a major.minor.patch version. Fields beyond the third are
// ignored and missing fields are zero, so "0.32" and "0.32.5.0" both parse.
type Triplet struct {
	Major int
	Minor int
	Patch int
}

// Parse converts a dotted version string into a Triplet.
func Parse(s string) (Triplet, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Triplet{}, ErrEmptyVersion
	}

	parts := strings.Split(s, ".")
	var fields [3]int
	for i := 0; i < len(parts) && i < len(fields); i++ {
		n, err := strconv.Atoi(parts[i])
		if err != nil || n < 0 {
			return Triplet{}, fmt.Errorf("invalid version %q: field %d is not a non-negative integer", s, i+1)
		}
		fields[i] = n
	}

	return Triplet{Major: fields[0], Minor: fields[1], Patch: fields[2]}, nil
}

// MustParse is like Parse but panics on error. Intended for constants.
func MustParse(s string) Triplet {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Compare returns -1, 0 or 1 comparing t with other field by field.
func (t Triplet) Compare(other Triplet) int {
	switch {
	case t.Major != other.Major:
		return sign(t.Major - other.Major)
	case t.Minor != other.Minor:
		return sign(t.Minor - other.Minor)
	default:
		return sign(t.Patch - other.Patch)
	}
}

// MajorMinor renders "major.minor", the form used in per-version user
// directories.
func (t Triplet) MajorMinor() string {
	return fmt.Sprintf("%d.%d", t.Major, t.Minor)
}

func (t Triplet) String() string {
	return fmt.Sprintf("%d.%d.%d", t.Major, t.Minor, t.Patch)
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
