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

package version

import "fmt"

// Verdict is the outcome of comparing an installed version against the
// supported one.
type Verdict int

const (
	// OK means the versions are equal.
	OK Verdict = iota
	// WarnNewer means same major, newer minor or patch.
	WarnNewer
	// WarnOlder means same major, older minor or patch.
	WarnOlder
	// FatalNewer means the installed major is newer than supported.
	FatalNewer
	// FatalOlder means the installed major is older than supported.
	FatalOlder
)

func (v Verdict) String() string {
	switch v {
	case OK:
		return "ok"
	case WarnNewer:
		return "warn_newer"
	case WarnOlder:
		return "warn_older"
	case FatalNewer:
		return "fatal_newer"
	case FatalOlder:
		return "fatal_older"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// Fatal reports whether the verdict forbids launching.
func (v Verdict) Fatal() bool {
	return v == FatalNewer || v == FatalOlder
}

// Warning reports whether the verdict allows launching with a warning.
func (v Verdict) Warning() bool {
	return v == WarnNewer || v == WarnOlder
}

// Result carries the verdict together with the user-facing message.
type Result struct {
	Verdict   Verdict
	Installed Triplet
	Supported Triplet
	// Raw is the installed version string as reported by discovery.
	Raw string
}

// Message returns the line logged for the verdict. OK has no message.
func (r Result) Message() string {
	switch r.Verdict {
	case FatalNewer:
		return fmt.Sprintf("BeamNG V%s not yet supported, please wait until we update BeamMP!", r.Raw)
	case FatalOlder:
		return fmt.Sprintf("BeamNG V%s not supported, please update and launch the new update!", r.Raw)
	case WarnNewer:
		return fmt.Sprintf("BeamNG V%s is slightly newer than recommended, this might cause issues!", r.Raw)
	case WarnOlder:
		return fmt.Sprintf("BeamNG V%s is slightly older than recommended, this might cause issues!", r.Raw)
	default:
		return ""
	}
}

// Check gates an installed version string against the supported triplet.
// A major mismatch in either direction is fatal. Any other difference
// under the same major is a warning.
func Check(installed string, supported Triplet) (Result, error) {
	t, err := Parse(installed)
	if err != nil {
		return Result{}, err
	}

	r := Result{Installed: t, Supported: supported, Raw: installed}
	switch {
	case t.Major > supported.Major:
		r.Verdict = FatalNewer
	case t.Major < supported.Major:
		r.Verdict = FatalOlder
	case t.Compare(supported) > 0:
		r.Verdict = WarnNewer
	case t.Compare(supported) < 0:
		r.Verdict = WarnOlder
	default:
		r.Verdict = OK
	}
	return r, nil
}
