// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cerr defines the error taxonomy shared by condenseq's build and
// query paths. Every exported error is a sentinel that satisfies errors.Is
// after wrapping with fmt.Errorf("...: %w", err).
package cerr

import "errors"

// Sentinel error kinds. Callers should compare with errors.Is, not
// equality, since every returned error is wrapped with call-specific
// detail.
var (
	// InvalidArgument reports a CLI or configuration failure, such as a
	// window size not larger than the k-mer size.
	InvalidArgument = errors.New("invalid argument")

	// RangeOutOfBounds reports an extraction request outside [0, L).
	RangeOutOfBounds = errors.New("range out of bounds")

	// WidthOverflow reports a stored length or offset that does not fit
	// the configured 32- or 64-bit slot.
	WidthOverflow = errors.New("width overflow")

	// InsufficientInput reports that the INIT phase of the build ended
	// before accumulating initsize k-mers.
	InsufficientInput = errors.New("insufficient input")

	// Corrupt reports a structural problem in persisted data: an int-set
	// magic mismatch, a container version mismatch, or non-monotone
	// records read back from a file.
	Corrupt = errors.New("corrupt archive")

	// Io reports an underlying file system error. It is distinct from
	// Corrupt because the data that could not be read or written may
	// otherwise be well formed.
	Io = errors.New("i/o error")

	// CallbackAbort reports that a user-supplied callback requested
	// early termination of an enumeration.
	CallbackAbort = errors.New("callback aborted")
)
