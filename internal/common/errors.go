// Copyright 2024 CapFS Authors
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

package common

import "errors"

// The closed set of error kinds surfaced by CapFS backends. Backends wrap
// these with path or reason context via %w; callers classify with errors.Is.
var (
	ErrNotFound    = errors.New("not found")
	ErrExists      = errors.New("already exists")
	ErrNotDir      = errors.New("not a directory")
	ErrIsDir       = errors.New("is a directory")
	ErrPermission  = errors.New("permission denied")
	ErrInvalidPath = errors.New("invalid path")
	ErrInvalidArg  = errors.New("invalid argument")

	// ErrBadOffset is reserved for backends that reject writes past the
	// current end of file. The bundled backends zero-fill the gap instead.
	ErrBadOffset = errors.New("bad offset")
)
