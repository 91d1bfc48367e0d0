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

package vfs

import (
	"fmt"

	"capfs/internal/common"
)

// Constructors for the closed error taxonomy. Backends report every failure
// through one of these (or through NormalizePath, which wraps
// common.ErrInvalidPath itself); callers classify with errors.Is against the
// sentinels in internal/common.

func NotFoundError(path string) error {
	return fmt.Errorf("%w: %s", common.ErrNotFound, path)
}

func ExistsError(path string) error {
	return fmt.Errorf("%w: %s", common.ErrExists, path)
}

func NotDirError(path string) error {
	return fmt.Errorf("%w: %s", common.ErrNotDir, path)
}

func IsDirError(path string) error {
	return fmt.Errorf("%w: %s", common.ErrIsDir, path)
}

func PermissionError(reason string) error {
	return fmt.Errorf("%w: %s", common.ErrPermission, reason)
}

func InvalidArgError(reason string) error {
	return fmt.Errorf("%w: %s", common.ErrInvalidArg, reason)
}
