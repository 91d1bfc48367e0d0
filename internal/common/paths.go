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

import (
	"fmt"
	"strings"
)

// NormalizePath canonicalizes a caller-supplied path into the absolute form
// used as a namespace key: "/" followed by slash-joined components.
//
// The empty string fails. Any occurrence of ".." anywhere in the string
// fails — the check is textual on purpose, so traversal is rejected even
// where it could not escape the root. Interior empty components (as in
// "a//b") fail; leading and trailing slashes are stripped.
func NormalizePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if strings.Contains(path, "..") {
		return "", fmt.Errorf("%w: traversal not allowed", ErrInvalidPath)
	}
	if path == "/" {
		return "/", nil
	}
	core := strings.Trim(path, "/")
	if core == "" {
		return "/", nil
	}
	for _, component := range strings.Split(core, "/") {
		if component == "" {
			return "", fmt.Errorf("%w: empty path component", ErrInvalidPath)
		}
	}
	return "/" + core, nil
}

// ValidateName checks a single walk component. Names may not contain a
// separator and may not be "..". The empty name is deliberately allowed
// through: it joins to a key that cannot exist, so a walk simply stops there.
func ValidateName(name string) error {
	if strings.Contains(name, "/") || name == ".." {
		return fmt.Errorf("%w: invalid name: %q", ErrInvalidPath, name)
	}
	return nil
}

// JoinChild appends one component to a canonical directory path, avoiding a
// double slash under the root.
func JoinChild(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}

// ParentPath returns the canonical parent of a canonical path. The parent of
// a top-level entry, and of the root itself, is "/".
func ParentPath(path string) string {
	if path == "/" {
		return "/"
	}
	i := strings.LastIndexByte(path, '/')
	if i == 0 {
		return "/"
	}
	return path[:i]
}

// BaseName returns the leaf component of a canonical path; for the root it
// returns "/" itself.
func BaseName(path string) string {
	if path == "/" {
		return "/"
	}
	return path[strings.LastIndexByte(path, '/')+1:]
}

// SplitPath returns the components of a canonical path, nil for the root.
func SplitPath(path string) []string {
	if path == "/" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(path, "/"), "/")
}
