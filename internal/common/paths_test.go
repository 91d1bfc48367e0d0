package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		// Root forms
		{"root", "/", "/"},
		{"double_root", "//", "/"},
		{"many_slashes_only", "///", "/"},

		// Simple paths
		{"simple", "foo", "/foo"},
		{"leading_slash", "/foo", "/foo"},
		{"trailing_slash", "foo/", "/foo"},
		{"both_slashes", "/foo/", "/foo"},

		// Nested paths
		{"two_parts", "foo/bar", "/foo/bar"},
		{"two_parts_leading_slash", "/foo/bar", "/foo/bar"},
		{"three_parts", "/foo/bar/baz", "/foo/bar/baz"},
		{"nested_trailing_slash", "/foo/bar/", "/foo/bar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizePath(tt.input)
			require.NoError(t, err, "NormalizePath(%q)", tt.input)
			assert.Equal(t, tt.want, got, "NormalizePath(%q)", tt.input)
		})
	}
}

func TestNormalizePathRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"dotdot", ".."},
		{"dotdot_leading", "../etc/passwd"},
		{"dotdot_absolute", "/../etc/passwd"},
		{"dotdot_middle", "/a/../b"},
		{"dotdot_trailing", "/a/.."},
		// The rejection is textual: ".." embedded in a name also fails.
		{"dotdot_in_name", "/a..b"},
		{"empty_component", "a//b"},
		{"empty_component_absolute", "/a//b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NormalizePath(tt.input)
			require.Error(t, err, "NormalizePath(%q)", tt.input)
			assert.True(t, errors.Is(err, ErrInvalidPath), "want ErrInvalidPath, got %v", err)
		})
	}
}

func TestNormalizePathIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{"/", "//", "foo", "/foo/", "a/b/c", "/deeply/nested/path/"}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			t.Parallel()
			once, err := NormalizePath(input)
			require.NoError(t, err)
			twice, err := NormalizePath(once)
			require.NoError(t, err)
			assert.Equal(t, once, twice)
		})
	}
}

func TestValidateName(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateName("foo"))
	assert.NoError(t, ValidateName("file.txt"))
	// Empty names are not rejected; a walk joining one simply finds nothing.
	assert.NoError(t, ValidateName(""))

	assert.ErrorIs(t, ValidateName(".."), ErrInvalidPath)
	assert.ErrorIs(t, ValidateName("a/b"), ErrInvalidPath)
	assert.ErrorIs(t, ValidateName("/"), ErrInvalidPath)
}

func TestJoinChild(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		dir  string
		leaf string
		want string
	}{
		{"under_root", "/", "a", "/a"},
		{"nested", "/a", "b", "/a/b"},
		{"deep", "/a/b", "c.txt", "/a/b/c.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, JoinChild(tt.dir, tt.leaf))
		})
	}
}

func TestParentPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"root", "/", "/"},
		{"top_level", "/foo", "/"},
		{"nested", "/foo/bar", "/foo"},
		{"deep", "/a/b/c", "/a/b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParentPath(tt.input))
		})
	}
}

func TestBaseName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"root", "/", "/"},
		{"top_level", "/foo", "foo"},
		{"nested", "/foo/bar.txt", "bar.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, BaseName(tt.input))
		})
	}
}

func TestSplitPath(t *testing.T) {
	t.Parallel()

	assert.Nil(t, SplitPath("/"))
	assert.Equal(t, []string{"foo"}, SplitPath("/foo"))
	assert.Equal(t, []string{"a", "b", "c"}, SplitPath("/a/b/c"))
}

func TestParentAndBaseRejoin(t *testing.T) {
	t.Parallel()

	paths := []string{"/foo", "/foo/bar", "/a/b/c/d"}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			t.Parallel()
			rejoined := JoinChild(ParentPath(path), BaseName(path))
			assert.Equal(t, path, rejoined)
		})
	}
}
