package vfs

// Object kind markers. These are compile-time witnesses carried by
// FileHandle; they hold no data.
type (
	File struct{}
	Dir  struct{}
)

// Access mode markers.
type (
	ReadOnly  struct{}
	WriteOnly struct{}
	ReadWrite struct{}
)

// ObjectKind is the closed set of object kind markers.
type ObjectKind interface {
	File | Dir
}

// AccessMode is the closed set of access mode markers.
type AccessMode interface {
	ReadOnly | WriteOnly | ReadWrite
}

// CanRead is the capability predicate for reading: it is satisfied exactly
// by the access modes that permit Read.
type CanRead interface {
	ReadOnly | ReadWrite
}

// CanWrite is the capability predicate for writing.
type CanWrite interface {
	WriteOnly | ReadWrite
}
