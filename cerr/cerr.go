// Package cerr holds the error kinds shared across corekv's components,
// following the teacher's typed-sentinel-error pattern (store/types.
// errorType): a private string type implementing error, exported as
// package-level constants so callers compare with errors.Is.
package cerr

type errorType string

func (e errorType) Error() string {
	return string(e)
}

const (
	// AlreadyExists is returned by htab.Add for a key already present;
	// the insertion did not occur.
	AlreadyExists = errorType("corekv: already exists")

	// NotFound is returned by htab.Delete for a missing key and by
	// zlist.IndexAt for an out-of-range index.
	NotFound = errorType("corekv: not found")

	// OutOfRange is returned by iset.GetAt for an index past the end of
	// the set.
	OutOfRange = errorType("corekv: index out of range")

	// IllegalArgument is returned by htab.ResizeToMinimal when resizing is
	// disabled, and internally when a requested table size would be
	// smaller than the table's current used count.
	IllegalArgument = errorType("corekv: illegal argument")
)
