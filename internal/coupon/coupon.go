package coupon

import (
	"context"
)

// Definition is one coupon row of an import file.
type Definition struct {
	Code        string
	CourseID    string
	Percentage  int
	Description string
}

// Key identifies a definition; a code may be shared by several courses.
type Key struct {
	Code     string
	CourseID string
}

// CouponSet represents the parsed definitions of one or more import files.
type CouponSet interface {
	// Contains checks if a definition exists for the code and course.
	Contains(code, courseID string) bool

	// Size returns the number of definitions in the set.
	Size() int

	// Definitions returns the definitions in the order they were read.
	Definitions() []Definition

	// Skipped returns the number of malformed or duplicate rows.
	Skipped() int
}

// Loader defines the interface for loading coupon files.
type Loader interface {
	// Load reads a gzipped coupon CSV file and returns a CouponSet.
	Load(ctx context.Context, filePath string) (CouponSet, error)
}

// Importer reads several coupon files and merges them.
type Importer interface {
	// Collect loads the files concurrently and merges their definitions.
	// The first file that defines a (code, course) pair wins.
	Collect(ctx context.Context, files []string) (*Collection, error)
}

// Collection is the merged content of a set of import files.
type Collection struct {
	Files       int
	Skipped     int
	Definitions []Definition
}
