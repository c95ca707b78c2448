package s3

import "strings"

// ObjectRef is a stored blob reference. Rows written by the current pipeline
// hold bucket keys ("games/1712000000-math.zip"); rows that predate the bucket
// hold full http(s) URLs pointing at external hosts. Every read and delete path
// must handle both shapes.
type ObjectRef string

// IsLegacyURL reports whether the reference is a pre-bucket absolute URL
// rather than a key.
func (r ObjectRef) IsLegacyURL() bool {
	return strings.HasPrefix(string(r), "http")
}

// IsZero reports whether the reference is empty.
func (r ObjectRef) IsZero() bool {
	return strings.TrimSpace(string(r)) == ""
}

func (r ObjectRef) String() string {
	return string(r)
}
