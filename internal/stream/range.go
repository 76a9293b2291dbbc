package stream

import (
	"fmt"
	"strconv"
	"strings"
)

// RangePolicy decides what happens to a Range header that cannot be parsed.
type RangePolicy int

const (
	// RangeLenient serves the whole file when the header is malformed.
	RangeLenient RangePolicy = iota
	// RangeStrict rejects a malformed header with ErrRangeMalformed.
	RangeStrict
)

// ByteRange is an inclusive window [Start, End] of a file.
type ByteRange struct {
	Start   int64
	End     int64
	Partial bool
}

// FullRange covers a whole file of the given size. For an empty file
// End is -1 and Length is 0.
func FullRange(size int64) ByteRange {
	return ByteRange{Start: 0, End: size - 1}
}

// Length is the number of bytes in the window.
func (r ByteRange) Length() int64 {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// ContentRange formats the Content-Range header value for a file of size.
func (r ByteRange) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// ParseRange interprets a single "bytes=<start>-<end?>" Range header
// against a file of size bytes. An empty header selects the whole file.
// Ranges reaching outside the file fail with ErrRangeUnsatisfiable.
// Malformed headers fall back to the whole file unless policy is
// RangeStrict. Suffix ranges ("bytes=-N") and multiple ranges count as
// malformed.
func ParseRange(header string, size int64, policy RangePolicy) (ByteRange, error) {
	if header == "" {
		return FullRange(size), nil
	}

	start, end, ok := parseBytesSpec(header, size)
	if !ok {
		if policy == RangeStrict {
			return ByteRange{}, &RangeError{Header: header, Size: size, err: ErrRangeMalformed}
		}
		return FullRange(size), nil
	}

	if start >= size || end >= size || start > end {
		return ByteRange{}, &RangeError{Header: header, Size: size, err: ErrRangeUnsatisfiable}
	}

	return ByteRange{Start: start, End: end, Partial: true}, nil
}

func parseBytesSpec(header string, size int64) (int64, int64, bool) {
	rangeSet, found := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !found {
		return 0, 0, false
	}

	startStr, endStr, found := strings.Cut(rangeSet, "-")
	if !found || strings.Contains(endStr, "-") {
		return 0, 0, false
	}

	start, err := strconv.ParseInt(strings.TrimSpace(startStr), 10, 64)
	if err != nil || start < 0 {
		return 0, 0, false
	}

	endStr = strings.TrimSpace(endStr)
	if endStr == "" {
		return start, size - 1, true
	}

	end, err := strconv.ParseInt(endStr, 10, 64)
	if err != nil || end < 0 {
		return 0, 0, false
	}
	return start, end, true
}
