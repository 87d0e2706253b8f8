package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const bytesUnitPrefix = "bytes="

var (
	// ErrRangeMalformed indicates a Range header that does not follow the
	// bytes=start-end syntax. Callers must ignore the header and serve the
	// full body, an unparsable Range header is not an error condition.
	ErrRangeMalformed = errors.New("range header is syntactically invalid")
	// ErrRangeUnsatisfiable indicates a well-formed range that lies outside
	// the resource, to be answered with 416.
	ErrRangeUnsatisfiable = errors.New("range is not satisfiable")
	// ErrRangeMultipart indicates a header with more than one byte range.
	// Multi-range requests are rejected instead of silently serving only
	// the first range.
	ErrRangeMultipart = errors.New("multiple byte ranges are not supported")
)

// RangeSpec is a byte interval over a resource. Both bounds are zero-based
// and End is inclusive, matching the Content-Range wire format.
type RangeSpec struct {
	Start int64
	End   int64
}

// Length returns the number of bytes covered by the interval.
func (spec RangeSpec) Length() int64 {
	return spec.End - spec.Start + 1
}

// ContentRange formats the interval for the Content-Range response header.
func (spec RangeSpec) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", spec.Start, spec.End, size)
}

// ParseRange parses a Range request header against the total resource size.
// An empty header yields (nil, nil), meaning the full body is requested.
//
// The supported forms are bytes=A-B, bytes=A- and bytes=-N. The end of an
// A-B range is clamped to size-1 before validation, so bytes=999-2000 on a
// 1000 byte resource yields the single byte 999. A range is unsatisfiable
// if the resource is empty, if the start lies at or beyond the end of the
// resource, or if the bounds are inverted after clamping.
//
// ParseRange is a pure function with no side effects.
func ParseRange(header string, size int64) (*RangeSpec, error) {
	if header == "" {
		return nil, nil
	}

	if !strings.HasPrefix(header, bytesUnitPrefix) {
		return nil, ErrRangeMalformed
	}

	value := header[len(bytesUnitPrefix):]
	if strings.Contains(value, ",") {
		return nil, ErrRangeMultipart
	}

	first, last, found := strings.Cut(value, "-")
	if !found {
		return nil, ErrRangeMalformed
	}

	// Suffix form bytes=-N requests the final N bytes.
	if first == "" {
		suffixLength, err := strconv.ParseUint(last, 10, 63)
		if err != nil {
			return nil, ErrRangeMalformed
		}

		if size <= 0 || suffixLength == 0 {
			return nil, ErrRangeUnsatisfiable
		}

		start := size - int64(suffixLength)
		if start < 0 {
			start = 0
		}

		return &RangeSpec{Start: start, End: size - 1}, nil
	}

	startValue, err := strconv.ParseUint(first, 10, 63)
	if err != nil {
		return nil, ErrRangeMalformed
	}
	start := int64(startValue)

	end := size - 1
	if last != "" {
		endValue, err := strconv.ParseUint(last, 10, 63)
		if err != nil {
			return nil, ErrRangeMalformed
		}
		if int64(endValue) < end {
			end = int64(endValue)
		}
	}

	if size <= 0 || start >= size || start > end {
		return nil, ErrRangeUnsatisfiable
	}

	return &RangeSpec{Start: start, End: end}, nil
}
