package deliver

import (
	"fmt"
	"strconv"
	"strings"

	"tapevault/internal/media"
)

// ByteRange is an inclusive byte range within an asset.
type ByteRange struct {
	Start int64
	End   int64
}

// Length returns the number of bytes the range covers.
func (r ByteRange) Length() int64 { return r.End - r.Start + 1 }

// ParseRange interprets an HTTP Range header value ("bytes=start-end",
// "bytes=start-", or "bytes=-suffix") against an asset of size bytes.
// A missing header (empty string) yields nil. Multi-range requests are
// rejected; an unsatisfiable range fails with ErrRangeNotSatisfiable,
// distinct from not-found.
func ParseRange(header string, size int64) (*ByteRange, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, nil
	}
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return nil, media.Wrap(media.ErrRangeNotSatisfiable, "deliver", "range",
			fmt.Sprintf("unsupported range unit in %q", header), nil)
	}
	if strings.Contains(spec, ",") {
		return nil, media.Wrap(media.ErrRangeNotSatisfiable, "deliver", "range",
			"multiple ranges are not supported", nil)
	}

	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok {
		return nil, media.Wrap(media.ErrRangeNotSatisfiable, "deliver", "range",
			fmt.Sprintf("malformed range %q", header), nil)
	}
	startStr = strings.TrimSpace(startStr)
	endStr = strings.TrimSpace(endStr)

	// Suffix form: bytes=-N means the final N bytes.
	if startStr == "" {
		suffix, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || suffix <= 0 {
			return nil, media.Wrap(media.ErrRangeNotSatisfiable, "deliver", "range",
				fmt.Sprintf("malformed suffix range %q", header), nil)
		}
		if suffix > size {
			suffix = size
		}
		return &ByteRange{Start: size - suffix, End: size - 1}, nil
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return nil, media.Wrap(media.ErrRangeNotSatisfiable, "deliver", "range",
			fmt.Sprintf("malformed range start %q", header), nil)
	}
	end := size - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < start {
			return nil, media.Wrap(media.ErrRangeNotSatisfiable, "deliver", "range",
				fmt.Sprintf("malformed range end %q", header), nil)
		}
	}

	if start >= size {
		return nil, media.Wrap(media.ErrRangeNotSatisfiable, "deliver", "range",
			fmt.Sprintf("start %d beyond asset of %d bytes", start, size), nil)
	}
	if end > size-1 {
		end = size - 1
	}
	return &ByteRange{Start: start, End: end}, nil
}
