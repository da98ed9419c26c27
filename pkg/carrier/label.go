package carrier

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// LabelFile describes one label document, typically a multi-page PDF
// covering several parcels. Labels are immutable once saved; generating
// again yields a new file with a fresh ID.
type LabelFile struct {
	ID          string // uuid
	ContentType string
	ByteLength  int
	Pages       int
	Orientation string
	Metadata    map[string]string
	Data        []byte
}

// NewLabelFile wraps raw label bytes into a file descriptor.
func NewLabelFile(data []byte, contentType string, pages int) LabelFile {
	if contentType == "" {
		contentType = "application/pdf"
	}
	return LabelFile{
		ID:          uuid.New().String(),
		ContentType: contentType,
		ByteLength:  len(data),
		Pages:       pages,
		Data:        data,
	}
}

// DecodeLabelData normalizes a carrier label payload to raw bytes.
// Carriers deliver labels as a base64 string, a JSON number array, or raw
// bytes; downstream code only ever sees bytes.
func DecodeLabelData(v any) ([]byte, error) {
	switch data := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return data, nil
	case json.RawMessage:
		var inner any
		if err := json.Unmarshal(data, &inner); err != nil {
			return nil, NewError("", Permanent, "label payload is not valid JSON").WithCause(err)
		}
		return DecodeLabelData(inner)
	case string:
		decoded, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, NewError("", Permanent, "label payload is not valid base64").WithCause(err)
		}
		return decoded, nil
	case []any:
		out := make([]byte, len(data))
		for i, e := range data {
			n, ok := e.(float64)
			if !ok || n < 0 || n > 255 {
				return nil, NewError("", Permanent, fmt.Sprintf("label byte array holds a non-byte value at index %d", i))
			}
			out[i] = byte(n)
		}
		return out, nil
	default:
		return nil, NewError("", Permanent, fmt.Sprintf("unsupported label payload type %T", v))
	}
}

// AssignPageRanges attaches a combined label file to a result set: each
// created result gets the next single page, 1-indexed, in result order.
// Failed results are left untouched. Returns the number of pages used.
func AssignPageRanges(results []LabelResult, fileID string) int {
	page := 0
	for i := range results {
		if results[i].Status == ResourceFailed {
			continue
		}
		page++
		results[i].FileID = fileID
		results[i].PageRange = &PageRange{Start: page, End: page}
	}
	return page
}
