package events

import (
	"bytes"
	"encoding/json"
)

// Decode turns opaque store blobs into records. A blob holds either a single
// record object or an array of record objects. Blobs that are not valid JSON,
// and array elements that are not objects, are skipped; skipped reports how
// many were ignored.
func Decode(blobs []json.RawMessage) (records []Record, skipped int) {
	for _, blob := range blobs {
		trimmed := bytes.TrimSpace(blob)
		if len(trimmed) == 0 {
			skipped++
			continue
		}

		switch trimmed[0] {
		case '{':
			var rec Record
			if err := json.Unmarshal(trimmed, &rec); err != nil {
				skipped++
				continue
			}
			records = append(records, rec)
		case '[':
			var items []json.RawMessage
			if err := json.Unmarshal(trimmed, &items); err != nil {
				skipped++
				continue
			}
			for _, item := range items {
				var rec Record
				if err := json.Unmarshal(item, &rec); err != nil || rec == nil {
					skipped++
					continue
				}
				records = append(records, rec)
			}
		default:
			skipped++
		}
	}
	return records, skipped
}
