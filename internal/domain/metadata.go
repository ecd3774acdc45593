package domain

import (
	"encoding/json"
	"fmt"
)

// Limits applied to the free-form metadata attached to an activity.
const (
	MaxMetadataKeys  = 32
	MaxMetadataDepth = 4
	MaxMetadataBytes = 4 << 10
)

// MetadataSourceEventID is the metadata key holding the id of the upstream
// event a record was derived from. Stores treat it as a dedupe key.
const MetadataSourceEventID = "source_event_id"

func validateMetadata(md map[string]any) error {
	if len(md) == 0 {
		return nil
	}
	if len(md) > MaxMetadataKeys {
		return fmt.Errorf("%w: metadata has %d keys, limit is %d", ErrValidation, len(md), MaxMetadataKeys)
	}
	if depth := metadataDepth(md); depth > MaxMetadataDepth {
		return fmt.Errorf("%w: metadata nesting depth %d exceeds %d", ErrValidation, depth, MaxMetadataDepth)
	}
	encoded, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("%w: metadata is not JSON encodable: %v", ErrValidation, err)
	}
	if len(encoded) > MaxMetadataBytes {
		return fmt.Errorf("%w: metadata is %d bytes, limit is %d", ErrValidation, len(encoded), MaxMetadataBytes)
	}
	return nil
}

func metadataDepth(value any) int {
	switch v := value.(type) {
	case map[string]any:
		deepest := 0
		for _, child := range v {
			if d := metadataDepth(child); d > deepest {
				deepest = d
			}
		}
		return deepest + 1
	case []any:
		deepest := 0
		for _, child := range v {
			if d := metadataDepth(child); d > deepest {
				deepest = d
			}
		}
		return deepest + 1
	default:
		return 0
	}
}

// SourceEventID returns the upstream event id recorded in md, if any.
func SourceEventID(md map[string]any) string {
	if md == nil {
		return ""
	}
	id, _ := md[MetadataSourceEventID].(string)
	return id
}

// CloneMetadata returns a deep copy of md so that neither the caller nor a
// later reader shares nested maps or slices with a stored record.
func CloneMetadata(md map[string]any) map[string]any {
	if md == nil {
		return nil
	}
	out := make(map[string]any, len(md))
	for k, v := range md {
		out[k] = cloneMetadataValue(v)
	}
	return out
}

func cloneMetadataValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return CloneMetadata(v)
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = cloneMetadataValue(child)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(v))
		for k, child := range v {
			out[k] = child
		}
		return out
	case []string:
		return append([]string(nil), v...)
	case json.RawMessage:
		return append(json.RawMessage(nil), v...)
	default:
		return v
	}
}
