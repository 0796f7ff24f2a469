package client

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/hyenergysolutions/freepbx-go/pkg/freepbx"
)

// decodeRecords converts a result node into records. A null node yields an
// empty slice. Some FreePBX REST modules answer with an object keyed by id
// instead of a list; its values are taken in key order.
func decodeRecords[T any](kind string, node interface{}) ([]T, error) {
	var items []interface{}

	switch value := node.(type) {
	case nil:
		return []T{}, nil
	case []interface{}:
		items = value
	case map[string]interface{}:
		keys := make([]string, 0, len(value))
		for key := range value {
			keys = append(keys, key)
		}

		sort.Strings(keys)

		items = make([]interface{}, 0, len(keys))
		for _, key := range keys {
			items = append(items, value[key])
		}
	default:
		return nil, fmt.Errorf("%w: %s result is a %T", freepbx.ErrUnexpectedResponse, kind, node)
	}

	encoded, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encoding %s records: %w", kind, err)
	}

	records := make([]T, 0, len(items))

	err = json.Unmarshal(encoded, &records)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s records: %w", freepbx.ErrUnexpectedResponse, kind, err)
	}

	return records, nil
}

// decodeScalar renders a scalar result node as a string. A null node
// yields "".
func decodeScalar(kind string, node interface{}) (string, error) {
	switch value := node.(type) {
	case nil:
		return "", nil
	case string:
		return value, nil
	case float64, bool:
		return fmt.Sprint(value), nil
	default:
		return "", fmt.Errorf("%w: %s result is a %T", freepbx.ErrUnexpectedResponse, kind, node)
	}
}
