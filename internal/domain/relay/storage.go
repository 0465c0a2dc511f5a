package relay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// StorageCommand returns every storage area of the current page
const StorageCommand = "get_all_storage"

// StorageData fetches the page's storage and narrows it to storageType and
// keys. With no storageType the peer's result is returned untouched.
func (e *Executor) StorageData(ctx context.Context, storageType string, keys []string, timeout time.Duration) (interface{}, error) {
	result, err := e.Execute(ctx, StorageCommand, nil, timeout)
	if err != nil {
		return nil, err
	}
	return FilterStorage(result, storageType, keys), nil
}

// FilterStorage keeps storageType plus the page url and timestamp. Map
// sections are narrowed to the listed keys; list sections keep items whose
// encoded form contains any key.
func FilterStorage(result interface{}, storageType string, keys []string) interface{} {
	data, ok := result.(map[string]interface{})
	if storageType == "" || !ok {
		return result
	}

	filtered := map[string]interface{}{
		storageType: data[storageType],
		"url":       data["url"],
		"timestamp": data["timestamp"],
	}
	if len(keys) == 0 {
		return filtered
	}

	switch section := data[storageType].(type) {
	case map[string]interface{}:
		narrowed := make(map[string]interface{})
		for k, v := range section {
			if contains(keys, k) {
				narrowed[k] = v
			}
		}
		filtered[storageType] = narrowed
	case []interface{}:
		narrowed := make([]interface{}, 0, len(section))
		for _, item := range section {
			if itemMatches(item, keys) {
				narrowed = append(narrowed, item)
			}
		}
		filtered[storageType] = narrowed
	}
	return filtered
}

// ParseKeys splits a comma-separated key list, dropping blanks
func ParseKeys(raw string) []string {
	if raw == "" {
		return nil
	}
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func itemMatches(item interface{}, keys []string) bool {
	text, ok := item.(string)
	if !ok {
		encoded, err := sonic.MarshalString(item)
		if err != nil {
			text = fmt.Sprint(item)
		} else {
			text = encoded
		}
	}
	for _, k := range keys {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
