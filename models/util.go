package models

import (
	"sort"
	"strings"
)

func joinComma(values []string) string {
	return strings.Join(values, ", ")
}

func sortedKeys(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
