package errors

import (
	"fmt"
	"sort"
	"strings"
)

// ErrDataI is structured context attached to an Error, like the two totals of a supply mismatch.
type ErrDataI interface {
	Error() string
	GetData(key string) interface{}
	SetData(key string, value interface{})
}

// ErrData prints its pairs sorted by key, so a failure replayed from the same input logs the same line.
type ErrData map[string]interface{}

func (e *ErrData) Error() string {
	if e == nil || len(*e) == 0 {
		return ""
	}

	keys := make([]string, 0, len(*e))
	for key := range *e {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	var sb strings.Builder

	for i, key := range keys {
		if i > 0 {
			sb.WriteByte(' ')
		}

		fmt.Fprintf(&sb, "%s=%v", key, (*e)[key])
	}

	return sb.String()
}

func (e *ErrData) SetData(key string, value interface{}) {
	if e == nil {
		return
	}

	(*e)[key] = value
}

func (e *ErrData) GetData(key string) interface{} {
	if e == nil {
		return nil
	}

	return (*e)[key]
}
