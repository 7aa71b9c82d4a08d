package util

import (
	"fmt"
	"strings"
)

// JoinString renders every element with fmt.Sprint and joins them with sep.
func JoinString[A any](elems []A, sep string) string {
	var sb strings.Builder
	for i, elem := range elems {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(fmt.Sprint(elem))
	}
	return sb.String()
}
