package patch

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidatePatchOperations checks every path an operation touches against
// allowed. Allowed paths may use "-" for any array index and "*" for any
// object key. An empty set allows everything.
func ValidatePatchOperations(ops []Operation, allowed map[string]bool) error {
	for i, op := range ops {
		if !pathAllowed(op.Path, allowed) {
			return fmt.Errorf("operation %d (%s): path %q is not allowed", i, op.Op, op.Path)
		}
		if op.Op != OperationMove && op.Op != OperationCopy {
			continue
		}
		if op.From == "" {
			return fmt.Errorf("operation %d (%s): from is required", i, op.Op)
		}
		if !pathAllowed(op.From, allowed) {
			return fmt.Errorf("operation %d (%s): from %q is not allowed", i, op.Op, op.From)
		}
	}
	return nil
}

func pathAllowed(path string, allowed map[string]bool) bool {
	if len(allowed) == 0 || allowed[path] {
		return true
	}
	segments := strings.Split(path, "/")
	for pattern := range allowed {
		if matchPattern(strings.Split(pattern, "/"), segments) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, segments []string) bool {
	if len(pattern) != len(segments) {
		return false
	}
	for i, p := range pattern {
		s := segments[i]
		switch {
		case p == s:
		case p == "*":
		case p == "-" && (s == "-" || isIndex(s)):
		default:
			return false
		}
	}
	return true
}

func isIndex(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n >= 0
}
