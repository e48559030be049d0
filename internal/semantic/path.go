package semantic

import "strings"

// qualify joins an enclosing-type path with a local name into a dotted
// qualified name (e.g. "A.B.c").
func qualify(path []string, name string) string {
	if len(path) == 0 {
		return name
	}
	return strings.Join(path, ".") + "." + name
}

// extendPath returns path with name appended, copying so sibling recursive
// calls never alias the same backing array.
func extendPath(path []string, name string) []string {
	out := make([]string, len(path)+1)
	copy(out, path)
	out[len(path)] = name
	return out
}
