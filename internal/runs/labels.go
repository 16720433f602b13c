package runs

// DeriveLabels builds legend labels for a set of storage paths.
//
// With a single path there is nothing to disambiguate and the label is empty.
// Otherwise the longest common prefix of all paths is removed, suffixLen
// trailing bytes (the storage format extension) are dropped, and a single
// space is appended so the label can be followed by a curve description.
func DeriveLabels(paths []string, suffixLen int) []string {
	labels := make([]string, len(paths))
	if len(paths) <= 1 {
		return labels
	}

	prefix := len(CommonPrefix(paths))
	for i, p := range paths {
		end := len(p) - suffixLen
		if end < prefix {
			end = prefix
		}
		labels[i] = p[prefix:end] + " "
	}
	return labels
}

// CommonPrefix returns the longest byte prefix shared by all strings.
func CommonPrefix(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	prefix := ss[0]
	for _, s := range ss[1:] {
		n := 0
		for n < len(prefix) && n < len(s) && prefix[n] == s[n] {
			n++
		}
		prefix = prefix[:n]
		if prefix == "" {
			break
		}
	}
	return prefix
}
