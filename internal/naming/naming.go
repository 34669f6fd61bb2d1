// Package naming derives concise output channel names by detecting and
// stripping the shared naming convention prefix of a session.
package naming

import "strings"

const (
	// Separator delimits words in source channel and field names.
	Separator = "_"

	// EventSuffix marks event channels. Names ending with it keep the
	// suffix through stripping so event streams stay recognizable.
	EventSuffix = "_times"
)

// Qualified joins a channel name with one of its sub-field names for
// prefix computation.
func Qualified(channel, field string) string {
	return channel + Separator + field
}

// CommonPrefix folds the name set into its longest shared prefix and
// trims the result back to the last separator it contains, so no
// partial word is ever stripped. A prefix without a separator is
// discarded as empty. The fold is order-sensitive: it starts from the
// first name and narrows.
func CommonPrefix(names []string) string {
	if len(names) == 0 {
		return ""
	}
	prefix := names[0]
	for _, name := range names[1:] {
		prefix = sharedPrefix(prefix, name)
		if prefix == "" {
			return ""
		}
	}

	i := strings.LastIndex(prefix, Separator)
	if i < 0 {
		return ""
	}
	return prefix[:i+len(Separator)]
}

// Strip derives the output name for fullName under the computed prefix.
// A name that starts with the prefix loses the prefix and any
// immediately following separator; if the remainder carries the event
// suffix it is kept whole, otherwise only its last separator-delimited
// segment survives. Names that do not start with the prefix, or that
// would strip to nothing, pass through unchanged.
func Strip(fullName, prefix string) string {
	if prefix == "" || !strings.HasPrefix(fullName, prefix) {
		return fullName
	}
	rest := strings.TrimPrefix(fullName, prefix)
	rest = strings.TrimPrefix(rest, Separator)
	if rest == "" {
		return fullName
	}
	if strings.HasSuffix(rest, EventSuffix) {
		return rest
	}
	if i := strings.LastIndex(rest, Separator); i >= 0 {
		return rest[i+len(Separator):]
	}
	return rest
}

// sharedPrefix compares two names character by character and returns
// their common leading run.
func sharedPrefix(a, b string) string {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}
