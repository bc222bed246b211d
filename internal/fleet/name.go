package fleet

import "strings"

var nameReplacer = strings.NewReplacer("/", "-", ".", "-")

// DeriveName maps a model id to its fleet-wide display name by normalizing
// path and version separators. It is a pure function of the id: resolving the
// same input always yields the same name, and re-applying it to an already
// derived name is a no-op.
func DeriveName(modelID string) string {
	return nameReplacer.Replace(modelID)
}

// deriveResourceName maps a model id to a valid Kubernetes resource name.
// Unlike DeriveName it lowercases, drops characters outside [a-z0-9-], and
// enforces the DNS label length limit.
func deriveResourceName(modelID string) string {
	name := modelID
	result := make([]byte, 0, len(name))
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-':
			result = append(result, byte(c))
		case c >= 'A' && c <= 'Z':
			result = append(result, byte(c-'A'+'a'))
		case c == '_', c == '.', c == '/', c == '@':
			result = append(result, '-')
		default:
			// Skip invalid characters.
		}
	}

	// Ensure it starts with a letter.
	if len(result) > 0 && (result[0] < 'a' || result[0] > 'z') {
		result = append([]byte("m-"), result...)
	}

	// Truncate to 63 characters (Kubernetes name limit).
	if len(result) > 63 {
		result = result[:63]
	}

	// Trim trailing dashes (invalid in DNS labels).
	return strings.TrimRight(string(result), "-")
}
