package api

import "strings"

// MediaURL turns a backend-relative media path into an absolute URL.
// Absolute and protocol-relative URLs pass through; an empty path stays empty.
func (c *Client) MediaURL(path string) string {
	return JoinMediaURL(c.baseURL, path)
}

func JoinMediaURL(baseURL, path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	lower := strings.ToLower(path)
	for _, prefix := range []string{"http://", "https://", "//", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return path
		}
	}
	path = strings.ReplaceAll(path, "\\", "/")
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}
