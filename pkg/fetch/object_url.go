package fetch

import (
	"fmt"
	"net/url"
	"strings"
)

// Splits an object store URL such as s3://bucket/dir/cloud.js into bucket and key
func ParseObjectURL(raw string) (bucket, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("%s: missing bucket", raw)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("%s: missing object key", raw)
	}
	return u.Host, key, nil
}
