package utils

import (
	"crypto/md5"
	"encoding/hex"
	"path"
	"strings"
)

// ContainsString returns true iff the provided string slice hay contains string
// needle.
func ContainsString(hay []string, needle string) bool {
	for _, str := range hay {
		if str == needle {
			return true
		}
	}
	return false
}

// TextToMd5Hash returns the hex md5 of the input, used for stable blob keys.
func TextToMd5Hash(text string) (string, error) {
	h := md5.New()
	if _, err := h.Write([]byte(text)); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// GetUrlExtNameWithDot extracts the file extension (".jpg") from a url or
// file name, dropping any query string.
func GetUrlExtNameWithDot(url string) string {
	if idx := strings.Index(url, "?"); idx >= 0 {
		url = url[:idx]
	}
	return path.Ext(url)
}
