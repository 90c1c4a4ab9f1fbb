package helpers

import (
	"errors"
	"strconv"
	"strings"
)

func GetSplitPart(target string, separate string, index int) (string, error) {
	parts := strings.Split(target, separate)
	if index >= len(parts) {
		return "", errors.New("index out of range")
	}
	return parts[index], nil
}

// HashString is the 31-shift string hash used for synthetic product IDs and
// cache keys. It only needs to be deterministic and well spread within this
// corpus, not collision resistant.
func HashString(s string) string {
	var hash int32
	for _, c := range []byte(s) {
		hash = (hash << 5) - hash + int32(c)
	}
	if hash < 0 {
		// math.MinInt32 has no positive counterpart; pin it.
		if hash == -2147483648 {
			return strconv.FormatInt(2147483648, 10)
		}
		hash = -hash
	}
	return strconv.FormatInt(int64(hash), 10)
}
