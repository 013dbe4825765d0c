package requestid

import (
	"strings"

	"github.com/google/uuid"
)

const Header = "X-Request-Id"

const maxLen = 128

func New() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// FromHeader returns the caller-supplied id when it is usable.
func FromHeader(v string) (string, bool) {
	v = strings.TrimSpace(v)
	if v == "" || len(v) > maxLen {
		return "", false
	}
	for _, r := range v {
		if r < 0x21 || r > 0x7e {
			return "", false
		}
	}
	return v, true
}
