package bots

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const slugAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewSlug derives "<name_in_snake_case>_<6 random chars>".
func NewSlug(name string) (string, error) {
	base := snake(name)
	if base == "" {
		base = "bot"
	}
	suffix := make([]byte, 6)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(slugAlphabet))))
		if err != nil {
			return "", err
		}
		suffix[i] = slugAlphabet[n.Int64()]
	}
	return base + "_" + string(suffix), nil
}

func snake(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}
