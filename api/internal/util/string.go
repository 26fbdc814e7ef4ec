package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// StripCodeFences убирает обёртку ```lang ... ``` вокруг ответа модели.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		// язык блока: ```json, ```latex и т.п.
		if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], " =") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// StripDollars снимает LaTeX-ограничители $...$ и $$...$$.
func StripDollars(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "$"))
}

func SHA256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
