package service

import (
	"regexp"
	"strings"
)

var (
	fenceStartRe = regexp.MustCompile("(?is)^\\s*```[a-z]*\\s*")
	fenceEndRe   = regexp.MustCompile("(?is)\\s*```\\s*$")
)

// cleanModelReply quita fences ``` ... ``` y BOM, dejando el contenido usable.
// Solo lo usan los parsers tolerantes.
func cleanModelReply(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	s = strings.TrimPrefix(s, "\uFEFF")

	s = fenceStartRe.ReplaceAllString(s, "")
	s = fenceEndRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
