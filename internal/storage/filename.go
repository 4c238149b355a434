package storage

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SecureFilename returns a version of name that is safe to join onto a local
// directory. The name is NFKD-normalized and reduced to ASCII, path
// separators become whitespace, whitespace runs collapse to "_", every
// character outside [A-Za-z0-9_.-] is dropped and leading/trailing "." and
// "_" are trimmed. The result may be empty; callers must reject that.
//
//	SecureFilename("My cool movie.mov")           == "My_cool_movie.mov"
//	SecureFilename("../../../etc/passwd")         == "etc_passwd"
//	SecureFilename("i contain cool ümläuts.txt") == "i_contain_cool_umlauts.txt"
func SecureFilename(name string) string {
	name = norm.NFKD.String(name)

	var ascii strings.Builder
	ascii.Grow(len(name))
	for _, r := range name {
		if r < 0x80 {
			ascii.WriteRune(r)
		}
	}

	name = strings.ReplaceAll(ascii.String(), "/", " ")
	name = strings.Join(strings.FieldsFunc(name, isFieldSeparator), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}

// isFieldSeparator reports whitespace plus the ASCII file, group, record and
// unit separators, which Python's str.split also breaks on.
func isFieldSeparator(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}
