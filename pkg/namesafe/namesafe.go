// Package namesafe maps arbitrary display names to filesystem-safe names.
package namesafe

import "strings"

// illegal strips every character that is rejected by at least one of the
// common filesystems (NTFS is the strictest set).
var illegal = strings.NewReplacer(
	`\`, "",
	"/", "",
	"*", "",
	"?", "",
	":", "",
	`"`, "",
	"<", "",
	">", "",
	"|", "",
)

// Clean removes the characters \ / * ? : " < > | and trims surrounding
// whitespace. It never fails and is idempotent; a name consisting only of
// illegal characters cleans to the empty string, which callers must handle.
func Clean(name string) string {
	return strings.TrimSpace(illegal.Replace(name))
}
