// Package value normalizes leaf literals and the raw command text.
package value

import (
	"regexp"
	"strings"

	"github.com/aledsdavies/cmdtree/pkgs/rawtree"
)

// NumPlaceholder replaces every maximal digit run when folding digits. It
// contains no digits itself, so folding is idempotent.
const NumPlaceholder = "_NUM"

var (
	digitRun = regexp.MustCompile(`[0-9]+`)
	tarWord  = regexp.MustCompile(` tar (\w)`)
)

// Options selects the literal normalizations
type Options struct {
	FoldDigits    bool
	RecoverQuotes bool
}

// Quoted reports whether a word's source span is exactly two bytes wider
// than its bare text, the signature of one layer of enclosing quotes.
func Quoted(word string, span rawtree.Span) bool {
	return span.Len()-len(word) == 2
}

// RecoverQuotes returns the original source text of a quoted word, quotes
// included, and the bare word otherwise.
func RecoverQuotes(source, word string, span rawtree.Span) string {
	if !Quoted(word, span) || span.Start < 0 || span.End > len(source) {
		return word
	}
	return source[span.Start:span.End]
}

// FoldDigits replaces every maximal run of digits with NumPlaceholder
func FoldDigits(s string) string {
	return digitRun.ReplaceAllString(s, NumPlaceholder)
}

// Leaf computes the normalized value of a raw word. exempt reports tokens
// that must never be digit-folded, such as options and head commands.
func Leaf(source string, n *rawtree.Node, opts Options, exempt func(string) bool) string {
	w := n.Word
	if opts.RecoverQuotes {
		w = RecoverQuotes(source, n.Word, n.Pos)
	}
	if opts.FoldDigits && (exempt == nil || !exempt(w)) {
		w = FoldDigits(w)
	}
	return w
}

// Prepass fixes up raw command text before parsing: newlines become
// spaces, surrounding blanks are trimmed and tar's dashless bundled
// options gain their dash.
func Prepass(cmd string) string {
	cmd = strings.TrimSpace(strings.ReplaceAll(cmd, "\n", " "))
	return FixTar(cmd)
}

// FixTar rewrites `tar xvf f` to `tar -xvf f` for commands starting with
// tar. Every bare word directly after "tar " gets the dash.
func FixTar(cmd string) string {
	if !strings.HasPrefix(cmd, "tar") {
		return cmd
	}
	fixed := tarWord.ReplaceAllString(" "+cmd, " tar -$1")
	return strings.TrimSpace(fixed)
}
