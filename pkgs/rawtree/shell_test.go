package rawtree

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestShellParserShapes checks the raw tree shape produced for each kind of
// construct the normalizer distinguishes
func TestShellParserShapes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "simple command",
			input: `find . -name "*.c"`,
			want:  []string{`command(word("find") word(".") word("-name") word("*.c"))`},
		},
		{
			name:  "pipeline",
			input: `ls | wc -l`,
			want:  []string{`pipeline(command(word("ls")) pipe("|") command(word("wc") word("-l")))`},
		},
		{
			name:  "three stage pipeline flattens",
			input: `cat f | sort | uniq`,
			want:  []string{`pipeline(command(word("cat") word("f")) pipe("|") command(word("sort")) pipe("|") command(word("uniq")))`},
		},
		{
			name:  "semicolon list",
			input: `echo a ; echo b`,
			want:  []string{`list(command(word("echo") word("a")) operator(";") command(word("echo") word("b")))`},
		},
		{
			name:  "and list",
			input: `mkdir d && cd d`,
			want:  []string{`list(command(word("mkdir") word("d")) operator("&&") command(word("cd") word("d")))`},
		},
		{
			name:  "trailing semicolon is a terminator",
			input: `ls ;`,
			want:  []string{`command(word("ls"))`},
		},
		{
			name:  "background",
			input: `sleep 1 &`,
			want:  []string{`list(command(word("sleep") word("1")) operator("&"))`},
		},
		{
			name:  "command substitution",
			input: `echo $(ls)`,
			want:  []string{`command(word("echo") word("$(ls)": commandsubstitution("$(ls)": command(word("ls")))))`},
		},
		{
			name:  "process substitution",
			input: `diff <(ls a) b`,
			want:  []string{`command(word("diff") word("<(ls a)": processsubstitution("<(ls a)": command(word("ls") word("a")))) word("b"))`},
		},
		{
			name:  "parameter inside quotes",
			input: `echo "$HOME"`,
			want:  []string{`command(word("echo") word("$HOME": parameter("$HOME")))`},
		},
		{
			name:  "tilde",
			input: `ls ~/x`,
			want:  []string{`command(word("ls") word("~/x": tilde("~")))`},
		},
		{
			name:  "escaped terminator",
			input: `find . -exec rm {} \;`,
			want:  []string{`command(word("find") word(".") word("-exec") word("rm") word("{}") word(";"))`},
		},
		{
			name:  "redirect",
			input: `ls > out`,
			want:  []string{`command(word("ls") redirect("> out"))`},
		},
		{
			name:  "assignment",
			input: `a=1 ls`,
			want:  []string{`command(assignment("a=1") word("ls"))`},
		},
		{
			name:  "negation",
			input: `! ls`,
			want:  []string{`negation("!": command(word("ls")))`},
		},
		{
			name:  "for loop",
			input: `for i in a b; do echo $i; done`,
			want:  []string{`for("for i in a b; do echo $i; done")`},
		},
	}

	p := NewShellParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roots, err := p.Parse(tt.input)
			require.NoError(t, err)

			var got []string
			for _, r := range roots {
				got = append(got, r.String())
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("raw tree mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestShellParserSpans(t *testing.T) {
	cmd := `grep -r 'a b' src`
	roots, err := NewShellParser().Parse(cmd)
	require.NoError(t, err)
	require.Len(t, roots, 1)

	quoted := roots[0].Parts[2]
	assert.Equal(t, "a b", quoted.Word)
	assert.Equal(t, Span{8, 13}, quoted.Pos)
	assert.Equal(t, `'a b'`, cmd[quoted.Pos.Start:quoted.Pos.End])
	assert.Equal(t, 2, quoted.Pos.Len()-len(quoted.Word))

	escaped, err := NewShellParser().Parse(`find -exec ls \;`)
	require.NoError(t, err)
	semi := escaped[0].Parts[3]
	assert.Equal(t, ";", semi.Word)
	assert.Equal(t, 1, semi.Pos.Len()-len(semi.Word))
}

func TestShellParserErrors(t *testing.T) {
	p := NewShellParser()

	_, err := p.Parse("")
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = p.Parse("   ")
	assert.ErrorIs(t, err, ErrEmpty)

	for _, input := range []string{`echo 'unterminated`, `ls &&`, `echo $(ls`} {
		_, err := p.Parse(input)
		assert.Error(t, err, input)
	}
}

func TestUnescape(t *testing.T) {
	assert.Equal(t, ";", unescape(`\;`, false))
	assert.Equal(t, `a\b`, unescape(`a\\b`, false))
	assert.Equal(t, `\n`, unescape(`\n`, true))
	assert.Equal(t, `$x`, unescape(`\$x`, true))
	assert.Equal(t, `trail\`, unescape(`trail\`, false))
}

func TestParserFunc(t *testing.T) {
	want := []*Node{Word("x", 0, 1)}
	p := ParserFunc(func(string) ([]*Node, error) { return want, nil })
	got, err := p.Parse("x")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
