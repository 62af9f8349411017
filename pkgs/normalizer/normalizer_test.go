package normalizer

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/cmdtree/core/invariant"
	"github.com/aledsdavies/cmdtree/pkgs/errors"
	"github.com/aledsdavies/cmdtree/pkgs/linear"
	"github.com/aledsdavies/cmdtree/pkgs/rawtree"
	"github.com/aledsdavies/cmdtree/pkgs/render"
	"github.com/aledsdavies/cmdtree/pkgs/tree"
)

func quiet() Option {
	return WithLogger(NewLogger(io.Discard, slog.LevelDebug))
}

func TestNormalizeTar(t *testing.T) {
	res, err := New(quiet()).Normalize("tar cvf x.tar y")
	require.NoError(t, err)
	assert.Equal(t, "tar -cvf x.tar y", res.Command)

	want := strings.Join([]string{
		"ROOT()",
		"    HEADCOMMAND(tar)",
		"        FLAG(-cvf)",
		"            ARGUMENT(x.tar)",
		"        ARGUMENT(y)",
		"",
	}, "\n")
	if diff := cmp.Diff(want, tree.Dump(res.Tree)); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeFoldsDigitsByDefault(t *testing.T) {
	res, err := New(quiet()).Normalize(`head -n 10 "log2.txt"`)
	require.NoError(t, err)
	got, err := render.Render(res.Tree, render.Strict)
	require.NoError(t, err)
	assert.Equal(t, `head -n _NUM "log_NUM.txt"`, got)

	res, err = New(quiet(), WithFoldDigits(false), WithRecoverQuotes(false)).Normalize(`head -n 10 "log2.txt"`)
	require.NoError(t, err)
	got, err = render.Render(res.Tree, render.Strict)
	require.NoError(t, err)
	assert.Equal(t, `head -n 10 log2.txt`, got)
}

// TestPipelineRoundTrip checks every supported command survives
// linearization and renders back to its source
func TestPipelineRoundTrip(t *testing.T) {
	commands := []string{
		`find . -name "*.txt" -exec grep -l foo {} \;`,
		`find /tmp -type f -not -name "*.log" -or -empty`,
		`ls -la | grep -v total | wc -l`,
		`echo $(date) | tee out.txt`,
		`diff <(sort a.txt) <(sort b.txt)`,
		`xargs -I {} rm -rf {}`,
		`du -sh * | sort -h`,
	}
	n := New(quiet(), WithFoldDigits(false))
	for _, cmd := range commands {
		t.Run(cmd, func(t *testing.T) {
			res, err := n.Normalize(cmd)
			require.NoError(t, err)
			require.Empty(t, res.Warnings)
			require.NoError(t, tree.Validate(res.Tree))

			back, err := linear.Delinearize(linear.Linearize(res.Tree))
			require.NoError(t, err)
			assert.True(t, tree.Equal(res.Tree, back))

			got, err := render.Render(back, render.Strict)
			require.NoError(t, err)
			want := strings.ReplaceAll(cmd, ` \;`, "")
			assert.Equal(t, strings.Fields(want), strings.Fields(got))
		})
	}
}

func TestNormalizeFailures(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		errType string
	}{
		{"empty", "", errors.ErrParseFailure},
		{"blank", " \n ", errors.ErrParseFailure},
		{"unterminated quote", `echo 'oops`, errors.ErrParseFailure},
		{"two commands", `echo a ; echo b`, errors.ErrStructuralInconsistency},
		{"redirect", `ls > out.txt`, errors.ErrUnsupportedConstruct},
		{"and list", `make && make install`, errors.ErrUnsupportedConstruct},
		{"missing operand", `find -or -name a`, errors.ErrStructuralInconsistency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			n := New(WithLogger(NewLogger(&logs, slog.LevelWarn)))

			res, err := n.Normalize(tt.input)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, tt.errType, errors.TypeOf(err), err.Error())

			var ne *errors.NormalizeError
			require.ErrorAs(t, err, &ne)
			cmd, ok := ne.GetContext(errors.CtxCommand)
			assert.True(t, ok)
			assert.Equal(t, tt.input, cmd)

			assert.Contains(t, logs.String(), "skipping command")
			assert.Contains(t, logs.String(), "reason="+tt.errType)
			assert.NotContains(t, logs.String(), "level=", "level attributes are stripped")
		})
	}
}

func TestDanglingUnaryReturnsPartialTree(t *testing.T) {
	var logs bytes.Buffer
	res, err := New(WithLogger(NewLogger(&logs, slog.LevelWarn))).Normalize(`find . -name a -not`)
	require.NoError(t, err)
	require.True(t, res.Partial())
	assert.True(t, errors.IsRecoverable(res.Warnings[0]))
	assert.Contains(t, logs.String(), errors.ErrDanglingUnaryOperator)

	_, err = render.Render(res.Tree, render.Strict)
	assert.Error(t, err)
	loose, err := render.Render(res.Tree, render.Loose)
	require.NoError(t, err)
	assert.Equal(t, "find . -name a -not", loose)
}

func TestPanicsBecomeStructuralFailures(t *testing.T) {
	tests := []struct {
		name  string
		panic func()
	}{
		{"contract violation", func() { invariant.Precondition(false, "boom") }},
		{"plain error", func() { panic(stderrors.New("boom")) }},
		{"non-error value", func() { panic(42) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := rawtree.ParserFunc(func(string) ([]*rawtree.Node, error) {
				tt.panic()
				return nil, nil
			})
			res, err := New(quiet(), WithParser(p)).Normalize("ls")
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, errors.IsErrorType(err, errors.ErrStructuralInconsistency))
		})
	}

	p := rawtree.ParserFunc(func(string) ([]*rawtree.Node, error) {
		invariant.Precondition(false, "boom")
		return nil, nil
	})
	_, err := New(quiet(), WithParser(p)).Normalize("ls")
	var v *invariant.Violation
	assert.ErrorAs(t, err, &v)
}

func TestOnlyFirstRootIsNormalized(t *testing.T) {
	p := rawtree.ParserFunc(func(cmd string) ([]*rawtree.Node, error) {
		return []*rawtree.Node{
			{Kind: rawtree.KindCommand, Parts: []*rawtree.Node{rawtree.Word("ls", 0, 2)}},
			{Kind: rawtree.KindCommand, Parts: []*rawtree.Node{rawtree.Word("pwd", 3, 6)}},
		}, nil
	})
	var logs bytes.Buffer
	res, err := New(WithParser(p), WithLogger(NewLogger(&logs, slog.LevelWarn))).Normalize("ls pwd")
	require.NoError(t, err)
	assert.Equal(t, []string{"ls"}, tree.HeadCommands(res.Tree))
	assert.Contains(t, logs.String(), "roots=2")
}

func TestMaxDepth(t *testing.T) {
	cmd := `echo $(echo $(echo $(echo hi)))`
	_, err := New(quiet()).Normalize(cmd)
	require.NoError(t, err)

	_, err = New(quiet(), WithMaxDepth(3)).Normalize(cmd)
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrUnsupportedConstruct))
}

func TestBatch(t *testing.T) {
	cmds := []string{
		`ls -l`,
		`ls > out`,
		`find . -not`,
		`echo 'bad`,
		`wc -l file.txt`,
	}
	var seen []int
	stats, err := New(quiet()).Batch(context.Background(), cmds, func(o Outcome) error {
		seen = append(seen, o.Index)
		assert.Equal(t, cmds[o.Index], o.Command)
		assert.True(t, (o.Err == nil) != (o.Result == nil))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, seen)

	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 3, stats.Normalized)
	assert.Equal(t, 1, stats.Partial)
	assert.Equal(t, map[string]int{
		errors.ErrUnsupportedConstruct: 1,
		errors.ErrParseFailure:         1,
	}, stats.Skipped)
	assert.Equal(t, "5 commands: 3 normalized (1 partial), 2 skipped", stats.String())
}

func TestBatchStops(t *testing.T) {
	n := New(quiet())
	stop := stderrors.New("stop")
	stats, err := n.Batch(context.Background(), []string{"ls", "pwd", "ls"}, func(o Outcome) error {
		if o.Index == 1 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, stats.Total)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stats, err = n.Batch(ctx, []string{"ls"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats.Total)
}

func TestConcurrentNormalize(t *testing.T) {
	n := New(quiet())
	cmds := []string{`ls -l | wc -l`, `find . -name a -or -name b`, `echo $(pwd)`, `tar xf a.tar`}

	var wg sync.WaitGroup
	results := make([]string, 40)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := n.Normalize(cmds[i%len(cmds)])
			if err != nil {
				return
			}
			results[i] = tree.Dump(res.Tree)
		}(i)
	}
	wg.Wait()

	for i := len(cmds); i < len(results); i++ {
		assert.Equal(t, results[i%len(cmds)], results[i])
		assert.NotEmpty(t, results[i])
	}
}
