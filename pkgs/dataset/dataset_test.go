package dataset

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/cmdtree/pkgs/errors"
	"github.com/aledsdavies/cmdtree/pkgs/linear"
	"github.com/aledsdavies/cmdtree/pkgs/normalizer"
	"github.com/aledsdavies/cmdtree/pkgs/tree"
)

func records(t *testing.T, padTo int, cmds ...string) []*Record {
	t.Helper()
	n := normalizer.New(normalizer.WithLogger(normalizer.NewLogger(io.Discard, slog.LevelWarn)))
	var out []*Record
	for _, cmd := range cmds {
		res, err := n.Normalize(cmd)
		require.NoError(t, err)
		rec, err := NewRecord(res, padTo)
		require.NoError(t, err)
		out = append(out, rec)
	}
	return out
}

func TestID(t *testing.T) {
	id := ID("ls -l")
	assert.Len(t, id, 64)
	assert.Equal(t, id, ID("ls -l"))
	assert.NotEqual(t, id, ID("ls -la"))
}

func TestNewRecord(t *testing.T) {
	recs := records(t, 0, "tar xvf f.tar", "find . -not")

	tar := recs[0]
	assert.Equal(t, "tar -xvf f.tar", tar.Command)
	assert.Equal(t, ID("tar -xvf f.tar"), tar.ID)
	assert.Equal(t, "tar -xvf f.tar", tar.Rendered)
	assert.False(t, tar.Partial)
	assert.Equal(t, []string{
		"ROOT_", "HEADCOMMAND_tar", "FLAG_-xvf", "ARGUMENT_f.tar",
		linear.EndMarker, linear.EndMarker, linear.EndMarker, linear.EndMarker,
	}, tar.Symbols)

	partial := recs[1]
	assert.True(t, partial.Partial)
	assert.Equal(t, "find . -not", partial.Rendered)

	root, err := tar.Tree()
	require.NoError(t, err)
	assert.Equal(t, []string{"tar"}, tree.HeadCommands(root))
}

func TestNewRecordPads(t *testing.T) {
	rec := records(t, 12, "ls")[0]
	require.Len(t, rec.Symbols, 12)
	assert.Equal(t, linear.Padding, rec.Symbols[11])

	root, err := rec.Tree()
	require.NoError(t, err)
	assert.Equal(t, []string{"ls"}, tree.HeadCommands(root))
}

func TestWriteReadRoundTrip(t *testing.T) {
	want := records(t, 0, "ls -l | wc -l", `grep -r "foo" src`, "find . -name a -or -name b")

	for _, format := range []string{JSON, CBOR} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewWriter(&buf, format)
			require.NoError(t, err)
			for _, rec := range want {
				require.NoError(t, w.Write(rec))
			}

			r, err := NewReader(bytes.NewReader(buf.Bytes()), format)
			require.NoError(t, err)
			got, err := ReadAll(r)
			require.NoError(t, err)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("records mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCBORIsDeterministic(t *testing.T) {
	encode := func() []byte {
		var buf bytes.Buffer
		w, err := NewWriter(&buf, CBOR)
		require.NoError(t, err)
		for _, rec := range records(t, 0, "echo $(pwd)", "du -sh *") {
			require.NoError(t, w.Write(rec))
		}
		return buf.Bytes()
	}
	assert.Equal(t, encode(), encode())
}

func TestUnknownFormat(t *testing.T) {
	_, err := NewWriter(io.Discard, "xml")
	assert.True(t, errors.IsErrorType(err, errors.ErrConfig))

	_, err = NewReader(bytes.NewReader(nil), "xml")
	assert.Error(t, err)
}

func TestReadTruncated(t *testing.T) {
	r, err := NewReader(bytes.NewReader([]byte(`{"id":"x","command":`)), JSON)
	require.NoError(t, err)
	_, err = ReadAll(r)
	assert.Error(t, err)
}
