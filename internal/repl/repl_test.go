package repl

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oda/rowdb"
)

func openTable(t *testing.T, cfg rowdb.Config) *rowdb.Table {
	t.Helper()
	if cfg.Path == "" {
		cfg.Path = filepath.Join(t.TempDir(), "test.db")
	}
	tbl, err := rowdb.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { tbl.Close() })
	return tbl
}

func run(t *testing.T, tbl *rowdb.Table, script string) string {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, New(tbl, &out, nil).Run(context.Background(), strings.NewReader(script)))
	return out.String()
}

func TestInsertAndSelect(t *testing.T) {
	tbl := openTable(t, rowdb.Config{})
	out := run(t, tbl, "insert 1 alice alice@x.com\ninsert 2 bob bob@x.com\nselect\n.exit\n")

	assert.Equal(t, 3, strings.Count(out, "Executed.\n"))
	assert.Contains(t, out, "alice@x.com")
	assert.Contains(t, out, "bob@x.com")
	assert.True(t, strings.HasPrefix(out, Prompt))
	assert.Equal(t, 2, tbl.NumRows())
}

func TestSelectOne(t *testing.T) {
	tbl := openTable(t, rowdb.Config{})
	require.NoError(t, tbl.Insert(rowdb.Row{ID: 1, Username: "alice", Email: "a@x"}))
	require.NoError(t, tbl.Insert(rowdb.Row{ID: 2, Username: "bob", Email: "b@x"}))

	out := run(t, tbl, "select 1\n.exit\n")
	assert.Contains(t, out, "bob")
	assert.NotContains(t, out, "alice")
}

func TestErrorsDoNotStopTheLoop(t *testing.T) {
	tbl := openTable(t, rowdb.Config{})
	out := run(t, tbl, "select 0\nbogus\n.nope\ninsert 1 a b\ncount\n.exit\n")

	assert.Equal(t, 3, strings.Count(out, "Error: "))
	assert.Contains(t, out, "unrecognized command '.nope'")
	assert.Contains(t, out, Prompt+"1\n")
}

func TestStringTooLong(t *testing.T) {
	tbl := openTable(t, rowdb.Config{})
	out := run(t, tbl, "insert 1 "+strings.Repeat("a", rowdb.MaxUsernameLen+1)+" a@x\n.exit\n")
	assert.Contains(t, out, "Error: ")
	assert.Equal(t, 0, tbl.NumRows())
}

func TestTableFull(t *testing.T) {
	tbl := openTable(t, rowdb.Config{MaxPages: 1})
	var script strings.Builder
	for i := 0; i <= rowdb.RowsPerPage; i++ {
		script.WriteString("insert 1 u e\n")
	}
	script.WriteString(".exit\n")

	out := run(t, tbl, script.String())
	assert.Equal(t, 1, strings.Count(out, "Error: "))
	assert.Equal(t, rowdb.RowsPerPage, tbl.NumRows())
}

func TestEndOfInputEndsLoop(t *testing.T) {
	tbl := openTable(t, rowdb.Config{})
	out := run(t, tbl, "insert 1 a b\n")
	assert.Contains(t, out, "Executed.")
	assert.Equal(t, 1, tbl.NumRows())
}

func TestMetaCommands(t *testing.T) {
	tbl := openTable(t, rowdb.Config{})
	out := run(t, tbl, ".help\n.constants\n.stats\n.flush\n.exit\n")

	assert.Contains(t, out, "insert <id> <username> <email>")
	assert.Contains(t, out, "LEAF_NODE_MAX_CELLS")
	assert.Contains(t, out, "13")
	assert.Contains(t, out, "max rows")
	assert.Contains(t, out, "1400")
	assert.NotContains(t, out, "Error: ")
}

func TestCancelledContext(t *testing.T) {
	tbl := openTable(t, rowdb.Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := New(tbl, &out, nil).Run(ctx, strings.NewReader("insert 1 a b\n"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, tbl.NumRows())
}

func TestCancelWhileWaitingForInput(t *testing.T) {
	tbl := openTable(t, rowdb.Config{})
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out bytes.Buffer
	result := make(chan error, 1)
	go func() { result <- New(tbl, &out, nil).Run(ctx, pr) }()

	// The write returns once the shell has consumed the line; the next
	// read then blocks on the empty pipe.
	_, err := io.WriteString(pw, "count\n")
	require.NoError(t, err)
	cancel()

	select {
	case err := <-result:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel while blocked on input")
	}
}
