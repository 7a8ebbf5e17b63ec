// Package repl runs the interactive rowdb shell.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/oda/rowdb"
	"github.com/oda/rowdb/internal/node"
	"github.com/oda/rowdb/internal/render"
	"github.com/oda/rowdb/internal/statement"
)

// Prompt is printed before every line is read.
const Prompt = "db > "

// ErrUnknownMeta is returned for an unrecognized dot command.
var ErrUnknownMeta = errors.New("unrecognized command")

// Table is the part of *rowdb.Table the shell drives.
type Table interface {
	Insert(rowdb.Row) error
	Read(int) (rowdb.Row, error)
	All() ([]rowdb.Row, error)
	NumRows() int
	Flush() error
	Stats() rowdb.Stats
}

// Shell executes statements against a table and writes results to out.
type Shell struct {
	table Table
	out   io.Writer
	log   *slog.Logger
}

// New returns a shell over t. A nil logger discards events.
func New(t Table, out io.Writer, log *slog.Logger) *Shell {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Shell{table: t, out: out, log: log}
}

// Run reads statements from in until .exit, end of input or ctx is done.
// Statement errors are printed and do not stop the loop. The caller owns
// the table and closes it after Run returns.
//
// Lines are read on a separate goroutine so that cancelling ctx returns
// while a read is blocked; that goroutine exits once the pending read on in
// completes.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	next := make(chan struct{})
	quit := make(chan struct{})
	defer close(quit)

	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for {
			select {
			case <-next:
			case <-quit:
				return
			}
			if !sc.Scan() {
				readErr <- sc.Err()
				return
			}
			select {
			case lines <- sc.Text():
			case <-quit:
				return
			}
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(s.out, Prompt)
		next <- struct{}{}

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(s.out)
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(s.out)
				return <-readErr
			}
			line = l
		}

		if line == "" {
			continue
		}
		done, err := s.Exec(line)
		if err != nil {
			s.log.Debug("statement failed", "line", line, "err", err)
			fmt.Fprintf(s.out, "Error: %v\n", err)
			continue
		}
		if done {
			return nil
		}
	}
}

// Exec runs one line. done reports that the line was .exit.
func (s *Shell) Exec(line string) (done bool, err error) {
	st, err := statement.Parse(line)
	if err != nil {
		return false, err
	}

	switch st.Type {
	case statement.TypeMeta:
		return s.meta(st.Meta)
	case statement.TypeInsert:
		if err := s.table.Insert(st.Row); err != nil {
			return false, err
		}
		fmt.Fprintln(s.out, "Executed.")
	case statement.TypeSelect:
		if err := s.selectRows(st.Index); err != nil {
			return false, err
		}
		fmt.Fprintln(s.out, "Executed.")
	case statement.TypeCount:
		fmt.Fprintln(s.out, s.table.NumRows())
	}
	return false, nil
}

func (s *Shell) selectRows(index *int) error {
	if index != nil {
		r, err := s.table.Read(*index)
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, render.Rows([]rowdb.Row{r}))
		return nil
	}

	rows, err := s.table.All()
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, render.Rows(rows))
	return nil
}

func (s *Shell) meta(cmd string) (bool, error) {
	switch cmd {
	case "exit":
		return true, nil
	case "help":
		fmt.Fprint(s.out, help)
	case "constants":
		fmt.Fprintln(s.out, render.Pairs("CONSTANT", "VALUE", constants()))
	case "stats":
		fmt.Fprintln(s.out, render.Stats(s.table.Stats()))
	case "flush":
		if err := s.table.Flush(); err != nil {
			return false, err
		}
		fmt.Fprintln(s.out, "Executed.")
	default:
		return false, fmt.Errorf("%w '.%s'", ErrUnknownMeta, cmd)
	}
	return false, nil
}

const help = `Statements:
  insert <id> <username> <email>   append a row
  select [n]                       print all rows, or row n
  count                            print the number of rows
Commands:
  .constants   print the storage layout
  .stats       print table and page cache counters
  .flush       write cached pages to disk
  .help        print this message
  .exit        leave the shell
`

func itoa(n int) string { return strconv.Itoa(n) }

func constants() []render.Pair {
	return []render.Pair{
		{Key: "PAGE_SIZE", Value: itoa(rowdb.PageSize)},
		{Key: "ROW_SIZE", Value: itoa(rowdb.RowSize)},
		{Key: "ROWS_PER_PAGE", Value: itoa(rowdb.RowsPerPage)},
		{Key: "COMMON_NODE_HEADER_SIZE", Value: itoa(node.CommonNodeHeaderSize)},
		{Key: "LEAF_NODE_HEADER_SIZE", Value: itoa(node.LeafNodeHeaderSize)},
		{Key: "LEAF_NODE_CELL_SIZE", Value: itoa(node.LeafNodeCellSize)},
		{Key: "LEAF_NODE_SPACE_FOR_CELLS", Value: itoa(node.LeafNodeSpaceForCells)},
		{Key: "LEAF_NODE_MAX_CELLS", Value: itoa(node.LeafNodeMaxCells)},
	}
}
