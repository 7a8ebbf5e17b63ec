package rowdb

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/oda/rowdb/internal/row"
)

type TableTestSuite struct {
	suite.Suite
	path string
}

func (s *TableTestSuite) SetupTest() {
	s.path = filepath.Join(s.T().TempDir(), "test.db")
}

func (s *TableTestSuite) open(cfg Config) *Table {
	cfg.Path = s.path
	tbl, err := Open(cfg)
	s.Require().NoError(err)
	return tbl
}

func makeRows(n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{
			ID:       uint32(i + 1),
			Username: fmt.Sprintf("user%d", i+1),
			Email:    fmt.Sprintf("user%d@example.com", i+1),
		}
	}
	return rows
}

func (s *TableTestSuite) TestInsertReadScanReopen() {
	alice := Row{ID: 1, Username: "alice", Email: "alice@x.com"}
	bob := Row{ID: 2, Username: "bob", Email: "bob@x.com"}

	tbl := s.open(Config{})
	s.Require().NoError(tbl.Insert(alice))
	s.Require().NoError(tbl.Insert(bob))

	got, err := tbl.Read(0)
	s.Require().NoError(err)
	s.Equal(alice, got)
	got, err = tbl.Read(1)
	s.Require().NoError(err)
	s.Equal(bob, got)

	all, err := tbl.All()
	s.Require().NoError(err)
	s.Equal([]Row{alice, bob}, all)
	s.Require().NoError(tbl.Close())

	tbl = s.open(Config{})
	defer tbl.Close()
	s.Equal(2, tbl.NumRows())
	all, err = tbl.All()
	s.Require().NoError(err)
	s.Equal([]Row{alice, bob}, all)
}

func (s *TableTestSuite) TestPersistenceAcrossPages() {
	rows := makeRows(3*RowsPerPage + 5)

	tbl := s.open(Config{})
	for _, r := range rows {
		s.Require().NoError(tbl.Insert(r))
	}
	s.Require().NoError(tbl.Close())

	info, err := os.Stat(s.path)
	s.Require().NoError(err)
	s.Equal(int64(4*PageSize), info.Size())

	tbl = s.open(Config{})
	defer tbl.Close()
	s.Equal(len(rows), tbl.NumRows())

	all, err := tbl.All()
	s.Require().NoError(err)
	s.Equal(rows, all)

	// Appending after reopen continues in the partially filled page.
	extra := Row{ID: 99, Username: "late", Email: "late@x.com"}
	s.Require().NoError(tbl.Insert(extra))
	got, err := tbl.Read(len(rows))
	s.Require().NoError(err)
	s.Equal(extra, got)
	s.Equal(4, tbl.Stats().Pages)
}

func (s *TableTestSuite) TestPageFillOrder() {
	tbl := s.open(Config{})

	for i, r := range makeRows(RowsPerPage) {
		s.Require().NoError(tbl.Insert(r))
		s.Equal(1, tbl.Stats().Pages, "row %d must stay on page 0", i)
	}
	s.Require().NoError(tbl.Insert(Row{ID: 100, Username: "next", Email: "n@x"}))
	s.Equal(2, tbl.Stats().Pages)
	s.Require().NoError(tbl.Close())

	data, err := os.ReadFile(s.path)
	s.Require().NoError(err)
	s.Require().Len(data, 2*PageSize)

	first, err := row.Deserialize(data[0:RowSize])
	s.Require().NoError(err)
	s.Equal(uint32(1), first.ID)

	last, err := row.Deserialize(data[(RowsPerPage-1)*RowSize:])
	s.Require().NoError(err)
	s.Equal(uint32(RowsPerPage), last.ID)

	next, err := row.Deserialize(data[PageSize:])
	s.Require().NoError(err)
	s.Equal(Row{ID: 100, Username: "next", Email: "n@x"}, next)

	// The slack after the last slot of a page stays zero.
	for i := RowsPerPage * RowSize; i < PageSize; i++ {
		s.Zero(data[i])
	}
}

func (s *TableTestSuite) TestCloseTwice() {
	tbl := s.open(Config{})
	s.Require().NoError(tbl.Insert(Row{ID: 1, Username: "a", Email: "b"}))
	s.Require().NoError(tbl.Close())
	before, err := os.ReadFile(s.path)
	s.Require().NoError(err)

	s.NoError(tbl.Close())
	after, err := os.ReadFile(s.path)
	s.Require().NoError(err)
	s.Equal(before, after)

	s.ErrorIs(tbl.Insert(Row{ID: 2}), ErrClosed)
	_, err = tbl.Read(0)
	s.ErrorIs(err, ErrClosed)
	s.ErrorIs(tbl.Flush(), ErrClosed)
}

func (s *TableTestSuite) TestFlushKeepsTableOpen() {
	tbl := s.open(Config{})
	defer tbl.Close()

	s.Require().NoError(tbl.Insert(Row{ID: 1, Username: "a", Email: "b"}))
	s.Require().NoError(tbl.Flush())
	s.Require().NoError(tbl.Flush())

	info, err := os.Stat(s.path)
	s.Require().NoError(err)
	s.Equal(int64(PageSize), info.Size())

	s.Require().NoError(tbl.Insert(Row{ID: 2, Username: "c", Email: "d"}))
	s.Equal(2, tbl.NumRows())
}

func (s *TableTestSuite) TestReadOutOfRange() {
	tbl := s.open(Config{})
	defer tbl.Close()

	_, err := tbl.Read(0)
	s.ErrorIs(err, ErrOutOfRange)

	s.Require().NoError(tbl.Insert(Row{ID: 1, Username: "a", Email: "b"}))
	_, err = tbl.Read(1)
	s.ErrorIs(err, ErrOutOfRange)
	_, err = tbl.Read(-1)
	s.ErrorIs(err, ErrOutOfRange)
}

func (s *TableTestSuite) TestCapacityExceeded() {
	tbl := s.open(Config{MaxPages: 1})
	defer tbl.Close()

	for _, r := range makeRows(RowsPerPage) {
		s.Require().NoError(tbl.Insert(r))
	}
	err := tbl.Insert(Row{ID: 999, Username: "over", Email: "o@x"})
	s.ErrorIs(err, ErrCapacityExceeded)
	s.Equal(RowsPerPage, tbl.NumRows())
	s.Equal(RowsPerPage, tbl.Stats().MaxRows)
}

func (s *TableTestSuite) TestInvalidRowLeavesTableUnchanged() {
	tbl := s.open(Config{})
	defer tbl.Close()

	err := tbl.Insert(Row{ID: 1, Username: strings.Repeat("x", MaxUsernameLen+1)})
	s.ErrorIs(err, ErrInvalidRow)
	s.Equal(0, tbl.NumRows())
	s.Equal(0, tbl.Stats().Pages)
}

func (s *TableTestSuite) TestFullWidthUsername() {
	name := strings.Repeat("n", MaxUsernameLen)
	email := strings.Repeat("e", MaxEmailLen)

	tbl := s.open(Config{})
	s.Require().NoError(tbl.Insert(Row{ID: 7, Username: name, Email: email}))
	s.Require().NoError(tbl.Close())

	tbl = s.open(Config{})
	defer tbl.Close()
	got, err := tbl.Read(0)
	s.Require().NoError(err)
	s.Equal(name, got.Username)
	s.Equal(email, got.Email)
}

func (s *TableTestSuite) TestInsertRejectsAllZeroRow() {
	tbl := s.open(Config{})
	s.Require().NoError(tbl.Insert(Row{ID: 1, Username: "a", Email: "b"}))

	err := tbl.Insert(Row{})
	s.ErrorIs(err, ErrInvalidRow)
	s.Equal(1, tbl.NumRows())

	// Any non-zero byte makes the last row recoverable.
	s.Require().NoError(tbl.Insert(Row{ID: 0, Username: "", Email: "z"}))
	s.Require().NoError(tbl.Close())

	tbl = s.open(Config{})
	defer tbl.Close()
	s.Equal(2, tbl.NumRows())
	got, err := tbl.Read(1)
	s.Require().NoError(err)
	s.Equal(Row{Email: "z"}, got)
}

func (s *TableTestSuite) TestCorruptRecordSurfaces() {
	tbl := s.open(Config{})
	s.Require().NoError(tbl.Insert(Row{ID: 1, Username: "a", Email: "b"}))
	s.Require().NoError(tbl.Insert(Row{ID: 2, Username: "c", Email: "d"}))
	s.Require().NoError(tbl.Close())

	data, err := os.ReadFile(s.path)
	s.Require().NoError(err)
	data[RowSize+row.UsernameOffset] = 0xff
	s.Require().NoError(os.WriteFile(s.path, data, 0644))

	tbl = s.open(Config{})
	defer tbl.Close()

	_, err = tbl.Read(1)
	s.ErrorIs(err, ErrCorruptRecord)

	var seen []Row
	var scanErr error
	for r, err := range tbl.Scan() {
		if err != nil {
			scanErr = err
			break
		}
		seen = append(seen, r)
	}
	s.Len(seen, 1)
	s.ErrorIs(scanErr, ErrCorruptRecord)
}

func (s *TableTestSuite) TestBoundedCache() {
	rows := makeRows(5 * RowsPerPage)

	tbl := s.open(Config{CachePages: 2})
	for _, r := range rows {
		s.Require().NoError(tbl.Insert(r))
	}
	st := tbl.Stats()
	s.LessOrEqual(st.Resident, 2)
	s.Positive(st.Evictions)

	all, err := tbl.All()
	s.Require().NoError(err)
	s.Equal(rows, all)
	s.Require().NoError(tbl.Close())

	tbl = s.open(Config{CachePages: 1})
	defer tbl.Close()
	all, err = tbl.All()
	s.Require().NoError(err)
	s.Equal(rows, all)
}

func (s *TableTestSuite) TestMmapBackend() {
	rows := makeRows(RowsPerPage + 3)

	tbl := s.open(Config{Backend: BackendMmap})
	for _, r := range rows {
		s.Require().NoError(tbl.Insert(r))
	}
	s.Require().NoError(tbl.Close())

	// The two backends share one file format.
	tbl = s.open(Config{Backend: BackendFile})
	defer tbl.Close()
	all, err := tbl.All()
	s.Require().NoError(err)
	s.Equal(rows, all)
}

func TestTableSuite(t *testing.T) {
	suite.Run(t, new(TableTestSuite))
}

func TestOpenRejectsBadConfig(t *testing.T) {
	_, err := Open(Config{})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Open(Config{Path: filepath.Join(t.TempDir(), "x.db"), Backend: "tape"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Open(Config{Path: filepath.Join(t.TempDir(), "x.db"), CachePages: -1})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestOpenMissingDirectory(t *testing.T) {
	_, err := Open(Config{Path: filepath.Join(t.TempDir(), "missing", "x.db")})
	assert.ErrorIs(t, err, ErrIO)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultPath, cfg.Path)
	assert.Equal(t, 100, cfg.MaxPages)
	assert.Equal(t, 1400, cfg.MaxRows())
}

func TestScanStopsOnBreak(t *testing.T) {
	tbl, err := Open(Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	defer tbl.Close()

	for _, r := range makeRows(10) {
		require.NoError(t, tbl.Insert(r))
	}

	n := 0
	for range tbl.Scan() {
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)

	// A second scan starts from the first row again.
	for r, err := range tbl.Scan() {
		require.NoError(t, err)
		assert.Equal(t, uint32(1), r.ID)
		break
	}
}
