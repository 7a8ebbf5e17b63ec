package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oda/rowdb"
	"github.com/oda/rowdb/internal/export"
	"github.com/oda/rowdb/internal/render"
	"github.com/oda/rowdb/internal/repl"
	"github.com/oda/rowdb/internal/server"
	"github.com/oda/rowdb/internal/snapshot"
)

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ReplCmd runs the interactive shell until .exit or end of input.
type ReplCmd struct{}

func (c *ReplCmd) Run(g *Globals, out io.Writer, in io.Reader) (err error) {
	tbl, log, err := g.open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := tbl.Close(); err == nil {
			err = cerr
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return repl.New(tbl, out, log).Run(ctx, in)
}

// InsertCmd appends one row.
type InsertCmd struct {
	ID       uint32 `arg:"" help:"Row id"`
	Username string `arg:"" help:"Username, at most 32 bytes"`
	Email    string `arg:"" help:"Email, at most 256 bytes"`
}

func (c *InsertCmd) Run(g *Globals, out io.Writer) (err error) {
	tbl, _, err := g.open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := tbl.Close(); err == nil {
			err = cerr
		}
	}()

	if err := tbl.Insert(rowdb.Row{ID: c.ID, Username: c.Username, Email: c.Email}); err != nil {
		return err
	}
	fmt.Fprintf(out, "inserted row %d\n", tbl.NumRows()-1)
	return nil
}

// GetCmd prints one row.
type GetCmd struct {
	Index int  `arg:"" help:"Row index, starting at 0"`
	JSON  bool `name:"json" help:"Print JSON"`
}

func (c *GetCmd) Run(g *Globals, out io.Writer) error {
	tbl, _, err := g.open()
	if err != nil {
		return err
	}
	defer tbl.Close()

	r, err := tbl.Read(c.Index)
	if err != nil {
		return err
	}
	if c.JSON {
		return writeJSON(out, r)
	}
	fmt.Fprintln(out, render.Rows([]rowdb.Row{r}))
	return nil
}

// SelectCmd prints a range of rows.
type SelectCmd struct {
	Offset int  `help:"First row index" default:"0"`
	Limit  int  `help:"Maximum number of rows, 0 for all" default:"0"`
	JSON   bool `name:"json" help:"Print JSON"`
}

func (c *SelectCmd) Run(g *Globals, out io.Writer) error {
	tbl, _, err := g.open()
	if err != nil {
		return err
	}
	defer tbl.Close()

	rows := []rowdb.Row{}
	i := 0
	for r, err := range tbl.Scan() {
		if err != nil {
			return err
		}
		if i >= c.Offset && (c.Limit == 0 || len(rows) < c.Limit) {
			rows = append(rows, r)
		}
		i++
	}

	if c.JSON {
		return writeJSON(out, rows)
	}
	fmt.Fprintln(out, render.Rows(rows))
	return nil
}

// CountCmd prints the number of rows.
type CountCmd struct{}

func (c *CountCmd) Run(g *Globals, out io.Writer) error {
	tbl, _, err := g.open()
	if err != nil {
		return err
	}
	defer tbl.Close()

	fmt.Fprintln(out, tbl.NumRows())
	return nil
}

// StatsCmd prints table geometry and cache counters.
type StatsCmd struct {
	JSON bool `name:"json" help:"Print JSON"`
}

func (c *StatsCmd) Run(g *Globals, out io.Writer) error {
	tbl, _, err := g.open()
	if err != nil {
		return err
	}
	defer tbl.Close()

	if c.JSON {
		return writeJSON(out, tbl.Stats())
	}
	fmt.Fprintln(out, render.Stats(tbl.Stats()))
	return nil
}

// ServeCmd serves the table over HTTP until interrupted.
type ServeCmd struct {
	Addr            string        `help:"Listen address" default:":8080" env:"ROWDB_ADDR"`
	ShutdownTimeout time.Duration `name:"shutdown-timeout" help:"Grace period for in-flight requests" default:"10s"`
}

func (c *ServeCmd) Run(g *Globals) (err error) {
	tbl, log, err := g.open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := tbl.Close(); err == nil {
			err = cerr
		}
	}()

	srv := &http.Server{
		Addr:              c.Addr,
		Handler:           server.New(tbl, log).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		log.Info("rowdb API server starting", "addr", c.Addr, "db", g.DB)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), c.ShutdownTimeout)
		defer cancel()
		log.Info("rowdb API server stopping")
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}

// BackupCmd snapshots the backing file. Run it while no other process has
// the table open.
type BackupCmd struct {
	Out   string `arg:"" help:"Snapshot file to write" type:"path"`
	Force bool   `help:"Overwrite an existing snapshot"`
}

func (c *BackupCmd) Run(g *Globals, out io.Writer) error {
	m, err := snapshot.BackupFile(g.DB, c.Out, c.Force)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s  %s (%d bytes)\n", m.Digest, c.Out, m.Size)
	return nil
}

// RestoreCmd replaces the backing file with the contents of a snapshot.
type RestoreCmd struct {
	Snapshot string `arg:"" help:"Snapshot file to read" type:"existingfile"`
	Digest   string `help:"Expected BLAKE3 digest of the restored file"`
	Force    bool   `help:"Overwrite an existing backing file"`
}

func (c *RestoreCmd) Run(g *Globals, out io.Writer) error {
	m, err := snapshot.RestoreFile(c.Snapshot, g.DB, snapshot.RestoreOptions{Digest: c.Digest, Force: c.Force})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s  %s (%d bytes)\n", m.Digest, g.DB, m.Size)
	return nil
}

// DigestCmd prints the BLAKE3 digest of a file, the backing file by default.
type DigestCmd struct {
	File string `arg:"" optional:"" help:"File to hash" type:"path"`
}

func (c *DigestCmd) Run(g *Globals, out io.Writer) error {
	path := c.File
	if path == "" {
		path = g.DB
	}
	d, err := snapshot.FileDigest(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s  %s\n", d, path)
	return nil
}

// ExportCmd copies every row into a SQLite database or a CSV file.
type ExportCmd struct {
	Out    string `arg:"" help:"Output file" type:"path"`
	Format string `help:"Output format" enum:"sqlite,csv" default:"sqlite"`
}

func (c *ExportCmd) Run(g *Globals, out io.Writer) error {
	tbl, _, err := g.open()
	if err != nil {
		return err
	}
	defer tbl.Close()

	var n int
	switch c.Format {
	case "csv":
		f, err := os.Create(c.Out)
		if err != nil {
			return err
		}
		n, err = export.ToCSV(tbl.Scan(), f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(c.Out)
			return err
		}
	default:
		n, err = export.ToSQLite(context.Background(), tbl.Scan(), c.Out)
		if err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "exported %d rows to %s\n", n, c.Out)
	return nil
}

// VersionCmd prints the version.
type VersionCmd struct{}

func (c *VersionCmd) Run(out io.Writer) error {
	fmt.Fprintf(out, "rowdb version %s\n", version)
	return nil
}
