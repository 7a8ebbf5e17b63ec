// Command rowdb manages a single-table row store.
//
// Running rowdb without a command starts the interactive shell. Flags may
// also come from ROWDB_* environment variables or from .rowdb.json in the
// working directory or the home directory, keyed by flag name.
package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/oda/rowdb"
	"github.com/oda/rowdb/internal/logging"
)

const version = "0.1.0"

// Globals are the flags shared by every command.
type Globals struct {
	DB         string `name:"db" short:"d" help:"Backing file path" default:"database.db" env:"ROWDB_PATH" type:"path"`
	MaxPages   int    `name:"max-pages" help:"Capacity bound in pages" default:"100" env:"ROWDB_MAX_PAGES"`
	CachePages int    `name:"cache-pages" help:"Resident page bound, 0 keeps every page" default:"0" env:"ROWDB_CACHE_PAGES"`
	Backend    string `help:"Page I/O backend" enum:"file,mmap" default:"file" env:"ROWDB_BACKEND"`
	LogLevel   string `name:"log-level" help:"Log level" enum:"debug,info,warn,error" default:"warn" env:"ROWDB_LOG_LEVEL"`
	LogFormat  string `name:"log-format" help:"Log format" enum:"text,json" default:"text" env:"ROWDB_LOG_FORMAT"`
}

// CLI defines the command-line interface for rowdb.
type CLI struct {
	Globals

	Repl    ReplCmd    `cmd:"" default:"1" help:"Start the interactive shell"`
	Insert  InsertCmd  `cmd:"" help:"Append a row"`
	Get     GetCmd     `cmd:"" help:"Print the row at an index"`
	Select  SelectCmd  `cmd:"" help:"Print rows in insertion order"`
	Count   CountCmd   `cmd:"" help:"Print the number of rows"`
	Stats   StatsCmd   `cmd:"" help:"Print table and page cache statistics"`
	Serve   ServeCmd   `cmd:"" help:"Serve the table over HTTP"`
	Backup  BackupCmd  `cmd:"" help:"Write a compressed snapshot of the backing file"`
	Restore RestoreCmd `cmd:"" help:"Restore the backing file from a snapshot"`
	Digest  DigestCmd  `cmd:"" help:"Print the BLAKE3 digest of a file"`
	Export  ExportCmd  `cmd:"" help:"Export rows to SQLite or CSV"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

func (g *Globals) logger(w io.Writer) (*slog.Logger, error) {
	return logging.New(logging.Options{Level: g.LogLevel, Format: g.LogFormat, Output: w})
}

func (g *Globals) config(log *slog.Logger) rowdb.Config {
	return rowdb.Config{
		Path:       g.DB,
		MaxPages:   g.MaxPages,
		CachePages: g.CachePages,
		Backend:    g.Backend,
		Logger:     log,
	}
}

// open opens the configured table with a logger writing to stderr.
func (g *Globals) open() (*rowdb.Table, *slog.Logger, error) {
	log, err := g.logger(os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	tbl, err := rowdb.Open(g.config(log))
	if err != nil {
		return nil, nil, err
	}
	return tbl, log, nil
}

// newParser builds the kong parser. Command output goes to out and the
// shell reads from in.
func newParser(cli *CLI, out io.Writer, in io.Reader, configPaths ...string) (*kong.Kong, error) {
	return kong.New(cli,
		kong.Name("rowdb"),
		kong.Description("A single-table row store over a paged file."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Configuration(kong.JSON, configPaths...),
		kong.BindTo(out, (*io.Writer)(nil)),
		kong.BindTo(in, (*io.Reader)(nil)),
		kong.Writers(out, os.Stderr),
	)
}

func main() {
	var cli CLI
	parser, err := newParser(&cli, os.Stdout, os.Stdin, ".rowdb.json", "~/.rowdb.json")
	if err != nil {
		panic(err)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	err = ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
