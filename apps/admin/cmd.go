package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/storage/fixtures"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db    *sqlx.DB // nil unless the sql backend is used
	store core.RecordStore
	out   io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]  - run a goose command (up, down, status, ...) against the database")
	fmt.Fprintln(cli.out, "  seed [--kind KIND]...   - save the bundled fixtures into empty collections")
	fmt.Fprintln(cli.out, "  ls KIND [flags]         - list the records of a collection")
	fmt.Fprintf(cli.out, "\nCollections: %v\n", fixtures.Kinds())
}

func newFlagSet(name, usage string, out io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprintf(out, "Usage: %s\n", usage)
		fs.PrintDefaults()
	}
	return fs
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(ctx, args[2:])

	case "seed":
		seedCmd := newFlagSet("seed", "seed [--kind KIND]...", cli.out)
		kinds := seedCmd.StringSlice("kind", nil, "Collections to seed (default: all)")
		if err := seedCmd.Parse(args[2:]); err != nil {
			return helpOr(err)
		}
		return cli.seed(ctx, *kinds)

	case "ls":
		lsCmd := newFlagSet("ls", "ls KIND [flags]", cli.out)
		opts := listOptions{}
		lsCmd.StringVarP(&opts.search, "search", "s", "", "Case-insensitive text to look for")
		lsCmd.StringArrayVarP(&opts.filters, "filter", "f", nil, "Filter predicate FIELD=VALUE (repeatable)")
		lsCmd.StringVarP(&opts.ordering, "ordering", "o", "", "Comma separated fields, '-' prefix for descending")
		lsCmd.IntVarP(&opts.page, "page", "p", 1, "Page number")
		lsCmd.IntVar(&opts.pageSize, "page-size", 10, "Records per page")
		if err := lsCmd.Parse(args[2:]); err != nil {
			return helpOr(err)
		}
		if lsCmd.NArg() != 1 {
			lsCmd.Usage()
			return errHelp
		}
		opts.kind = lsCmd.Arg(0)
		return cli.list(ctx, opts)

	default:
		cli.printUsage()
		return errHelp
	}
}

func helpOr(err error) error {
	if errors.Is(err, pflag.ErrHelp) {
		return errHelp
	}
	return err
}
