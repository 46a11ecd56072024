package main

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sqlxrepos "github.com/trezcool/portal/storage/database/sqlx"
	"github.com/trezcool/portal/tests"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	db := testutil.PrepareDB(t)
	out := &bytes.Buffer{}
	return &commandLine{
		db:    db,
		store: sqlxrepos.NewRecordStore(db),
		out:   out,
	}, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantIDs    []string
	wantFirst  int // row number of the first id
	wantFooter string
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	orig := gooseRunFunc
	t.Cleanup(func() { gooseRunFunc = orig })
	gooseRunFunc = func(_ context.Context, command string, _ *sqlx.DB, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "add_tags", "sql"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(context.Background(), append([]string{"admin"}, tt.args...)))
		})
	}

	t.Run("without database", func(t *testing.T) {
		noDB := &commandLine{store: cli.store, out: cli.out}
		assert.Equal(t, errNoDatabase, noDB.run(context.Background(), []string{"admin", "migrate", "up"}))
	})
}

func Test_commandLine_migrate_real(t *testing.T) {
	cli, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, cli.run(ctx, []string{"admin", "migrate", "down-to", "0"}))
	var n int
	require.Error(t, cli.db.Get(&n, "SELECT COUNT(*) FROM records"), "records table should be dropped")

	require.NoError(t, cli.run(ctx, []string{"admin", "migrate", "up"}))
	require.NoError(t, cli.db.Get(&n, "SELECT COUNT(*) FROM records"))
	assert.Zero(t, n)
}

func Test_commandLine_seed(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()

	require.NoError(t, cli.run(ctx, []string{"admin", "seed", "--kind", "tickets"}))
	assert.Equal(t, "tickets: 4 record(s) saved\n", out.String())

	out.Reset()
	require.NoError(t, cli.run(ctx, []string{"admin", "seed", "--kind", "tickets,resources"}))
	assert.Equal(t, "resources: 5 record(s) saved\ntickets: 0 record(s) saved\n", out.String())

	err := cli.run(ctx, []string{"admin", "seed", "--kind", "lol"})
	if assert.Error(t, err) {
		assert.Equal(t, `unknown collection "lol"`, err.Error())
	}

	assert.Equal(t, errHelp, cli.run(ctx, []string{"admin", "seed", "--help"}))
}

func Test_commandLine_list(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()
	require.NoError(t, cli.run(ctx, []string{"admin", "seed"}))

	tests := []cliTest{
		{name: "no kind", args: []string{"ls"}, wantErr: errHelp},
		{name: "help", args: []string{"ls", "--help"}, wantErr: errHelp},
		{name: "unknown kind", args: []string{"ls", "courses"}, wantErrStr: `unknown collection "courses"`},
		{name: "invalid filter", args: []string{"ls", "tickets", "-f", "open"}, wantErrStr: `invalid filter "open", want FIELD=VALUE`},
		{
			name:       "filter, default ordering",
			args:       []string{"ls", "tickets", "-f", "status=open"},
			wantIDs:    []string{"TK-3A4B5C6D", "TK-1A2B3C4D"},
			wantFirst:  1,
			wantFooter: "-- tickets: 2 record(s), page 1/1 (ready)",
		},
		{
			name:       "ordering and page size",
			args:       []string{"ls", "resources", "--ordering=-year", "--page-size", "2"},
			wantIDs:    []string{"LR-003", "LR-005"},
			wantFirst:  1,
			wantFooter: "-- resources: 5 record(s), page 1/3 (ready)",
		},
		{
			name:       "last page",
			args:       []string{"ls", "resources", "--ordering=-year", "--page-size", "2", "-p", "9"},
			wantIDs:    []string{"LR-002"},
			wantFirst:  5,
			wantFooter: "-- resources: 5 record(s), page 3/3 (ready)",
		},
		{
			name:       "search",
			args:       []string{"ls", "conversations", "-s", "ayaan"},
			wantIDs:    []string{"CV-02"},
			wantFirst:  1,
			wantFooter: "-- conversations: 1 record(s), page 1/1 (ready)",
		},
		{
			name:       "no match",
			args:       []string{"ls", "alerts", "-f", "priority=nope"},
			wantFooter: "-- alerts: 0 record(s), page 1/0 (no_match)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(ctx, append([]string{"admin"}, tt.args...))
			tt.check(t, err)
			if err != nil {
				return
			}

			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			require.NotEmpty(t, lines)
			assert.Equal(t, tt.wantFooter, lines[len(lines)-1])

			var ids []string
			for i, line := range lines[:len(lines)-1] {
				fields := strings.SplitN(line, "\t", 3)
				require.Len(t, fields, 3, line)
				assert.Equal(t, strconv.Itoa(tt.wantFirst+i), fields[0])
				ids = append(ids, fields[1])
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}
