package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/trezcool/portal/storage/fixtures"
)

func (cli *commandLine) seed(ctx context.Context, kinds []string) error {
	counts, err := fixtures.Seed(ctx, cli.store, kinds...)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(cli.out, "%s: %d record(s) saved\n", name, counts[name])
	}
	return nil
}
