package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/alert"
	"github.com/trezcool/portal/core/collection"
	"github.com/trezcool/portal/core/conversation"
	"github.com/trezcool/portal/core/meeting"
	"github.com/trezcool/portal/core/resource"
	"github.com/trezcool/portal/core/submission"
	"github.com/trezcool/portal/core/ticket"
	"github.com/trezcool/portal/core/view"
)

type listOptions struct {
	kind     string
	search   string
	filters  []string
	ordering string
	page     int
	pageSize int
}

func (o listOptions) params() (view.Params, error) {
	p := view.Params{
		Search:   o.search,
		Ordering: view.ParseOrdering(o.ordering),
		Page:     o.page,
		PageSize: o.pageSize,
	}
	for _, f := range o.filters {
		pred, ok := view.ParsePredicate(f)
		if !ok {
			return p, errors.Errorf("invalid filter %q, want FIELD=VALUE", f)
		}
		p.Filters = append(p.Filters, pred)
	}
	return p, nil
}

type lister func(ctx context.Context, store core.RecordStore, p view.Params, out io.Writer) error

func listerFor[T any](schema view.Schema[T]) lister {
	return func(ctx context.Context, store core.RecordStore, p view.Params, out io.Writer) error {
		records, err := collection.NewStoreAdapter(store, schema).Fetch(ctx)
		if err != nil {
			return err
		}
		res := view.Query(records, p, schema)
		for i, rec := range res.Items {
			body, err := json.Marshal(rec)
			if err != nil {
				return errors.Wrapf(err, "encoding %s %s", schema.Name, schema.ID(rec))
			}
			fmt.Fprintf(out, "%d\t%s\t%s\n", res.Offset()+i+1, schema.ID(rec), body)
		}
		fmt.Fprintf(out, "-- %s: %d record(s), page %d/%d (%s)\n",
			schema.Name, res.TotalItems, res.CurrentPage, res.TotalPages, res.State)
		return nil
	}
}

var listers = map[string]lister{
	alert.Schema.Name:        listerFor(alert.Schema),
	ticket.Schema.Name:       listerFor(ticket.Schema),
	meeting.Schema.Name:      listerFor(meeting.Schema),
	submission.Schema.Name:   listerFor(submission.Schema),
	resource.Schema.Name:     listerFor(resource.Schema),
	conversation.Schema.Name: listerFor(conversation.Schema),
}

func (cli *commandLine) list(ctx context.Context, opts listOptions) error {
	ls, ok := listers[opts.kind]
	if !ok {
		return errors.Errorf("unknown collection %q", opts.kind)
	}
	p, err := opts.params()
	if err != nil {
		return err
	}
	return ls(ctx, cli.store, p, cli.out)
}
