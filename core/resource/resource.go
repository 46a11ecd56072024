// Package resource holds the library catalogue.
package resource

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/collection"
	"github.com/trezcool/portal/core/view"
)

// Types
const (
	TypeBook    = "book"
	TypeJournal = "journal"
	TypeVideo   = "video"
	TypeThesis  = "thesis"
)

var errUnavailable = errors.New("no copy available")

type Resource struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Type      string `json:"type"`
	Subject   string `json:"subject"`
	Year      int    `json:"year"`
	Copies    int    `json:"copies"`
	Available int    `json:"available"` // copies on the shelf
}

var Schema = view.Schema[Resource]{
	Name: "resources",
	Fields: map[string]view.Field[Resource]{
		"id":        {Kind: view.String, Value: func(r Resource) any { return r.ID }},
		"title":     {Kind: view.String, Value: func(r Resource) any { return r.Title }},
		"author":    {Kind: view.String, Value: func(r Resource) any { return r.Author }},
		"type":      {Kind: view.String, Value: func(r Resource) any { return r.Type }},
		"subject":   {Kind: view.String, Value: func(r Resource) any { return r.Subject }},
		"year":      {Kind: view.Number, Value: func(r Resource) any { return r.Year }},
		"available": {Kind: view.Bool, Value: func(r Resource) any { return r.Available > 0 }},
	},
	Searchable:      []string{"title", "author", "subject"},
	DefaultOrdering: []view.Ordering{{Field: "title", Direction: view.Ascending}},
	ID:              func(r Resource) string { return r.ID },
}

type Service struct {
	*collection.Collection[Resource]
}

func NewService(src collection.Source[Resource], saver collection.Saver[Resource], logger core.Logger, opts ...collection.Options[Resource]) *Service {
	var o collection.Options[Resource]
	if len(opts) > 0 {
		o = opts[0]
	}
	o.Logger = logger
	return &Service{Collection: collection.New(Schema, src, saver, o)}
}

// Borrow takes one copy of the resource off the shelf.
func (svc *Service) Borrow(ctx context.Context, id string) (Resource, error) {
	return svc.Update(ctx, id, func(r Resource) (Resource, error) {
		if r.Available < 1 {
			return r, core.NewValidationError(errUnavailable, core.FieldError{Field: "available", Error: errUnavailable.Error()})
		}
		r.Available--
		return r, nil
	})
}

// Return puts one copy back on the shelf.
func (svc *Service) Return(ctx context.Context, id string) (Resource, error) {
	return svc.Update(ctx, id, func(r Resource) (Resource, error) {
		r.Available = min(r.Available+1, r.Copies)
		return r, nil
	})
}

// Shelf returns the number of titles in the catalogue and how many of them have a copy available.
func (svc *Service) Shelf(ctx context.Context) (titles, available int, err error) {
	records, err := svc.Snapshot(ctx)
	if err != nil {
		return 0, 0, err
	}
	onShelf := view.Filter(records, []view.Predicate{{Field: "available", Value: "true"}}, Schema)
	return len(records), len(onShelf), nil
}
