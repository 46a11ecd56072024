// Package submission holds the performance entries shown on student, parent and teacher dashboards.
package submission

import (
	"context"
	"time"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/collection"
	"github.com/trezcool/portal/core/view"
)

type Submission struct {
	ID          string    `json:"id"`
	Student     string    `json:"student"`
	Course      string    `json:"course"`
	Assignment  string    `json:"assignment"`
	Score       *float64  `json:"score"` // nil until graded
	Grade       string    `json:"grade,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

var Schema = view.Schema[Submission]{
	Name: "submissions",
	Fields: map[string]view.Field[Submission]{
		"id":          {Kind: view.String, Value: func(s Submission) any { return s.ID }},
		"student":     {Kind: view.String, Value: func(s Submission) any { return s.Student }},
		"course":      {Kind: view.String, Value: func(s Submission) any { return s.Course }},
		"assignment":  {Kind: view.String, Value: func(s Submission) any { return s.Assignment }},
		"score":       {Kind: view.Number, Value: func(s Submission) any { return s.Score }},
		"grade":       {Kind: view.String, Value: func(s Submission) any { return s.Grade }},
		"graded":      {Kind: view.Bool, Value: func(s Submission) any { return s.Score != nil }},
		"submittedAt": {Kind: view.Time, Value: func(s Submission) any { return s.SubmittedAt }},
	},
	Searchable:      []string{"student", "course", "assignment"},
	DefaultOrdering: []view.Ordering{{Field: "submittedAt", Direction: view.Descending}},
	ID:              func(s Submission) string { return s.ID },
}

// GradeFor maps a score out of 100 to a letter grade.
func GradeFor(score float64) string {
	switch {
	case score >= 80:
		return "A"
	case score >= 70:
		return "B"
	case score >= 60:
		return "C"
	case score >= 50:
		return "D"
	}
	return "E"
}

type Service struct {
	*collection.Collection[Submission]
}

func NewService(src collection.Source[Submission], saver collection.Saver[Submission], logger core.Logger, opts ...collection.Options[Submission]) *Service {
	var o collection.Options[Submission]
	if len(opts) > 0 {
		o = opts[0]
	}
	o.Logger = logger
	return &Service{Collection: collection.New(Schema, src, saver, o)}
}

// Grade records the score of a submission and derives its letter grade.
func (svc *Service) Grade(ctx context.Context, id string, score float64) (Submission, error) {
	if score < 0 || score > 100 {
		return Submission{}, core.NewValidationError(errInvalidScore, core.FieldError{Field: "score", Error: errInvalidScore.Error()})
	}
	return svc.Update(ctx, id, func(sub Submission) (Submission, error) {
		sub.Score = &score
		sub.Grade = GradeFor(score)
		return sub, nil
	})
}

// Average returns the mean score of the graded submissions matching preds, and how many there are.
func (svc *Service) Average(ctx context.Context, preds ...view.Predicate) (float64, int, error) {
	records, err := svc.Snapshot(ctx)
	if err != nil {
		return 0, 0, err
	}
	preds = append(preds[:len(preds):len(preds)], view.Predicate{Field: "graded", Value: "true"})
	graded := view.Filter(records, preds, Schema)
	if len(graded) == 0 {
		return 0, 0, nil
	}
	var sum float64
	for _, s := range graded {
		sum += *s.Score
	}
	return sum / float64(len(graded)), len(graded), nil
}
