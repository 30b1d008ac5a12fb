package feedback

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Response kinds mirror the question types of the survey form. Each response
// fills exactly one value field according to its kind.
const (
	KindRating = "nota"
	KindBool   = "sim_nao"
	KindOption = "opcao"
	KindText   = "texto"
)

type Feedback struct {
	ID                uuid.UUID
	CategoryID        uuid.UUID
	CourseClass       string
	IdentifiedName    string
	IdentifiedContact string
	CreatedAt         time.Time
	Responses         []Response
}

type Response struct {
	ID          uuid.UUID
	QuestionID  uuid.UUID
	Kind        string
	Rating      *int
	BoolValue   *bool
	OptionValue *string
	TextValue   *string
}

// Identified reports whether the submitter chose to identify themselves.
func (f *Feedback) Identified() bool {
	return f.IdentifiedName != "" || f.IdentifiedContact != ""
}

// Store covers the write path for submissions and the read-only queries the
// alert engine evaluates against.
type Store interface {
	CategoryActive(ctx context.Context, id uuid.UUID) (bool, error)
	CategoryName(ctx context.Context, id uuid.UUID) (string, bool, error)
	ValidQuestionIDs(ctx context.Context, categoryID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error)
	Insert(ctx context.Context, fb *Feedback) error

	RatingCount(ctx context.Context, since time.Time, categoryID *uuid.UUID) (int, error)
	RatingAverage(ctx context.Context, since time.Time, categoryID *uuid.UUID) (float64, error)
	CountKeyword(ctx context.Context, since time.Time, keyword string) (int, error)
}
