package model

import "time"

// Verse is one scripture passage as fetched from an external source or the
// local fallback list. Rows are immutable once written; uniqueness is
// intended on (reference, text) and enforced with insert-or-ignore
// semantics so repeated fetches of the same passage do not pile up
// duplicate rows.
//
// Fields:
//
//	ID          – primary key identifier.
//	Reference   – canonical reference string (e.g. "John 3:16").
//	Text        – passage text.
//	Translation – translation name or abbreviation.
//	Source      – which source produced this row (api name or "fallback").
//	Book        – book name, when the source reports it separately.
//	CreatedAt   – fetch timestamp.
type Verse struct {
	ID          int64     // verses.id
	Reference   string    // verses.reference
	Text        string    // verses.text
	Translation string    // verses.translation
	Source      string    // verses.source
	Book        string    // verses.book
	CreatedAt   time.Time // verses.created_at
}
