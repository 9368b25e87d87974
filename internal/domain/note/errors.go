package note

import "errors"

var (
	// ErrNoteNotFound is returned when a note id does not resolve.
	ErrNoteNotFound = errors.New("note not found")

	// ErrImmutableDocument is returned for any edit, save, or sign attempt
	// on a note that has already been signed. Signed content is frozen for
	// the remainder of the note's existence; callers must not retry.
	ErrImmutableDocument = errors.New("note is signed and immutable")

	// ErrNotOwner is returned when a practitioner other than the note's
	// author attempts to modify it.
	ErrNotOwner = errors.New("note belongs to another practitioner")

	// ErrSaveInFlight is returned when a save or sign is requested while a
	// previous write is still outstanding. At most one write per note may
	// be in flight; the caller retries after the current write settles.
	ErrSaveInFlight = errors.New("a save is already in progress for this note")
)
