package services

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/google/uuid"

	"mermanager/internal/gemini"
)

var (
	ErrEditorClosed  = errors.New("editor is not open")
	ErrNotEditing    = errors.New("no backing record to act on")
	ErrNotConfirmed  = errors.New("delete requires confirmation")
	ErrStaleOptimize = errors.New("optimize result arrived for a closed or reopened editor")
	ErrNeedTitleDesc = errors.New("optimize requires a title and a description")
)

// Optimizer is the listing-optimization boundary the editor calls.
type Optimizer interface {
	Optimize(ctx context.Context, title, description, category string) (gemini.Result, error)
}

type editorState int

const (
	stateClosed editorState = iota
	stateCreate
	stateEdit
)

// Editor is the modal form state machine: closed, open-create, or
// open-edit over one backing record. Each open gets a fresh session
// token; an optimize result is applied only when the token still matches,
// so a result for an editor that was closed or reopened for a different
// record is discarded rather than applied.
type Editor struct {
	Listings  *ListingService
	Optimizer Optimizer

	mu     sync.Mutex
	state  editorState
	editID string
	token  string
	draft  Draft
}

func NewEditor(ls *ListingService, opt Optimizer) *Editor {
	return &Editor{Listings: ls, Optimizer: opt}
}

// OpenCreate enters open-create with default field values.
func (e *Editor) OpenCreate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = stateCreate
	e.editID = ""
	e.token = uuid.NewString()
	e.draft = NewDraft()
}

// OpenEdit enters open-edit pre-populated from the listing's current
// fields. Ownership was checked by whoever fetched the listing.
func (e *Editor) OpenEdit(ctx context.Context, ownerID, id string) error {
	l, err := e.Listings.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = stateEdit
	e.editID = l.ID
	e.token = uuid.NewString()
	e.draft = DraftOf(l)
	return nil
}

// Close discards the in-progress draft unconditionally.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = stateClosed
	e.editID = ""
	e.token = ""
	e.draft = Draft{}
}

// Draft returns the current form state and whether the editor is open.
func (e *Editor) Draft() (Draft, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft, e.state != stateClosed
}

// Editing reports the backing record id when in open-edit.
func (e *Editor) Editing() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.editID, e.state == stateEdit
}

// Token identifies the current open session; stale form posts carry an
// old token and are ignored.
func (e *Editor) Token() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.token
}

// SetDraft replaces the in-progress form fields.
func (e *Editor) SetDraft(d Draft) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == stateClosed {
		return ErrEditorClosed
	}
	e.draft = d
	return nil
}

// Optimize sends the draft's text fields to the optimization service and
// overwrites title, description and price on success. Cost, status,
// category and image are untouched. On any failure the draft is exactly
// as it was before the call.
func (e *Editor) Optimize(ctx context.Context) error {
	e.mu.Lock()
	if e.state == stateClosed {
		e.mu.Unlock()
		return ErrEditorClosed
	}
	if e.draft.Title == "" || e.draft.Description == "" {
		e.mu.Unlock()
		return ErrNeedTitleDesc
	}
	token := e.token
	title, desc, cat := e.draft.Title, e.draft.Description, e.draft.Category
	e.mu.Unlock()

	res, err := e.Optimizer.Optimize(ctx, title, desc, cat)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == stateClosed || e.token != token {
		return ErrStaleOptimize
	}
	e.draft.Title = res.Title
	e.draft.Description = res.Description
	e.draft.Price = int64(math.Round(res.SuggestedPrice))
	return nil
}

// Save issues a create or update for the current draft and closes the
// editor on success. On failure the editor stays open so the user can
// retry.
func (e *Editor) Save(ctx context.Context, ownerID string) error {
	e.mu.Lock()
	state, id, d := e.state, e.editID, e.draft
	e.mu.Unlock()

	switch state {
	case stateClosed:
		return ErrEditorClosed
	case stateEdit:
		if err := e.Listings.Update(ctx, ownerID, id, d); err != nil {
			return err
		}
	default:
		if _, err := e.Listings.Create(ctx, ownerID, d); err != nil {
			return err
		}
	}
	e.Close()
	return nil
}

// Delete removes the backing record. Only valid in open-edit, and only
// with an explicit confirmation; on decline nothing changes.
func (e *Editor) Delete(ctx context.Context, ownerID string, confirmed bool) error {
	e.mu.Lock()
	state, id := e.state, e.editID
	e.mu.Unlock()

	if state != stateEdit {
		return ErrNotEditing
	}
	if !confirmed {
		return ErrNotConfirmed
	}
	if err := e.Listings.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	e.Close()
	return nil
}

// Editors hands out one editor per web session.
type Editors struct {
	Listings  *ListingService
	Optimizer Optimizer

	mu sync.Mutex
	m  map[string]*Editor
}

func NewEditors(ls *ListingService, opt Optimizer) *Editors {
	return &Editors{Listings: ls, Optimizer: opt, m: map[string]*Editor{}}
}

func (r *Editors) For(sid string) *Editor {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.m[sid]
	if !ok {
		e = NewEditor(r.Listings, r.Optimizer)
		r.m[sid] = e
	}
	return e
}
