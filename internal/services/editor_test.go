package services_test

import (
	"context"
	"errors"
	"testing"

	"mermanager/internal/domain"
	"mermanager/internal/gemini"
	"mermanager/internal/services"
	"mermanager/internal/store"
)

type optimizerFunc func(ctx context.Context, title, description, category string) (gemini.Result, error)

func (f optimizerFunc) Optimize(ctx context.Context, title, description, category string) (gemini.Result, error) {
	return f(ctx, title, description, category)
}

func newEditor(t *testing.T, opt services.Optimizer) (*services.Editor, *services.ListingService, store.Store) {
	t.Helper()
	st := memStore(t)
	svc := fixedClock(st, 1000)
	return services.NewEditor(svc, opt), svc, st
}

func noOptimizer(t *testing.T) services.Optimizer {
	return optimizerFunc(func(context.Context, string, string, string) (gemini.Result, error) {
		t.Fatal("optimizer must not be called")
		return gemini.Result{}, nil
	})
}

func TestEditorCreateFlow(t *testing.T) {
	e, _, st := newEditor(t, noOptimizer(t))
	ctx := context.Background()

	if _, open := e.Draft(); open {
		t.Fatal("editor should start closed")
	}
	if err := e.Save(ctx, "u1"); !errors.Is(err, services.ErrEditorClosed) {
		t.Fatalf("save on closed editor: want ErrEditorClosed, got %v", err)
	}

	e.OpenCreate()
	d, open := e.Draft()
	if !open {
		t.Fatal("editor should be open")
	}
	if d.Status != domain.StatusActive || d.Category != domain.Categories[0] || d.Title != "" {
		t.Fatalf("bad open-create defaults: %+v", d)
	}

	d.Title = "新規商品"
	d.Price = 500
	if err := e.SetDraft(d); err != nil {
		t.Fatal(err)
	}
	if err := e.Save(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if _, open := e.Draft(); open {
		t.Fatal("editor should close after save")
	}

	var snap []domain.Listing
	unsub, err := st.Subscribe("u1", func(ls []domain.Listing) { snap = ls })
	if err != nil {
		t.Fatal(err)
	}
	defer unsub()
	if len(snap) != 1 || snap[0].Title != "新規商品" {
		t.Fatalf("create did not reach the store: %+v", snap)
	}
}

func TestEditorEditFlowPreservesIdentity(t *testing.T) {
	e, svc, st := newEditor(t, noOptimizer(t))
	ctx := context.Background()

	d := services.NewDraft()
	d.Title = "before"
	id, err := svc.Create(ctx, "u1", d)
	if err != nil {
		t.Fatal(err)
	}
	orig, _ := st.Get(ctx, id)

	if err := e.OpenEdit(ctx, "u1", id); err != nil {
		t.Fatal(err)
	}
	got, _ := e.Draft()
	if got.Title != "before" {
		t.Fatalf("draft not pre-populated: %+v", got)
	}

	got.Title = "after"
	if err := e.SetDraft(got); err != nil {
		t.Fatal(err)
	}
	if err := e.Save(ctx, "u1"); err != nil {
		t.Fatal(err)
	}

	l, err := st.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if l.Title != "after" || l.CreatedAt != orig.CreatedAt || l.OwnerID != "u1" {
		t.Fatalf("edit broke identity fields: %+v", l)
	}
}

func TestEditorOpenEditRejectsForeignListing(t *testing.T) {
	e, svc, _ := newEditor(t, noOptimizer(t))
	ctx := context.Background()

	d := services.NewDraft()
	d.Title = "theirs"
	id, err := svc.Create(ctx, "u2", d)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.OpenEdit(ctx, "u1", id); !errors.Is(err, services.ErrNotOwner) {
		t.Fatalf("want ErrNotOwner, got %v", err)
	}
}

func TestOptimizeRequiresTitleAndDescription(t *testing.T) {
	e, _, _ := newEditor(t, noOptimizer(t))
	e.OpenCreate()

	d, _ := e.Draft()
	d.Title = "タイトルのみ"
	_ = e.SetDraft(d)
	if err := e.Optimize(context.Background()); !errors.Is(err, services.ErrNeedTitleDesc) {
		t.Fatalf("want ErrNeedTitleDesc, got %v", err)
	}
}

func TestOptimizeFailureLeavesDraftUntouched(t *testing.T) {
	fail := optimizerFunc(func(context.Context, string, string, string) (gemini.Result, error) {
		return gemini.Result{}, gemini.ErrBadReply
	})
	e, _, _ := newEditor(t, fail)
	e.OpenCreate()

	d, _ := e.Draft()
	d.Title = "古いTシャツ"
	d.Description = "サイズM"
	d.Category = "ファッション"
	d.Price = 800
	_ = e.SetDraft(d)

	if err := e.Optimize(context.Background()); !errors.Is(err, gemini.ErrBadReply) {
		t.Fatalf("want ErrBadReply, got %v", err)
	}

	after, _ := e.Draft()
	if after != d {
		t.Fatalf("draft changed on failed optimize:\n before %+v\n after  %+v", d, after)
	}
}

func TestOptimizeOverwritesOnlyTextAndPrice(t *testing.T) {
	ok := optimizerFunc(func(_ context.Context, title, desc, cat string) (gemini.Result, error) {
		if title != "古いTシャツ" || desc != "サイズM" || cat != "ファッション" {
			return gemini.Result{}, errors.New("unexpected inputs")
		}
		return gemini.Result{Title: "【美品】Tシャツ Mサイズ", Description: "よい説明文", SuggestedPrice: 1500}, nil
	})
	e, _, _ := newEditor(t, ok)
	e.OpenCreate()

	d, _ := e.Draft()
	d.Title = "古いTシャツ"
	d.Description = "サイズM"
	d.Category = "ファッション"
	d.Cost = 300
	d.Status = domain.StatusDraft
	d.ImageURL = "http://example.com/x.jpg"
	_ = e.SetDraft(d)

	if err := e.Optimize(context.Background()); err != nil {
		t.Fatal(err)
	}

	after, _ := e.Draft()
	if after.Title != "【美品】Tシャツ Mサイズ" || after.Description != "よい説明文" || after.Price != 1500 {
		t.Fatalf("optimized fields not applied: %+v", after)
	}
	if after.Cost != 300 || after.Status != domain.StatusDraft || after.Category != "ファッション" || after.ImageURL != d.ImageURL {
		t.Fatalf("untouched fields changed: %+v", after)
	}
}

func TestOptimizeResultForReopenedEditorIsDiscarded(t *testing.T) {
	var e *services.Editor
	racy := optimizerFunc(func(context.Context, string, string, string) (gemini.Result, error) {
		// the user closes the editor and reopens it for a different
		// record while the call is in flight
		e.Close()
		e.OpenCreate()
		return gemini.Result{Title: "stale", Description: "stale", SuggestedPrice: 1}, nil
	})
	e, _, _ = newEditor(t, racy)
	e.OpenCreate()

	d, _ := e.Draft()
	d.Title = "original"
	d.Description = "original desc"
	_ = e.SetDraft(d)

	if err := e.Optimize(context.Background()); !errors.Is(err, services.ErrStaleOptimize) {
		t.Fatalf("want ErrStaleOptimize, got %v", err)
	}
	after, open := e.Draft()
	if !open {
		t.Fatal("reopened editor should still be open")
	}
	if after.Title == "stale" {
		t.Fatal("stale optimize result applied to a reopened editor")
	}
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	e, svc, st := newEditor(t, noOptimizer(t))
	ctx := context.Background()

	d := services.NewDraft()
	d.Title = "削除対象"
	id, err := svc.Create(ctx, "u1", d)
	if err != nil {
		t.Fatal(err)
	}

	// delete from open-create has no backing record
	e.OpenCreate()
	if err := e.Delete(ctx, "u1", true); !errors.Is(err, services.ErrNotEditing) {
		t.Fatalf("want ErrNotEditing, got %v", err)
	}
	e.Close()

	if err := e.OpenEdit(ctx, "u1", id); err != nil {
		t.Fatal(err)
	}
	if err := e.Delete(ctx, "u1", false); !errors.Is(err, services.ErrNotConfirmed) {
		t.Fatalf("want ErrNotConfirmed, got %v", err)
	}
	if _, open := e.Draft(); !open {
		t.Fatal("declined delete must not close the editor")
	}
	if _, err := st.Get(ctx, id); err != nil {
		t.Fatalf("declined delete removed the record: %v", err)
	}

	if err := e.Delete(ctx, "u1", true); err != nil {
		t.Fatal(err)
	}
	if _, open := e.Draft(); open {
		t.Fatal("confirmed delete should close the editor")
	}
	if _, err := st.Get(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("record should be gone, got %v", err)
	}
}
