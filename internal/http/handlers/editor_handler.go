package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"mermanager/internal/domain"
	"mermanager/internal/gemini"
	"mermanager/internal/log"
	"mermanager/internal/services"
	"mermanager/internal/store"
	"mermanager/internal/validate"
)

type EditorHandler struct {
	Editors  *services.Editors
	Listings *services.ListingService
	Auth     *services.AuthService
}

func currentUser(c *fiber.Ctx) *domain.User {
	u, _ := c.Locals("user").(*domain.User)
	return u
}

func (h *EditorHandler) editor(c *fiber.Ctx) *services.Editor {
	return h.Editors.For(ensureSID(c))
}

// renderForm shows the editor with its current draft. Err is an inline
// failure notice; the draft itself is never rolled back here.
func (h *EditorHandler) renderForm(c *fiber.Ctx, e *services.Editor, errMsg string) error {
	d, open := e.Draft()
	if !open {
		return c.Redirect("/listings")
	}
	id, editing := e.Editing()
	return render(c, "edit", fiber.Map{
		"Draft":      d,
		"Editing":    editing,
		"EditID":     id,
		"Token":      e.Token(),
		"Categories": domain.Categories,
		"Err":        errMsg,
	})
}

func (h *EditorHandler) New(c *fiber.Ctx) error {
	e := h.editor(c)
	e.OpenCreate()
	return h.renderForm(c, e, "")
}

func (h *EditorHandler) Edit(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "listing"})
		return c.Status(404).Render("notfound", fiber.Map{"Message": "商品が見つかりません"})
	}
	e := h.editor(c)
	if err := e.OpenEdit(c.Context(), currentUser(c).ID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, services.ErrNotOwner) {
			return c.Status(404).Render("notfound", fiber.Map{"Message": "商品が見つかりません"})
		}
		return err
	}
	return h.renderForm(c, e, "")
}

// parseDraft reads the posted form into a draft, reporting the first
// validation problem as a user-facing message.
func parseDraft(c *fiber.Ctx) (services.Draft, string) {
	d := services.NewDraft()

	title, ok := validate.Title(c.FormValue("title"))
	if !ok {
		return d, "タイトルを入力してください（80文字以内）"
	}
	d.Title = title
	d.Description = validate.Text(c.FormValue("description"))

	price, ok := validate.Money(c.FormValue("price"))
	if !ok {
		return d, "価格は0以上の整数で入力してください"
	}
	d.Price = price

	cost, ok := validate.Money(c.FormValue("cost"))
	if !ok {
		return d, "仕入れ値は0以上の整数で入力してください"
	}
	d.Cost = cost

	status, ok := validate.Status(c.FormValue("status"))
	if !ok {
		return d, "ステータスが不正です"
	}
	d.Status = status
	d.Category = validate.Category(c.FormValue("category"))
	d.ImageURL = validate.Text(c.FormValue("image_url"))
	return d, ""
}

// Save creates or updates depending on the editor's open mode and closes
// it on success. Store failures leave the editor open for a manual retry.
func (h *EditorHandler) Save(c *fiber.Ctx) error {
	e := h.editor(c)
	if c.FormValue("token") != e.Token() {
		log.Security(c, "editor.stale_form", nil)
		return c.Redirect("/listings")
	}

	d, msg := parseDraft(c)
	if msg != "" {
		_ = e.SetDraft(d)
		return h.renderForm(c, e, msg)
	}
	if err := e.SetDraft(d); err != nil {
		return c.Redirect("/listings")
	}

	if err := e.Save(c.Context(), currentUser(c).ID); err != nil {
		log.Error(c, "listing.save.fail", err, nil)
		return h.renderForm(c, e, "保存に失敗しました。もう一度お試しください。")
	}
	log.Audit(c, "listing.save", nil)
	return c.Redirect("/listings")
}

// Optimize rewrites the draft's title, description and price via the
// optimization service. On failure the form is exactly as it was.
func (h *EditorHandler) Optimize(c *fiber.Ctx) error {
	e := h.editor(c)
	if c.FormValue("token") != e.Token() {
		log.Security(c, "editor.stale_form", nil)
		return c.Redirect("/listings")
	}

	// Carry the user's latest keystrokes into the draft first.
	d, msg := parseDraft(c)
	if msg == "" {
		if err := e.SetDraft(d); err != nil {
			return c.Redirect("/listings")
		}
	}

	if err := e.Optimize(c.Context()); err != nil {
		log.Error(c, "listing.optimize.fail", err, nil)
		switch {
		case errors.Is(err, services.ErrNeedTitleDesc):
			return h.renderForm(c, e, "AI最適化にはタイトルと説明文が必要です")
		case errors.Is(err, gemini.ErrNoCredential):
			return h.renderForm(c, e, "AI最適化が設定されていません")
		case errors.Is(err, services.ErrStaleOptimize):
			return c.Redirect("/listings")
		default:
			return h.renderForm(c, e, "AI最適化に失敗しました。時間をおいて再度お試しください。")
		}
	}
	log.Info(c, "listing.optimize", nil)
	return h.renderForm(c, e, "")
}

// Delete removes the backing record after an explicit confirmation.
func (h *EditorHandler) Delete(c *fiber.Ctx) error {
	e := h.editor(c)
	if c.FormValue("token") != e.Token() {
		log.Security(c, "editor.stale_form", nil)
		return c.Redirect("/listings")
	}

	confirmed := c.FormValue("confirm") == "yes"
	if err := e.Delete(c.Context(), currentUser(c).ID, confirmed); err != nil {
		if errors.Is(err, services.ErrNotConfirmed) {
			return h.renderForm(c, e, "")
		}
		log.Error(c, "listing.delete.fail", err, nil)
		return h.renderForm(c, e, "削除に失敗しました。もう一度お試しください。")
	}
	log.Audit(c, "listing.delete", nil)
	return c.Redirect("/listings")
}

// Cancel discards in-progress edits unconditionally.
func (h *EditorHandler) Cancel(c *fiber.Ctx) error {
	h.editor(c).Close()
	return c.Redirect("/listings")
}
