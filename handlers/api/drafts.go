package api

import (
	"strconv"

	"draftsync/drafts"
	"draftsync/middleware"
	"draftsync/utils"

	"github.com/gofiber/fiber/v2"
)

// DraftHandler exposes the draft operations of the authenticated user
type DraftHandler struct {
	service *drafts.Service
}

// NewDraftHandler creates a new draft handler
func NewDraftHandler(service *drafts.Service) *DraftHandler {
	return &DraftHandler{service: service}
}

// FetchDrafts lists the user's drafts, oldest edit first
func (h *DraftHandler) FetchDrafts(c *fiber.Ctx) error {
	list, err := h.service.ListDrafts(middleware.CurrentUser(c))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"count":   list.Count,
		"drafts":  list.Drafts,
	})
}

// CreateDrafts stores a batch of drafts and returns their ids in request order
func (h *DraftHandler) CreateDrafts(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	// The sync check comes before argument parsing so a disabled user
	// always gets the same answer.
	if err := drafts.RequireSyncEnabled(user); err != nil {
		return err
	}

	raw, err := requestArgument(c, "drafts")
	if err != nil {
		return err
	}
	payloads, err := drafts.DecodeDrafts(raw)
	if err != nil {
		return err
	}

	ids, err := h.service.CreateDrafts(user, payloads)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"ids":     ids,
	})
}

// EditDraft replaces one draft
func (h *DraftHandler) EditDraft(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if err := drafts.RequireSyncEnabled(user); err != nil {
		return err
	}

	draftID, err := draftIDParam(c)
	if err != nil {
		return err
	}

	raw, err := requestArgument(c, "draft")
	if err != nil {
		return err
	}
	payload, err := drafts.DecodeDraft(raw)
	if err != nil {
		return err
	}

	if err := h.service.EditDraft(user, draftID, payload); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// DeleteDraft removes one draft
func (h *DraftHandler) DeleteDraft(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if err := drafts.RequireSyncEnabled(user); err != nil {
		return err
	}

	draftID, err := draftIDParam(c)
	if err != nil {
		return err
	}

	if err := h.service.DeleteDraft(user, draftID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

func draftIDParam(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, utils.NotFoundError("Draft does not exist", nil).WithMessageID("draft_not_found", nil)
	}
	return id, nil
}
