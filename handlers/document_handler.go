package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"medpipe_backend/models"
	"medpipe_backend/pkg/logging"
)

type DocumentPipeline interface {
	AnalyzeDocument(ctx context.Context, req models.AnalyzeReq) (*models.AnalyzeResp, error)
	RequestAnonymization(ctx context.Context, docID string) (string, error)
	RequestSymptoms(ctx context.Context, docID string) (*models.AnalyzeResp, error)
	TimelineAndTranscript(ctx context.Context, docID string) (*models.TimelineResp, error)
	GetDocumentState(ctx context.Context, docID string) (*models.StateResp, error)
}

type DocumentRemover interface {
	DeleteDocument(ctx context.Context, docID string) (*models.DeleteDocumentResp, error)
}

type DocumentStateWriter interface {
	SetDocumentState(ctx context.Context, docID, state string) error
}

type DocHandler struct {
	docService DocumentPipeline
	remover    DocumentRemover
	states     DocumentStateWriter
}

func NewDocHandler(docService DocumentPipeline, remover DocumentRemover, states DocumentStateWriter) *DocHandler {
	return &DocHandler{docService: docService, remover: remover, states: states}
}

func (h *DocHandler) Analyze(c *fiber.Ctx) error {
	var req models.AnalyzeReq
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
		}
	}
	req.DocID = c.Params("doc_id")
	if req.DocID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "doc_id is required"})
	}
	res, err := h.docService.AnalyzeDocument(c.UserContext(), req)
	if err != nil {
		logging.Logger.Error("fail AnalyzeDocument", "error", err, "docID", req.DocID)
		return fail(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(res)
}

func (h *DocHandler) Anonymize(c *fiber.Ctx) error {
	docID := c.Params("doc_id")
	state, err := h.docService.RequestAnonymization(c.UserContext(), docID)
	if err != nil {
		logging.Logger.Error("fail RequestAnonymization", "error", err, "docID", docID)
		return fail(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(models.StateResp{DocID: docID, Anonymized: state})
}

func (h *DocHandler) Symptoms(c *fiber.Ctx) error {
	docID := c.Params("doc_id")
	res, err := h.docService.RequestSymptoms(c.UserContext(), docID)
	if err != nil {
		logging.Logger.Error("fail RequestSymptoms", "error", err, "docID", docID)
		return fail(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(res)
}

// Timeline waits for both the timeline and the transcript before answering.
func (h *DocHandler) Timeline(c *fiber.Ctx) error {
	docID := c.Params("doc_id")
	res, err := h.docService.TimelineAndTranscript(c.UserContext(), docID)
	if err != nil {
		logging.Logger.Error("fail TimelineAndTranscript", "error", err, "docID", docID)
		return fail(c, err)
	}
	return c.JSON(res)
}

func (h *DocHandler) State(c *fiber.Ctx) error {
	res, err := h.docService.GetDocumentState(c.UserContext(), c.Params("doc_id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(res)
}

// SetState overwrites the anonymization state, e.g. to reset a stuck run.
func (h *DocHandler) SetState(c *fiber.Ctx) error {
	var req models.SetStateReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
	}
	docID := c.Params("doc_id")
	if err := h.states.SetDocumentState(c.UserContext(), docID, req.State); err != nil {
		logging.Logger.Error("fail SetDocumentState", "error", err, "docID", docID)
		return fail(c, err)
	}
	return c.JSON(models.StateResp{DocID: docID, Anonymized: req.State})
}

func (h *DocHandler) Delete(c *fiber.Ctx) error {
	docID := c.Params("doc_id")
	res, err := h.remover.DeleteDocument(c.UserContext(), docID)
	if err != nil {
		logging.Logger.Error("fail DeleteDocument", "error", err, "docID", docID)
		return fail(c, err)
	}
	return c.JSON(res)
}
