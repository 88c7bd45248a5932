package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"medpipe_backend/models"
	"medpipe_backend/pkg/logging"
)

type PatientSummaryRequester interface {
	RequestPatientSummary(ctx context.Context, patientID string, regenerate bool) (*models.SummaryStatus, error)
}

type PatientStateWriter interface {
	SetPatientState(ctx context.Context, patientID, state string) error
}

type DonationSetter interface {
	SetDonation(ctx context.Context, patientID string, donation bool) (*models.DonationResp, error)
}

type PatientHandler struct {
	summaries PatientSummaryRequester
	states    PatientStateWriter
	donations DonationSetter
}

func NewPatientHandler(summaries PatientSummaryRequester, states PatientStateWriter, donations DonationSetter) *PatientHandler {
	return &PatientHandler{summaries: summaries, states: states, donations: donations}
}

func (h *PatientHandler) Summary(c *fiber.Ctx) error {
	patientID := c.Params("patient_id")
	regenerate := c.QueryBool("regenerate", false)
	res, err := h.summaries.RequestPatientSummary(c.UserContext(), patientID, regenerate)
	if errors.Is(err, models.ErrNoPatientData) {
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"message": "The patient does not have any information"})
	}
	if err != nil {
		logging.Logger.Error("fail RequestPatientSummary", "error", err, "patientID", patientID)
		return fail(c, err)
	}
	return c.JSON(res)
}

func (h *PatientHandler) SetSummaryState(c *fiber.Ctx) error {
	var req models.SetStateReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
	}
	patientID := c.Params("patient_id")
	if err := h.states.SetPatientState(c.UserContext(), patientID, req.State); err != nil {
		logging.Logger.Error("fail SetPatientState", "error", err, "patientID", patientID)
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "State updated", "summary": req.State})
}

func (h *PatientHandler) Donation(c *fiber.Ctx) error {
	var req models.DonationReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
	}
	patientID := c.Params("patient_id")
	res, err := h.donations.SetDonation(c.UserContext(), patientID, req.Donation)
	if err != nil {
		logging.Logger.Error("fail SetDonation", "error", err, "patientID", patientID)
		return fail(c, err)
	}
	return c.JSON(res)
}
