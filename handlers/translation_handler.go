package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"medpipe_backend/models"
)

type Translation interface {
	TranslateFields(ctx context.Context, fields map[string]any, lang string) (map[string]any, error)
	DetectLanguage(ctx context.Context, text string) (string, error)
}

type TranslationHandler struct {
	bridge Translation
}

func NewTranslationHandler(bridge Translation) *TranslationHandler {
	return &TranslationHandler{bridge: bridge}
}

func (h *TranslationHandler) Translate(c *fiber.Ctx) error {
	var req models.TranslationReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
	}
	if req.Lang == "" {
		return c.Status(400).JSON(fiber.Map{"error": "lang is required"})
	}
	out, err := h.bridge.TranslateFields(c.UserContext(), req.Fields, req.Lang)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"lang": req.Lang, "fields": out})
}

func (h *TranslationHandler) Detect(c *fiber.Ctx) error {
	var req models.DetectReq
	if err := c.BodyParser(&req); err != nil || req.Text == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
	}
	lang, err := h.bridge.DetectLanguage(c.UserContext(), req.Text)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"lang": lang})
}
