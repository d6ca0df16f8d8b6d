package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/docuflow/invoice-verifier/internal/invoice"
)

// handleReview returns the full session snapshot: record, status, gate
// flags, audit log, and the computed export gate.
func (s *Server) handleReview(c *fiber.Ctx) error {
	return c.JSON(s.session.Snapshot())
}

type editFieldRequest struct {
	Field string `json:"field"` // e.g. "total_amount" or "items[2].quantity"
	Value string `json:"value"`
}

// handleEditField applies one field edit through the state machine. Equal
// values are acknowledged but change nothing.
func (s *Server) handleEditField(c *fiber.Ctx) error {
	var req editFieldRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	ref, err := invoice.ParseFieldRef(req.Field)
	if err != nil {
		return badRequest(c, err.Error())
	}
	changed, err := s.session.UpdateField(ref, req.Value)
	if err != nil {
		return badRequest(c, err.Error())
	}

	snap := s.session.Snapshot()
	return c.JSON(fiber.Map{
		"changed":    changed,
		"status":     snap.Status,
		"audit_len":  len(snap.Audit),
		"exportable": snap.Exportable,
	})
}

type confirmRequest struct {
	Confirmed bool `json:"confirmed"`
}

func (s *Server) handleConfirm(c *fiber.Ctx) error {
	var req confirmRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	s.session.SetConfirmed(req.Confirmed)

	snap := s.session.Snapshot()
	return c.JSON(fiber.Map{"status": snap.Status, "exportable": snap.Exportable})
}

type acknowledgeRequest struct {
	Reviewed bool `json:"reviewed"`
}

func (s *Server) handleAcknowledge(c *fiber.Ctx) error {
	var req acknowledgeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	s.session.SetLowConfidenceReviewed(req.Reviewed)

	snap := s.session.Snapshot()
	return c.JSON(fiber.Map{"status": snap.Status, "exportable": snap.Exportable})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":      msg,
		"error_code": "INVALID_FIELD",
	})
}
