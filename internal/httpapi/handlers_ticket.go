package httpapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/hikarilabs/sited/internal/ticket"
)

// IssueTicketRequest is the request body for POST /api/v1/tickets.
type IssueTicketRequest struct {
	Holder    string     `json:"holder"`
	TotalUses int        `json:"total_uses"`
	ExpiresAt *time.Time `json:"expires_at"`
}

func (s *Server) handleIssueTicket(c echo.Context) error {
	var req IssueTicketRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	t := &ticket.Ticket{
		Holder:    req.Holder,
		TotalUses: req.TotalUses,
		ExpiresAt: req.ExpiresAt,
	}
	if err := t.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := s.deps.Tickets.Issue(c.Request().Context(), t); err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (s *Server) handleGetTicket(c echo.Context) error {
	t, err := s.deps.Tickets.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (s *Server) handleListTickets(c echo.Context) error {
	ts, err := s.deps.Tickets.List(c.Request().Context())
	if err != nil {
		return domainError(err)
	}
	if ts == nil {
		ts = []*ticket.Ticket{}
	}
	return c.JSON(http.StatusOK, ts)
}

// RedeemRequest is the request body for POST /api/v1/tickets/:id/redeem.
type RedeemRequest struct {
	Note string `json:"note"`
}

func (s *Server) handleRedeemTicket(c echo.Context) error {
	var req RedeemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	t, err := s.deps.Tickets.Redeem(c.Request().Context(), c.Param("id"), req.Note)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (s *Server) handleTicketHistory(c echo.Context) error {
	uses, err := s.deps.Tickets.History(c.Request().Context(), c.Param("id"))
	if err != nil {
		return domainError(err)
	}
	if uses == nil {
		uses = []*ticket.Use{}
	}
	return c.JSON(http.StatusOK, uses)
}

func (s *Server) handleDeleteTicket(c echo.Context) error {
	if err := s.deps.Tickets.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return domainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// handleImportTickets bulk-issues tickets from an uploaded CSV. Rejected
// lines come back in the response, a partial import is not an error.
func (s *Server) handleImportTickets(c echo.Context) error {
	result, err := s.deps.Tickets.ImportCSV(c.Request().Context(), c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	s.logger.Info("ticket csv imported",
		zap.Int("imported", result.Imported),
		zap.Int("rejected", len(result.Errors)))
	return c.JSON(http.StatusOK, result)
}

// handleTicketsPDF streams a printable PDF of all tickets, one page per
// ticket with a QR code.
func (s *Server) handleTicketsPDF(c echo.Context) error {
	ts, err := s.deps.Tickets.List(c.Request().Context())
	if err != nil {
		return domainError(err)
	}
	// Reject before committing the header; RenderPDF errors on an
	// empty list and the 200 could not be taken back.
	if len(ts) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "no tickets to render")
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/pdf")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="tickets.pdf"`)
	c.Response().WriteHeader(http.StatusOK)
	return ticket.RenderPDF(c.Response(), ts)
}
