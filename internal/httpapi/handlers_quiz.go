package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hikarilabs/sited/internal/quiz"
)

func (s *Server) handleCreateQuestion(c echo.Context) error {
	var q quiz.Question
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := q.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := s.deps.Quiz.CreateQuestion(c.Request().Context(), &q); err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusCreated, q)
}

func (s *Server) handleGetQuestion(c echo.Context) error {
	q, err := s.deps.Quiz.GetQuestion(c.Request().Context(), c.Param("id"))
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, q)
}

func (s *Server) handleListQuestions(c echo.Context) error {
	qs, err := s.deps.Quiz.ListQuestions(c.Request().Context())
	if err != nil {
		return domainError(err)
	}
	if qs == nil {
		qs = []*quiz.Question{}
	}
	return c.JSON(http.StatusOK, qs)
}

func (s *Server) handleUpdateQuestion(c echo.Context) error {
	var q quiz.Question
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	q.ID = c.Param("id")
	if err := q.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := s.deps.Quiz.UpdateQuestion(c.Request().Context(), &q); err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, q)
}

func (s *Server) handleDeleteQuestion(c echo.Context) error {
	if err := s.deps.Quiz.DeleteQuestion(c.Request().Context(), c.Param("id")); err != nil {
		return domainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// handleQuizDue returns the review queue for a user. Query params: user
// (required) and limit (default 20).
func (s *Server) handleQuizDue(c echo.Context) error {
	userID := c.QueryParam("user")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user query param is required")
	}
	limit := 20
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 200 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be in [1, 200]")
		}
		limit = n
	}
	due, err := s.deps.Quiz.Due(c.Request().Context(), userID, time.Now(), limit)
	if err != nil {
		return domainError(err)
	}
	if due == nil {
		due = []*quiz.DueQuestion{}
	}
	return c.JSON(http.StatusOK, due)
}

// ReviewRequest is the request body for POST /api/v1/quiz/review.
type ReviewRequest struct {
	UserID     string `json:"user_id"`
	QuestionID string `json:"question_id"`
	Understood bool   `json:"understood"`
}

func (s *Server) handleQuizReview(c echo.Context) error {
	var req ReviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserID == "" || req.QuestionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id and question_id are required")
	}
	prog, err := s.deps.Quiz.Review(c.Request().Context(), req.UserID, req.QuestionID, req.Understood)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, prog)
}

func (s *Server) handleQuizStats(c echo.Context) error {
	userID := c.QueryParam("user")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user query param is required")
	}
	key := c.Request().URL.RequestURI()
	if body, ok := s.statsCache.Get(key); ok {
		return c.JSONBlob(http.StatusOK, body)
	}
	stats, err := s.deps.Quiz.Stats(c.Request().Context(), userID)
	if err != nil {
		return domainError(err)
	}
	body, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	s.statsCache.Set(key, body)
	return c.JSONBlob(http.StatusOK, body)
}
