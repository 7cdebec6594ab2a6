package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/hikarilabs/sited/internal/todo"
)

// CreateTodoRequest is the request body for POST /api/v1/todos.
type CreateTodoRequest struct {
	Title      string `json:"title"`
	Note       string `json:"note"`
	CategoryID string `json:"category_id"`
	DueOn      string `json:"due_on"` // YYYY-MM-DD
}

func (s *Server) handleCreateTodo(c echo.Context) error {
	var req CreateTodoRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid todo request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	due, err := parseDate(req.DueOn)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "due_on must be YYYY-MM-DD")
	}
	t := &todo.Todo{
		Title:      req.Title,
		Note:       req.Note,
		CategoryID: req.CategoryID,
		DueOn:      due,
	}
	if err := t.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := s.deps.Todos.Create(c.Request().Context(), t); err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (s *Server) handleGetTodo(c echo.Context) error {
	t, err := s.deps.Todos.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (s *Server) handleListTodos(c echo.Context) error {
	filter, err := parseListFilter(c)
	if err != nil {
		return err
	}
	todos, err := s.deps.Todos.List(c.Request().Context(), filter)
	if err != nil {
		return domainError(err)
	}
	if todos == nil {
		todos = []*todo.Todo{}
	}
	return c.JSON(http.StatusOK, todos)
}

func (s *Server) handleUpdateTodo(c echo.Context) error {
	ctx := c.Request().Context()
	t, err := s.deps.Todos.Get(ctx, c.Param("id"))
	if err != nil {
		return domainError(err)
	}
	var req CreateTodoRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	due, err := parseDate(req.DueOn)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "due_on must be YYYY-MM-DD")
	}
	t.Title = req.Title
	t.Note = req.Note
	t.CategoryID = req.CategoryID
	t.DueOn = due
	if err := t.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := s.deps.Todos.Update(ctx, t); err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, t)
}

// SetDoneRequest is the request body for POST /api/v1/todos/:id/done.
type SetDoneRequest struct {
	Done bool `json:"done"`
}

func (s *Server) handleSetTodoDone(c echo.Context) error {
	req := SetDoneRequest{Done: true}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	t, err := s.deps.Todos.SetDone(c.Request().Context(), c.Param("id"), req.Done)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (s *Server) handleDeleteTodo(c echo.Context) error {
	if err := s.deps.Todos.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return domainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// handleTodoStats computes completion stats over the filtered todos.
// Query params: days (default 30) and tz (IANA name, default UTC) shape
// the daily series. Responses are cached per query for a short TTL;
// the monitor TUI polls this endpoint on a tight interval.
func (s *Server) handleTodoStats(c echo.Context) error {
	key := c.Request().URL.RequestURI()
	if body, ok := s.statsCache.Get(key); ok {
		return c.JSONBlob(http.StatusOK, body)
	}

	filter, err := parseListFilter(c)
	if err != nil {
		return err
	}
	days := 30
	if v := c.QueryParam("days"); v != "" {
		days, err = strconv.Atoi(v)
		if err != nil || days < 1 || days > 366 {
			return echo.NewHTTPError(http.StatusBadRequest, "days must be in [1, 366]")
		}
	}
	loc := time.UTC
	if v := c.QueryParam("tz"); v != "" {
		loc, err = time.LoadLocation(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown tz")
		}
	}
	todos, err := s.deps.Todos.List(c.Request().Context(), filter)
	if err != nil {
		return domainError(err)
	}
	body, err := json.Marshal(todo.ComputeStats(todos, time.Now(), days, loc))
	if err != nil {
		return err
	}
	s.statsCache.Set(key, body)
	return c.JSONBlob(http.StatusOK, body)
}

func (s *Server) handleCreateCategory(c echo.Context) error {
	var cat todo.Category
	if err := c.Bind(&cat); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := cat.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := s.deps.Todos.CreateCategory(c.Request().Context(), &cat); err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusCreated, cat)
}

func (s *Server) handleListCategories(c echo.Context) error {
	cats, err := s.deps.Todos.ListCategories(c.Request().Context())
	if err != nil {
		return domainError(err)
	}
	if cats == nil {
		cats = []*todo.Category{}
	}
	return c.JSON(http.StatusOK, cats)
}

func (s *Server) handleRenameCategory(c echo.Context) error {
	var cat todo.Category
	if err := c.Bind(&cat); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := cat.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	id := c.Param("id")
	if err := s.deps.Todos.RenameCategory(ctx, id, cat.Name, cat.Color); err != nil {
		return domainError(err)
	}
	updated, err := s.deps.Todos.GetCategory(ctx, id)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (s *Server) handleDeleteCategory(c echo.Context) error {
	if err := s.deps.Todos.DeleteCategory(c.Request().Context(), c.Param("id")); err != nil {
		return domainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// parseListFilter reads from/to/category/done query params.
func parseListFilter(c echo.Context) (todo.ListFilter, error) {
	var filter todo.ListFilter
	var err error
	if v := c.QueryParam("from"); v != "" {
		if filter.From, err = parseDate(v); err != nil {
			return filter, echo.NewHTTPError(http.StatusBadRequest, "from must be YYYY-MM-DD")
		}
	}
	if v := c.QueryParam("to"); v != "" {
		if filter.To, err = parseDate(v); err != nil {
			return filter, echo.NewHTTPError(http.StatusBadRequest, "to must be YYYY-MM-DD")
		}
	}
	filter.CategoryID = c.QueryParam("category")
	if v := c.QueryParam("done"); v != "" {
		done, err := strconv.ParseBool(v)
		if err != nil {
			return filter, echo.NewHTTPError(http.StatusBadRequest, "done must be true or false")
		}
		filter.Done = &done
	}
	return filter, nil
}

func parseDate(v string) (time.Time, error) {
	return time.Parse("2006-01-02", v)
}
