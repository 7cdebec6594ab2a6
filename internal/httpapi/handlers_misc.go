package httpapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hikarilabs/sited/internal/big3"
	"github.com/hikarilabs/sited/internal/images"
)

func (s *Server) handleBig3Level(c echo.Context) error {
	var in big3.Input
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	result, err := big3.Calculate(in)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleDexSpecies(c echo.Context) error {
	sp, err := s.deps.Dex.Species(c.Request().Context(), c.Param("idOrName"))
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, sp)
}

func (s *Server) handleDexList(c echo.Context) error {
	offset := 0
	limit := 20
	var err error
	if v := c.QueryParam("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "offset must be an integer")
		}
	}
	if v := c.QueryParam("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
		}
	}
	page, err := s.deps.Dex.List(c.Request().Context(), offset, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, page)
}

// handleUploadImage accepts multipart form uploads (field "file") or a
// raw body with a name query param.
func (s *Server) handleUploadImage(c echo.Context) error {
	ctx := c.Request().Context()

	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unreadable upload")
		}
		defer f.Close()
		img, err := s.deps.Images.Save(ctx, fh.Filename, f)
		if err != nil {
			return domainError(err)
		}
		return c.JSON(http.StatusCreated, img)
	}

	name := c.QueryParam("name")
	if name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, `provide a multipart "file" field or a name query param with a raw body`)
	}
	img, err := s.deps.Images.Save(ctx, name, c.Request().Body)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusCreated, img)
}

func (s *Server) handleListImages(c echo.Context) error {
	imgs, err := s.deps.Images.List(c.Request().Context())
	if err != nil {
		return domainError(err)
	}
	if imgs == nil {
		imgs = []*images.Image{}
	}
	return c.JSON(http.StatusOK, imgs)
}

func (s *Server) handleServeImage(c echo.Context) error {
	rc, img, err := s.deps.Images.Open(c.Request().Context(), c.Param("id"))
	if err != nil {
		return domainError(err)
	}
	defer rc.Close()
	return c.Stream(http.StatusOK, img.MIME, rc)
}

func (s *Server) handleDeleteImage(c echo.Context) error {
	if err := s.deps.Images.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return domainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
