package server

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(s.requestLogger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/artifacts", s.ListArtifactsHandler)
	e.GET("/artifacts/:name", s.DownloadArtifactHandler)
	e.GET("/assets", s.ListAssetsHandler)
	e.GET("/assets/:id", s.AssetHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	return c.String(http.StatusOK, "health_check: OK")
}

func (s *Server) ListArtifactsHandler(c echo.Context) error {
	entries, err := os.ReadDir(s.artifactDir)
	if err != nil {
		return c.String(http.StatusInternalServerError, "artifact dir unavailable")
	}
	names := []string{}
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return c.JSON(http.StatusOK, names)
}

func (s *Server) DownloadArtifactHandler(c echo.Context) error {
	name := c.Param("name")
	// reject traversal attempts
	if name != filepath.Base(name) || name == "." || name == ".." {
		return c.String(http.StatusBadRequest, "invalid artifact name")
	}
	path := filepath.Join(s.artifactDir, name)
	if _, err := os.Stat(path); err != nil {
		return c.String(http.StatusNotFound, "artifact not found")
	}
	return c.File(path)
}

func (s *Server) ListAssetsHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, s.assets)
}

func (s *Server) AssetHandler(c echo.Context) error {
	view, ok := s.assetsByID[c.Param("id")]
	if !ok {
		return c.String(http.StatusNotFound, "asset not found")
	}
	return c.JSON(http.StatusOK, view)
}
