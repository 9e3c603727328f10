package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/deicod/querystudy/orm/gen"
)

type handlers struct {
	deps Deps
}

func (h *handlers) hello(c echo.Context) error {
	return c.String(http.StatusOK, "hello")
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Error    string `json:"error,omitempty"`
}

func (h *handlers) health(c echo.Context) error {
	resp := healthResponse{Status: "healthy", Database: "skipped"}
	if h.deps.Health == nil {
		return c.JSON(http.StatusOK, resp)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.deps.Health.Ping(ctx); err != nil {
		zerolog.Ctx(c.Request().Context()).Error().Err(err).Msg("database health check failed")
		resp.Status, resp.Database, resp.Error = "unhealthy", "unhealthy", err.Error()
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	resp.Database = "healthy"
	return c.JSON(http.StatusOK, resp)
}

func (h *handlers) searchMembers(c echo.Context) error {
	var (
		cond           gen.MemberSearchCondition
		ageGoe, ageLoe int
	)
	err := echo.QueryParamsBinder(c).
		String("username", &cond.Username).
		String("teamName", &cond.TeamName).
		Int("ageGoe", &ageGoe).
		Int("ageLoe", &ageLoe).
		BindError()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if c.QueryParam("ageGoe") != "" {
		cond.AgeGoe = &ageGoe
	}
	if c.QueryParam("ageLoe") != "" {
		cond.AgeLoe = &ageLoe
	}
	if err := c.Validate(&cond); err != nil {
		return err
	}
	if h.deps.Executor == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "database is not configured")
	}

	client := gen.NewClient(h.deps.Executor, h.deps.ClientOptions...)
	members, err := client.Members().Search(c.Request().Context(), cond)
	if err != nil {
		return err
	}
	if members == nil {
		members = []gen.MemberTeamDto{}
	}
	return c.JSON(http.StatusOK, members)
}
