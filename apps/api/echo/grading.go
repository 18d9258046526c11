package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core/grading"
)

type gradingApi struct {
	svc *grading.Service
}

func registerGradingAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *grading.Service) {
	api := gradingApi{svc: svc}

	gg := g.Group("/grading", jwt, teacherMiddleware())

	gg.POST("/runs", api.run)
	gg.GET("/assignments/:id/stats", api.stats)
	gg.GET("/assignments/:id/grades", api.grades)
}

// Handlers

func (api *gradingApi) run(ctx echo.Context) error {
	var data grading.BulkGradeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkGradeRequest")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	data.Requester = claims.Email

	res, err := api.svc.Run(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "running bulk grading")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *gradingApi) stats(ctx echo.Context) error {
	id, err := assignmentID(ctx)
	if err != nil {
		return err
	}

	stats, err := api.svc.Stats(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting assignment stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *gradingApi) grades(ctx echo.Context) error {
	id, err := assignmentID(ctx)
	if err != nil {
		return err
	}

	grades, err := api.svc.AssignmentGrades(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying assignment grades")
	}
	if grades == nil {
		grades = []grading.Grade{}
	}
	return ctx.JSON(http.StatusOK, grades)
}

func assignmentID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return 0, errHttpNotFound
	}
	return id, nil
}
