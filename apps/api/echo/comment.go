package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/cursohub/cursohub/core/comment"
)

type commentApi struct {
	deps ServerDeps
}

func registerCommentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := commentApi{deps: deps}

	vg := g.Group("/videos", jwt)
	vg.POST("/:id/comments", api.create)
	vg.GET("/:id/comments", api.queryByVideo)

	cg := g.Group("/comments", jwt)
	cg.POST("/:id/resolve", api.resolve)
	cg.DELETE("/:id", api.destroy)
}

func (api *commentApi) create(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data comment.NewComment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewComment")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	cmt, err := api.deps.CommentSvc.Add(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, cmt)
}

func (api *commentApi) queryByVideo(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	comments, err := api.deps.CommentSvc.ListByVideo(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	if comments == nil {
		comments = []comment.Comment{}
	}
	return ctx.JSON(http.StatusOK, comments)
}

func (api *commentApi) resolve(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	cmt, err := api.deps.CommentSvc.MarkResolved(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cmt)
}

func (api *commentApi) destroy(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.deps.CommentSvc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
