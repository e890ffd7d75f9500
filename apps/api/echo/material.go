package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/cursohub/cursohub/core/material"
)

type materialApi struct {
	deps ServerDeps
}

func registerMaterialAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := materialApi{deps: deps}

	mg := g.Group("/materials", jwt)
	mg.POST("", api.create)
	mg.POST("/upload", api.upload, instructorMiddleware())
	mg.DELETE("/:id", api.destroy)

	g.GET("/videos/:id/materials", api.queryByVideo, jwt)
	g.GET("/playlists/:id/materials", api.queryByPlaylist, jwt)
	g.GET("/rooms/:id/materials", api.queryByRoom, jwt)
}

func (api *materialApi) create(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data material.NewMaterial
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMaterial")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	mat, err := api.deps.MaterialSvc.Add(ctx.Request().Context(), actor, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, mat)
}

// upload stores the file first, then registers the material pointing at
// the stored location.
func (api *materialApi) upload(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		return errors.Wrap(err, "getting form file")
	}
	src, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening form file")
	}
	defer src.Close()

	url, err := api.deps.ObjStorage.Put(ctx.Request().Context(), fh.Filename, fh.Header.Get("Content-Type"), src)
	if err != nil {
		return errors.Wrap(err, "storing file")
	}

	data := material.NewMaterial{
		Name:       fh.Filename,
		URL:        url,
		Size:       fh.Size,
		VideoID:    ctx.FormValue("video_id"),
		PlaylistID: ctx.FormValue("playlist_id"),
		RoomID:     ctx.FormValue("room_id"),
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		if rmErr := api.deps.ObjStorage.Remove(ctx.Request().Context(), url); rmErr != nil {
			ctx.Logger().Errorf("%+v", errors.Wrap(rmErr, "removing orphaned file"))
		}
		return err
	}

	mat, err := api.deps.MaterialSvc.Add(ctx.Request().Context(), actor, data)
	if err != nil {
		if rmErr := api.deps.ObjStorage.Remove(ctx.Request().Context(), url); rmErr != nil {
			ctx.Logger().Errorf("%+v", errors.Wrap(rmErr, "removing orphaned file"))
		}
		return err
	}
	return ctx.JSON(http.StatusCreated, mat)
}

func (api *materialApi) queryByVideo(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	materials, err := api.deps.MaterialSvc.ListByVideo(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	if materials == nil {
		materials = []material.Material{}
	}
	return ctx.JSON(http.StatusOK, materials)
}

func (api *materialApi) queryByPlaylist(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	materials, err := api.deps.MaterialSvc.ListByPlaylist(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	if materials == nil {
		materials = []material.Material{}
	}
	return ctx.JSON(http.StatusOK, materials)
}

func (api *materialApi) queryByRoom(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	materials, err := api.deps.MaterialSvc.ListByRoom(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	if materials == nil {
		materials = []material.Material{}
	}
	return ctx.JSON(http.StatusOK, materials)
}

func (api *materialApi) destroy(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.deps.MaterialSvc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
