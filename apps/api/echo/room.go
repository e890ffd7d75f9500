package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/cursohub/cursohub/core/room"
	"github.com/cursohub/cursohub/core/user"
)

type roomApi struct {
	deps ServerDeps
}

func registerRoomAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := roomApi{deps: deps}

	rg := g.Group("/rooms", jwt)
	rg.POST("", api.create, instructorMiddleware())
	rg.GET("", api.queryMine)
	rg.GET("/all", api.queryAll)
	rg.POST("/enroll", api.enroll)
	rg.GET("/:id", api.retrieve)
	rg.PUT("/:id", api.update)
	rg.DELETE("/:id", api.destroy)
	rg.POST("/:id/regenerate-code", api.regenerateCode)
	rg.GET("/:id/stats", api.stats)
	rg.POST("/:id/students", api.addStudent)
	rg.DELETE("/:id/students/:studentID", api.removeStudent)
	rg.POST("/:id/playlists", api.createPlaylist)
	rg.GET("/:id/playlists", api.queryPlaylists)
	rg.PUT("/:id/playlists/reorder", api.reorderPlaylists)

	pg := g.Group("/playlists", jwt)
	pg.PUT("/:id", api.updatePlaylist)
	pg.DELETE("/:id", api.destroyPlaylist)
	pg.POST("/:id/videos", api.addVideo)
	pg.GET("/:id/videos", api.queryVideos)
	pg.PUT("/:id/videos/reorder", api.reorderVideos)

	vg := g.Group("/videos", jwt)
	vg.GET("/search", api.searchVideos)
	vg.GET("/:id", api.retrieveVideo)
	vg.PUT("/:id", api.updateVideo)
	vg.DELETE("/:id", api.destroyVideo)
	vg.PUT("/:id/progress", api.recordProgress)
	vg.GET("/:id/progress", api.retrieveProgress)
}

func (api *roomApi) ctxUser(ctx echo.Context) (user.User, error) {
	usr, err := getContextUser(ctx, api.deps.UserSvc)
	return usr, errors.Wrap(err, "getting context user")
}

// Room handlers

func (api *roomApi) create(ctx echo.Context) error {
	actor, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}

	var data room.NewRoom
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRoom")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	rm, err := api.deps.RoomSvc.CreateRoom(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating room")
	}
	return ctx.JSON(http.StatusCreated, rm)
}

func (api *roomApi) queryMine(ctx echo.Context) error {
	actor, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}

	rooms, err := api.deps.RoomSvc.GetMyRooms(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "querying rooms")
	}
	if rooms == nil {
		rooms = []room.Room{}
	}
	return ctx.JSON(http.StatusOK, rooms)
}

func (api *roomApi) queryAll(ctx echo.Context) error {
	rooms, err := api.deps.RoomSvc.GetAllRooms(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying rooms")
	}
	if rooms == nil {
		rooms = []room.Room{}
	}
	return ctx.JSON(http.StatusOK, rooms)
}

func (api *roomApi) retrieve(ctx echo.Context) error {
	rm, err := api.deps.RoomSvc.GetRoom(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rm)
}

func (api *roomApi) update(ctx echo.Context) error {
	actor, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}

	var data room.UpdateRoom
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRoom")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	rm, err := api.deps.RoomSvc.UpdateRoom(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rm)
}

func (api *roomApi) destroy(ctx echo.Context) error {
	actor, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}

	if err := api.deps.RoomSvc.DeleteRoom(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *roomApi) regenerateCode(ctx echo.Context) error {
	actor, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}

	rm, err := api.deps.RoomSvc.RegenerateInviteCode(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rm)
}

func (api *roomApi) stats(ctx echo.Context) error {
	actor, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}

	stats, err := api.deps.RoomSvc.GetRoomStats(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, stats)
}

// Membership handlers

func (api *roomApi) enroll(ctx echo.Context) error {
	actor, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}

	var data EnrollRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	rm, err := api.deps.RoomSvc.EnrollByInviteCode(ctx.Request().Context(), actor, data.InviteCode)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rm)
}

func (api *roomApi) addStudent(ctx echo.Context) error {
	actor, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}

	var data AddStudentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AddStudentRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	if err := api.deps.RoomSvc.AddStudentToRoom(ctx.Request().Context(), actor, ctx.Param("id"), data.StudentID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *roomApi) removeStudent(ctx echo.Context) error {
	actor, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}

	err = api.deps.RoomSvc.RemoveStudentFromRoom(ctx.Request().Context(), actor, ctx.Param("id"), ctx.Param("studentID"))
	if err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Playlist handlers

func (api *roomApi) createPlaylist(ctx echo.Context) error {
	actor, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}

	var data room.NewPlaylist
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPlaylist")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	pl, err := api.deps.RoomSvc.CreatePlaylist(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, pl)
}

func (api *roomApi) queryPlaylists(ctx echo.Context) error {
	playlists, err := api.deps.RoomSvc.QueryPlaylists(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying playlists")
	}
	if playlists == nil {
		playlists = []room.Playlist{}
	}
	return ctx.JSON(http.StatusOK, playlists)
}

func (api *roomApi) reorderPlaylists(ctx echo.Context) error {
	actor, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}

	var data ReorderRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReorderRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	if err := api.deps.RoomSvc.ReorderPlaylists(ctx.Request().Context(), actor, ctx.Param("id"), data.IDs); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *roomApi) updatePlaylist(ctx echo.Context) error {
	actor, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}

	var data UpdatePlaylistRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePlaylistRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	pl, err := api.deps.RoomSvc.UpdatePlaylist(ctx.Request().Context(), actor, ctx.Param("id"), data.Name)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, pl)
}

func (api *roomApi) destroyPlaylist(ctx echo.Context) error {
	actor, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}

	if err := api.deps.RoomSvc.DeletePlaylist(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Video handlers

func (api *roomApi) addVideo(ctx echo.Context) error {
	actor, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}

	var data room.NewVideo
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewVideo")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	playlistID := ctx.Param("id")
	roomID, err := api.deps.RoomSvc.PlaylistRoomID(ctx.Request().Context(), playlistID)
	if err != nil {
		return err
	}

	vid, err := api.deps.RoomSvc.AddVideo(ctx.Request().Context(), actor, roomID, playlistID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, vid)
}

func (api *roomApi) queryVideos(ctx echo.Context) error {
	videos, err := api.deps.RoomSvc.QueryVideos(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying videos")
	}
	if videos == nil {
		videos = []room.Video{}
	}
	return ctx.JSON(http.StatusOK, videos)
}

func (api *roomApi) reorderVideos(ctx echo.Context) error {
	actor, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}

	var data ReorderRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReorderRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	if err := api.deps.RoomSvc.ReorderVideos(ctx.Request().Context(), actor, ctx.Param("id"), data.IDs); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *roomApi) searchVideos(ctx echo.Context) error {
	videos, err := api.deps.RoomSvc.SearchVideos(ctx.Request().Context(), ctx.QueryParam("q"), ctx.QueryParam("room_id"))
	if err != nil {
		return errors.Wrap(err, "searching videos")
	}
	if videos == nil {
		videos = []room.Video{}
	}
	return ctx.JSON(http.StatusOK, videos)
}

func (api *roomApi) retrieveVideo(ctx echo.Context) error {
	vid, err := api.deps.RoomSvc.GetVideo(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, vid)
}

func (api *roomApi) updateVideo(ctx echo.Context) error {
	actor, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}

	var data room.UpdateVideo
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateVideo")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	vid, err := api.deps.RoomSvc.UpdateVideo(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, vid)
}

func (api *roomApi) destroyVideo(ctx echo.Context) error {
	actor, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}

	if err := api.deps.RoomSvc.DeleteVideo(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Progress handlers

func (api *roomApi) recordProgress(ctx echo.Context) error {
	actor, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}

	var data ProgressRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ProgressRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	videoID := ctx.Param("id")
	roomID, playlistID, err := api.deps.RoomSvc.VideoRefs(ctx.Request().Context(), videoID)
	if err != nil {
		return err
	}

	wp, err := api.deps.UserSvc.RecordWatchProgress(ctx.Request().Context(), actor.ID, videoID, roomID, playlistID, data.Progress)
	if err != nil {
		return errors.Wrap(err, "recording watch progress")
	}
	return ctx.JSON(http.StatusOK, wp)
}

func (api *roomApi) retrieveProgress(ctx echo.Context) error {
	actor, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}

	wp, err := api.deps.UserSvc.VideoProgress(ctx.Request().Context(), actor.ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting watch progress")
	}
	return ctx.JSON(http.StatusOK, wp)
}
