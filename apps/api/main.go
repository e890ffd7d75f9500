package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/cursohub/cursohub/apps/api/echo"
	"github.com/cursohub/cursohub/core"
	"github.com/cursohub/cursohub/core/comment"
	"github.com/cursohub/cursohub/core/material"
	"github.com/cursohub/cursohub/core/notification"
	"github.com/cursohub/cursohub/core/room"
	"github.com/cursohub/cursohub/core/user"
	emailsvc "github.com/cursohub/cursohub/services/email"
	logsvc "github.com/cursohub/cursohub/services/logger"
	"github.com/cursohub/cursohub/services/objstore"
	"github.com/cursohub/cursohub/storage/database"
	inmemdb "github.com/cursohub/cursohub/storage/database/inmem"
	sqlxrepos "github.com/cursohub/cursohub/storage/database/sqlx"
	"github.com/cursohub/cursohub/storage/kv"
)

type repositories struct {
	user         user.Repository
	room         room.Repository
	comment      comment.Repository
	material     material.Repository
	notification notification.Repository

	close func() error
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up storage
	repos, err := setUpRepositories(conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}
	defer func() {
		if err := repos.close(); err != nil {
			logger.Error("failed to close storage", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	objStorage, err := objstore.NewLocalStorage(conf.WorkDir)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up object storage: %v", err), err)
	}

	notifSvc := notification.NewService(repos.notification)
	usrSvc := user.NewService(repos.user, notifSvc, mailSvc, conf)
	roomSvc := room.NewService(repos.room, usrSvc, notifSvc, repos.comment, repos.material)
	commentSvc := comment.NewService(repos.comment, roomSvc, notifSvc)
	materialSvc := material.NewService(repos.material, roomSvc, objStorage)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	user.LoadCommonPasswords(logger, conf.WorkDir)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:        conf,
			Logger:      logger,
			UserSvc:     usrSvc,
			RoomSvc:     roomSvc,
			CommentSvc:  commentSvc,
			MaterialSvc: materialSvc,
			NotifSvc:    notifSvc,
			ObjStorage:  objStorage,
			Validate:    validate,
			Translator:  translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err := server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpRepositories(conf *core.Config, logger core.Logger) (*repositories, error) {
	if conf.Database.Engine == "inmem" {
		return setUpInmem(conf, logger)
	}
	return setUpPostgres(conf)
}

func setUpPostgres(conf *core.Config) (*repositories, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Migrate(db); err != nil {
		return nil, err
	}

	xdb := sqlx.NewDb(db, "postgres")
	return &repositories{
		user:         sqlxrepos.NewUserRepository(xdb),
		room:         sqlxrepos.NewRoomRepository(xdb),
		comment:      sqlxrepos.NewCommentRepository(xdb),
		material:     sqlxrepos.NewMaterialRepository(xdb),
		notification: sqlxrepos.NewNotificationRepository(xdb),
		close:        xdb.Close,
	}, nil
}

// setUpInmem keeps all data in memory and persists snapshots to the
// configured key-value store across restarts.
func setUpInmem(conf *core.Config, logger core.Logger) (*repositories, error) {
	ctx := context.Background()

	var store kv.Store
	if conf.Redis.Address != "" {
		rstore, err := kv.NewRedisStore(ctx, conf)
		if err != nil {
			return nil, err
		}
		store = rstore
	} else {
		store = kv.NewNoopStore()
	}

	db := inmemdb.NewDB()
	if err := db.Restore(ctx, store); err != nil {
		return nil, err
	}

	return &repositories{
		user:         inmemdb.NewUserRepository(db),
		room:         inmemdb.NewRoomRepository(db),
		comment:      inmemdb.NewCommentRepository(db),
		material:     inmemdb.NewMaterialRepository(db),
		notification: inmemdb.NewNotificationRepository(db),
		close: func() error {
			logger.Info("snapshotting in-memory database")
			return db.Snapshot(context.Background(), store)
		},
	}, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
