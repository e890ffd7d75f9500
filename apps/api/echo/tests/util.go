package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/cursohub/cursohub/apps/api/echo"
	"github.com/cursohub/cursohub/core"
	"github.com/cursohub/cursohub/core/comment"
	"github.com/cursohub/cursohub/core/material"
	"github.com/cursohub/cursohub/core/notification"
	"github.com/cursohub/cursohub/core/room"
	"github.com/cursohub/cursohub/core/user"
	dummymail "github.com/cursohub/cursohub/services/email/dummy"
	logsvc "github.com/cursohub/cursohub/services/logger"
	"github.com/cursohub/cursohub/services/objstore"
	inmemdb "github.com/cursohub/cursohub/storage/database/inmem"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testEnv struct {
	app Server

	usrSvc      user.Service
	roomSvc     room.Service
	commentSvc  comment.Service
	materialSvc material.Service
	notifSvc    notification.Service
	mailSvc     *dummymail.Service
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	conf := &core.Config{
		TestMode:  true,
		AppName:   "CursoHub",
		SecretKey: "secret",
		WorkDir:   t.TempDir(),
	}
	conf.PasswordResetTimeoutDelta = 1 * time.Hour
	conf.Server.JWTExpirationDelta = 10 * time.Minute
	conf.Server.JWTRefreshExpirationDelta = 4 * time.Hour

	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags), conf)

	db := inmemdb.NewDB()
	notifSvc := notification.NewService(inmemdb.NewNotificationRepository(db))
	mailSvc := dummymail.NewService()
	usrSvc := user.NewServiceMock(inmemdb.NewUserRepository(db), notifSvc, mailSvc, conf)
	commentRepo := inmemdb.NewCommentRepository(db)
	materialRepo := inmemdb.NewMaterialRepository(db)
	roomSvc := room.NewService(inmemdb.NewRoomRepository(db), usrSvc, notifSvc, commentRepo, materialRepo)
	commentSvc := comment.NewService(commentRepo, roomSvc, notifSvc)

	objStorage, err := objstore.NewLocalStorage(conf.WorkDir)
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}
	materialSvc := material.NewService(materialRepo, roomSvc, objStorage)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	app := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		UserSvc:        usrSvc,
		RoomSvc:        roomSvc,
		CommentSvc:     commentSvc,
		MaterialSvc:    materialSvc,
		NotifSvc:       notifSvc,
		ObjStorage:     objStorage,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})

	return &testEnv{
		app:         app,
		usrSvc:      usrSvc,
		roomSvc:     roomSvc,
		commentSvc:  commentSvc,
		materialSvc: materialSvc,
		notifSvc:    notifSvc,
		mailSvc:     mailSvc,
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func (env *testEnv) register(t *testing.T, name, email, role string) user.User {
	t.Helper()
	usr, err := env.usrSvc.Register(context.Background(), user.NewUser{
		Name:            name,
		Email:           email,
		Password:        "LeSecret!123",
		PasswordConfirm: "LeSecret!123",
		Role:            role,
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return usr
}

func (env *testEnv) createRoom(t *testing.T, owner user.User, name string) room.Room {
	t.Helper()
	rm, err := env.roomSvc.CreateRoom(context.Background(), owner, room.NewRoom{Name: name})
	if err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}
	return rm
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

// nolint
func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil { // dynamic payload; caller checks it
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
