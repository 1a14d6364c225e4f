package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/labstack/echo/v4"

	echoapi "github.com/Bebdyshev/usp-backend/apps/api/echo"
	"github.com/Bebdyshev/usp-backend/apps/shared"
	"github.com/Bebdyshev/usp-backend/core"
	"github.com/Bebdyshev/usp-backend/core/analytics"
	"github.com/Bebdyshev/usp-backend/core/score"
	"github.com/Bebdyshev/usp-backend/core/settings"
	"github.com/Bebdyshev/usp-backend/core/user"
	appfs "github.com/Bebdyshev/usp-backend/fs"
	emailsvc "github.com/Bebdyshev/usp-backend/services/email"
	inmemdb "github.com/Bebdyshev/usp-backend/storage/database/inmem"
	testutil "github.com/Bebdyshev/usp-backend/tests"
)

const password = "Pa$$w0rd-2024"

var gradebookHeader = []interface{}{"ФИО", "Мониторинг, %", "Q1, %", "Q2, %", "Q3, %", "Q4, %", "Учитель, %"}

type testApp struct {
	server   *echoapi.Server
	conf     *core.Config
	userRepo user.Repository
	userSvc  *user.Service
	scoreSvc *score.Service

	admin   user.User
	curator user.User
	teacher user.User
	grade   score.Grade
	subject score.Subject
}

// setup wires the API to in-memory repositories with an admin, a curator assigned to grade 10A and
// an unassigned teacher.
func setup(t *testing.T) testApp {
	t.Helper()
	ctx := context.Background()

	conf := core.NewTestConfig()
	conf.Debug = false
	logger := testutil.NewLogger(t, conf)
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf, logger)

	validate, translator := shared.NewValidator()

	db := inmemdb.Open()
	tx := inmemdb.NewTxRunner(db)
	policies, err := score.PoliciesFromConfig(conf)
	if err != nil {
		t.Fatalf("PoliciesFromConfig() error = %v", err)
	}

	app := testApp{conf: conf, userRepo: inmemdb.NewUserRepository(db)}
	app.userSvc = user.NewService(app.userRepo)
	settingsSvc := settings.NewService(tx, inmemdb.NewSettingsRepository(db), conf)
	app.scoreSvc = score.NewService(
		conf,
		tx,
		inmemdb.NewScoreRepository(db),
		settingsSvc,
		app.userSvc,
		emailsvc.NewConsoleServiceMock(conf, logger),
		logger,
		policies,
	)

	app.server = echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Logger:         logger,
		UserSvc:        app.userSvc,
		ScoreSvc:       app.scoreSvc,
		SettingsSvc:    settingsSvc,
		AnalyticsSvc:   analytics.NewService(inmemdb.NewAnalyticsRepository(db)),
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})

	app.admin = testutil.CreateUser(t, app.userRepo, "Admin", "admin@school.kz", password, []string{user.RoleAdmin}, true)
	app.curator = testutil.CreateUser(t, app.userRepo, "Aliya Nurlanovna", "aliya@school.kz", password, []string{user.RoleCurator}, true)
	app.teacher = testutil.CreateUser(t, app.userRepo, "Marat Serikovich", "marat@school.kz", password, []string{user.RoleTeacher}, true)

	if app.grade, err = app.scoreSvc.CreateGrade(ctx, score.NewGrade{Name: "10A", CuratorName: app.curator.Name, CuratorID: &app.curator.ID}); err != nil {
		t.Fatalf("CreateGrade() error = %v", err)
	}
	if app.subject, err = app.scoreSvc.CreateSubject(ctx, score.NewSubject{Name: "Math"}); err != nil {
		t.Fatalf("CreateSubject() error = %v", err)
	}
	if err = app.userSvc.Assign(ctx, app.curator.ID, user.NewAssignment{GradeID: app.grade.ID}); err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	return app
}

func (app testApp) token(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := echoapi.GenerateToken(app.conf, echoapi.GetUserClaims(app.conf, usr))
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	return token
}

func (app testApp) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)
	return rec
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
	wantData []byte // nil skips the body check
}

func newAuthRequest(method, path, token string, data ...[]byte) *http.Request {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	return req
}

// newUploadRequest builds a multipart form with the given fields and, when file is not nil, a
// "file" part.
func newUploadRequest(t *testing.T, path, token string, fields map[string]string, file []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField() error = %v", err)
		}
	}
	if file != nil {
		part, err := w.CreateFormFile("file", "grades.xlsx")
		if err != nil {
			t.Fatalf("CreateFormFile() error = %v", err)
		}
		if _, err = part.Write(file); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	return req
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("json.Unmarshal(%s) error = %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v (body %s)", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app testApp, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.serve(newAuthRequest(tt.method, tt.path, tt.token, tt.body))
			checkCodeAndData(t, tt, rec)
		})
	}
}
