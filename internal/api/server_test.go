package api

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	stderrors "errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"growth-analyzer/internal/analyzer"
	"growth-analyzer/internal/models"
	"growth-analyzer/internal/publisher"
	"growth-analyzer/internal/reporter"
	"growth-analyzer/internal/session"
	"growth-analyzer/pkg/errors"
)

const goldOld = "BRANCH NAME,CANVASSER ID,SCHEME NAME,PRINCIPAL OS\nA,S1,GOLD,1000\nB,S2,GOLD,400\n"
const goldNew = "BRANCH NAME,CANVASSER ID,SCHEME NAME,PRINCIPAL OS\nA,S1,GOLD,1500\nB,S2,GOLD,300\n"

const maturityExtract = "BRANCH NAME,CUSTOMER ID,SCHEME NAME,SANCTIONED DATE,MATURITY DATE,TENURE OF THE LOAN\n" +
	"A,C1,BUSINESS GOLD NEW-12,01-01-2023,01-01-2024,100\n" +
	"B,C2,GOLD REGULAR,01-03-2024,,30\n"

type fakePublisher struct {
	tab      string
	rows     int
	password string
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, table *models.Table, tab, password string) (*publisher.Event, error) {
	f.tab, f.rows, f.password = tab, table.Len(), password
	if f.err != nil {
		return nil, f.err
	}
	if password != "s3cret" {
		return nil, errors.AccessDenied()
	}
	return &publisher.Event{Tab: tab, Rows: table.Len()}, nil
}

type fakeArchiver struct {
	names []string
	err   error
}

func (f *fakeArchiver) Archive(_ context.Context, report, name string, _ []byte) (string, error) {
	f.names = append(f.names, report+"/"+name)
	return "key", f.err
}

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()

	config := analyzer.DefaultConfig()
	config.Now = func() time.Time { return time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC) }
	svc, err := analyzer.NewService(config)
	require.NoError(t, err)

	sessions, err := session.NewStore(nil)
	require.NoError(t, err)

	reports, err := reporter.NewSafeReportGenerator(nil, nil)
	require.NoError(t, err)

	return New(DefaultConfig(), svc, sessions, reports, opts...)
}

func createSession(t *testing.T, s *Server) string {
	t.Helper()
	w := serve(s, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	require.Equal(t, http.StatusCreated, w.Code)

	var info session.Info
	require.NoError(t, json.NewDecoder(w.Body).Decode(&info))
	return info.ID
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

type upload struct {
	field, name, content string
}

func multipartRequest(t *testing.T, path string, fields map[string]string, files ...upload) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorDetail {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body.Error
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "ok", response["status"])
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)

	w := serve(s, httptest.NewRequest(http.MethodGet, "/api/sessions/"+id, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"idle"`)

	w = serve(s, httptest.NewRequest(http.MethodDelete, "/api/sessions/"+id, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = serve(s, httptest.NewRequest(http.MethodGet, "/api/sessions/"+id, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, errors.CodeSessionNotFound, decodeError(t, w).Code)
}

func TestGrowthEndpoint(t *testing.T) {
	archiver := &fakeArchiver{}
	s := newTestServer(t, WithArchiver(archiver))
	id := createSession(t, s)

	req := multipartRequest(t, "/api/sessions/"+id+"/growth",
		map[string]string{"product": "gold", "mode": "branch"},
		upload{"old", "gold_feb.csv", goldOld},
		upload{"new", "gold_mar.csv", goldNew},
	)
	w := serve(s, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response struct {
		SessionID string `json:"session_id"`
		Results   []struct {
			Kind  string `json:"kind"`
			Tab   string `json:"tab"`
			Table struct {
				Rows []map[string]interface{} `json:"rows"`
			} `json:"table"`
		} `json:"results"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	require.Len(t, response.Results, 1)
	assert.Equal(t, "growth", response.Results[0].Kind)
	assert.Equal(t, analyzer.TabBranchGold, response.Results[0].Tab)
	assert.Equal(t, float64(500), response.Results[0].Table.Rows[0]["Growth"])

	assert.Equal(t, []string{"growth/gold_feb.csv", "growth/gold_mar.csv"}, archiver.names)
}

func TestGrowthEndpointErrors(t *testing.T) {
	s := newTestServer(t, WithArchiver(&fakeArchiver{err: stderrors.New("bucket missing")}))
	id := createSession(t, s)

	tests := []struct {
		name       string
		path       string
		fields     map[string]string
		files      []upload
		wantStatus int
		wantCode   errors.ErrorCode
	}{
		{
			name:       "unknown session",
			path:       "/api/sessions/nope/growth",
			fields:     map[string]string{"product": "gold", "mode": "branch"},
			wantStatus: http.StatusNotFound,
			wantCode:   errors.CodeSessionNotFound,
		},
		{
			name:       "unknown product",
			fields:     map[string]string{"product": "silver", "mode": "branch"},
			wantStatus: http.StatusBadRequest,
			wantCode:   errors.CodeInvalidOption,
		},
		{
			name:       "missing file",
			fields:     map[string]string{"product": "gold", "mode": "branch"},
			files:      []upload{{"old", "old.csv", goldOld}},
			wantStatus: http.StatusBadRequest,
			wantCode:   errors.CodeInvalidOption,
		},
		{
			name:       "unsupported format",
			fields:     map[string]string{"product": "gold", "mode": "branch"},
			files:      []upload{{"old", "old.pdf", "%PDF"}, {"new", "new.csv", goldNew}},
			wantStatus: http.StatusUnsupportedMediaType,
			wantCode:   errors.CodeUnsupportedFormat,
		},
		{
			name:   "missing columns",
			fields: map[string]string{"product": "gold", "mode": "staff"},
			files: []upload{
				{"old", "old.csv", "BRANCH NAME,PRINCIPAL OS\nA,1\n"},
				{"new", "new.csv", goldNew},
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   errors.CodeMissingColumn,
		},
		{
			name:       "bad include flag",
			fields:     map[string]string{"product": "subdebt", "mode": "staff", "include_branches": "maybe"},
			wantStatus: http.StatusBadRequest,
			wantCode:   errors.CodeInvalidOption,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.path
			if path == "" {
				path = "/api/sessions/" + id + "/growth"
			}

			w := serve(s, multipartRequest(t, path, tt.fields, tt.files...))

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.wantCode, decodeError(t, w).Code)
		})
	}

	// a failed report leaves nothing to download
	w := serve(s, httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/download", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestNPARequiresMaturity(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)

	w := serve(s, httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/npa", nil))

	assert.Equal(t, http.StatusConflict, w.Code)
	detail := decodeError(t, w)
	assert.Equal(t, errors.CodeMissingPrerequisite, detail.Code)
	assert.True(t, detail.Warning)
	assert.Contains(t, detail.Message, "maturity report first")
}

func TestMaturityThenNPA(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)

	req := multipartRequest(t, "/api/sessions/"+id+"/maturity",
		map[string]string{"current_date": "01-06-2024", "as_on_date": "31-05-2024"},
		upload{"file", "extract.csv", maturityExtract},
	)
	w := serve(s, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var maturity struct {
		Results []struct {
			Kind string `json:"kind"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &maturity))
	require.Len(t, maturity.Results, 2)
	assert.Equal(t, "maturity_consolidated", maturity.Results[1].Kind)

	w = serve(s, httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/npa", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"kind":"npa"`)
	assert.Contains(t, w.Body.String(), `"tab":"NPA_REPORT"`)
	assert.Contains(t, w.Body.String(), `"C1"`)
	assert.NotContains(t, w.Body.String(), `"C2"`)
}

func TestMaturityRejectsBadDate(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)

	req := multipartRequest(t, "/api/sessions/"+id+"/maturity",
		map[string]string{"current_date": "someday", "as_on_date": "31-05-2024"},
		upload{"file", "extract.csv", maturityExtract},
	)
	w := serve(s, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errors.CodeInvalidDate, decodeError(t, w).Code)
}

func TestPendingAndDownload(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)

	extract := "Branch Name,Due Days,Scheme Name,Principal OS,Interest OS,Customer Name,Customer ID\n" +
		"X,45,RCIL SPL@24,1000,10,Asha,C1\n" +
		"X,5,RCIL SPL@24,1000,10,Ravi,C2\n"
	w := serve(s, multipartRequest(t, "/api/sessions/"+id+"/pending", nil, upload{"file", "pending.csv", extract}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = serve(s, httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/download?format=csv", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="SS_Pending_Report.csv"`, w.Header().Get("Content-Disposition"))

	records, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, analyzer.PendingSummaryColumns, records[0])
	assert.Equal(t, "50%", records[1][6])

	w = serve(s, httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/download", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="ss_pending_report.xlsx"`, w.Header().Get("Content-Disposition"))

	f, err := excelize.OpenReader(w.Body)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"SS Pending Report"}, f.GetSheetList())

	w = serve(s, httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/download?format=console", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublishEndpoint(t *testing.T) {
	pub := &fakePublisher{}
	s := newTestServer(t, WithPublisher(pub))
	id := createSession(t, s)

	req := multipartRequest(t, "/api/sessions/"+id+"/growth",
		map[string]string{"product": "gold", "mode": "staff"},
		upload{"old", "old.csv", goldOld},
		upload{"new", "new.csv", goldNew},
	)
	require.Equal(t, http.StatusOK, serve(s, req).Code)

	publish := func(password string) *httptest.ResponseRecorder {
		form := url.Values{"password": {password}}
		req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/publish", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return serve(s, req)
	}

	w := publish("wrong")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, errors.CodeAccessDenied, decodeError(t, w).Code)

	w = publish("s3cret")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, analyzer.TabStaffGold, pub.tab)
	assert.Equal(t, 2, pub.rows)

	pub.err = errors.PublishError(errors.CodePublishFailed, analyzer.TabStaffGold, stderrors.New("quota"))
	w = publish("s3cret")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestPublishWithoutPublisher(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)

	w := serve(s, httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/publish", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, errors.CodeMissingConfig, decodeError(t, w).Code)
}
