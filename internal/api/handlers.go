package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"growth-analyzer/internal/analyzer"
	"growth-analyzer/internal/models"
	"growth-analyzer/internal/reporter"
	"growth-analyzer/pkg/errors"
	"growth-analyzer/pkg/logger"
)

// reportResponse is returned by every report route
type reportResponse struct {
	SessionID string             `json:"session_id"`
	Results   []*analyzer.Result `json:"results"`
}

func (s *Server) handleGrowth(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.prepareForm(w, r, id) {
		return
	}

	includeBranches, err := formBool(r, "include_branches")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	req := analyzer.GrowthRequest{
		Product:         analyzer.Product(r.FormValue("product")),
		Mode:            analyzer.Mode(r.FormValue("mode")),
		IncludeBranches: includeBranches,
	}
	if req, err = req.Normalize(); err != nil {
		s.writeError(w, r, err)
		return
	}

	oldTable, err := s.readUpload(r, "old", analyzer.KindGrowth)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	newTable, err := s.readUpload(r, "new", analyzer.KindGrowth)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.analyzer.Growth(r.Context(), oldTable, newTable, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.storeAndRespond(w, r, id, result)
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.prepareForm(w, r, id) {
		return
	}

	customerProfile, err := formBool(r, "customer_profile")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	table, err := s.readUpload(r, "file", analyzer.KindPendingSummary)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.analyzer.Pending(r.Context(), table, customerProfile)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.storeAndRespond(w, r, id, result)
}

func (s *Server) handleMaturity(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.prepareForm(w, r, id) {
		return
	}

	opts, err := maturityOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	table, err := s.readUpload(r, "file", analyzer.KindMaturity)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	run, err := s.analyzer.Maturity(r.Context(), table, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.sessions.SetMaturity(id, run); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{SessionID: id, Results: run.Results()})
}

func (s *Server) handleNPA(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	run, err := s.sessions.MaturityRun(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result := s.analyzer.NPAFromRun(run)
	s.storeAndRespond(w, r, id, result)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	query := r.URL.Query()

	format := reporter.FormatXLSX
	if f := query.Get("format"); f != "" {
		parsed, err := reporter.ParseOutputFormat(f)
		if err != nil || parsed == reporter.FormatConsole {
			s.writeError(w, r, errors.ValidationError(errors.CodeInvalidOption, "format", f, nil).
				WithSuggestion("Download as xlsx, csv or json"))
			return
		}
		format = parsed
	}

	result, err := s.sessions.Result(id, analyzer.ReportKind(query.Get("kind")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := s.reports.Write(result, format, &buf); err != nil {
		s.writeError(w, r, errors.InternalError(errors.CodeUnexpectedError, "download", err))
		return
	}

	w.Header().Set("Content-Type", contentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", reporter.ReportFileName(result, format)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if s.publisher == nil {
		s.writeError(w, r, errors.ConfigurationError(errors.CodeMissingConfig, "publish.spreadsheet_id", nil, nil))
		return
	}

	result, err := s.sessions.Result(id, analyzer.ReportKind(r.FormValue("kind")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	event, err := s.publisher.Publish(r.Context(), result.Table, result.Tab, r.FormValue("password"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// prepareForm checks the session and parses the multipart body
func (s *Server) prepareForm(w http.ResponseWriter, r *http.Request, id string) bool {
	if _, err := s.sessions.Get(id); err != nil {
		s.writeError(w, r, err)
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.writeError(w, r, errors.Wrap(err, errors.CategoryValidation, errors.CodeInvalidOption,
			"request is not a readable multipart form").
			WithSuggestion("Send the files as multipart/form-data"))
		return false
	}
	return true
}

// readUpload loads the uploaded file in field and archives a copy when an
// archiver is configured. An archive failure does not fail the report.
func (s *Server) readUpload(r *http.Request, field string, report analyzer.ReportKind) (*models.Table, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, errors.CodeInvalidOption,
			fmt.Sprintf("missing uploaded file '%s'", field)).
			WithSuggestion(fmt.Sprintf("Attach the extract as the %q form file", field))
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, header.Filename, err)
	}

	table, err := s.analyzer.Load(bytes.NewReader(data), header.Filename)
	if err != nil {
		return nil, err
	}

	if s.archiver != nil {
		if _, err := s.archiver.Archive(r.Context(), string(report), header.Filename, data); err != nil {
			s.logger.WithError(err).WithField("file", header.Filename).Warn("Source file not archived")
		}
	}

	s.logger.WithFields(logger.Fields{
		"field": field,
		"file":  header.Filename,
		"rows":  table.Len(),
	}).Debug("Upload loaded")
	return table, nil
}

func (s *Server) storeAndRespond(w http.ResponseWriter, r *http.Request, id string, result *analyzer.Result) {
	if err := s.sessions.SetResults(id, result); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{SessionID: id, Results: []*analyzer.Result{result}})
}

func maturityOptions(r *http.Request) (analyzer.MaturityOptions, error) {
	var opts analyzer.MaturityOptions

	for _, field := range []struct {
		name   string
		target *time.Time
	}{
		{"current_date", &opts.CurrentDate},
		{"as_on_date", &opts.AsOnDate},
	} {
		value := r.FormValue(field.name)
		date, ok := models.ParseDate(value)
		if !ok {
			return opts, errors.ValidationError(errors.CodeInvalidDate, field.name, value, nil)
		}
		*field.target = date
	}

	if v := r.FormValue("npa_threshold"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days <= 0 {
			return opts, errors.ValidationError(errors.CodeInvalidOption, "npa_threshold", v, err)
		}
		opts.NPAThresholdDays = days
	}
	return opts, nil
}

func formBool(r *http.Request, field string) (bool, error) {
	v := strings.TrimSpace(r.FormValue(field))
	switch strings.ToLower(v) {
	case "":
		return false, nil
	case "on", "yes":
		return true, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.ValidationError(errors.CodeInvalidOption, field, v, err)
	}
	return b, nil
}

func contentType(format reporter.OutputFormat) string {
	switch format {
	case reporter.FormatCSV:
		return "text/csv; charset=utf-8"
	case reporter.FormatJSON:
		return "application/json"
	default:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
}
