package api

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/semmidev/omran/internal/app"
	"github.com/semmidev/omran/internal/domain"
	"github.com/semmidev/omran/internal/usecase"
)

// Uploads carry the file plus multipart overhead.
const maxImportOverhead = 1 << 20

type exportRequest struct {
	Channel string `json:"channel"`
	usecase.FormatOptions
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation, domain.KindImportFormat, domain.KindScheduleConfig:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindChecksumMismatch:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respond[T any](w http.ResponseWriter, okStatus int, res app.Result[T]) {
	if res.Success {
		writeJSON(w, okStatus, res)
		return
	}
	writeJSON(w, statusFor(res.Kind), res)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, app.Result[any]{Error: msg, Kind: domain.KindValidation})
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && err != io.EOF {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, app.Result[any]{Error: err.Error(), Kind: domain.KindStorage})
		return
	}
	writeJSON(w, http.StatusOK, app.Result[string]{Success: true, Data: "ok"})
}

func (s *Server) listChannels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, app.Result[[]string]{Success: true, Data: s.app.ExportChannels()})
}

func (s *Server) listBackups(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, s.app.ListBackups(r.Context()))
}

func (s *Server) createBackup(w http.ResponseWriter, r *http.Request) {
	var req usecase.CreateRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	respond(w, http.StatusCreated, s.app.CreateBackup(r.Context(), req))
}

func (s *Server) getBackup(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, s.app.GetBackup(r.Context(), chi.URLParam(r, "id")))
}

func (s *Server) deleteBackup(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, s.app.DeleteBackup(r.Context(), chi.URLParam(r, "id")))
}

func (s *Server) restoreBackup(w http.ResponseWriter, r *http.Request) {
	var opts domain.RestoreOptions
	if err := decodeBody(r, &opts); err != nil {
		badRequest(w, err.Error())
		return
	}
	respond(w, http.StatusOK, s.app.RestoreBackup(r.Context(), chi.URLParam(r, "id"), opts))
}

func (s *Server) exportBackup(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	respond(w, http.StatusOK, s.app.ExportBackup(r.Context(), chi.URLParam(r, "id"), req.Channel, req.FormatOptions))
}

// downloadBackup streams the export file; failures are JSON results.
func (s *Server) downloadBackup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := usecase.FormatOptions{Pretty: q.Get("pretty") == "true"}
	if key := r.Header.Get("X-Encryption-Key"); key != "" {
		opts.Encrypt = true
		opts.EncryptionKey = key
	}
	if alg := q.Get("compress"); alg != "" {
		opts.Compress = true
		opts.Algorithm = alg
	}

	res := s.app.RenderBackup(r.Context(), chi.URLParam(r, "id"), opts)
	if !res.Success {
		respond(w, http.StatusOK, res)
		return
	}

	contentType := "application/json"
	if res.Data.Sealed {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.Data.Filename}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data.Payload)
}

// importBackup accepts a multipart upload in field "file", or a raw body
// with the name in ?filename=.
func (s *Server) importBackup(w http.ResponseWriter, r *http.Request) {
	limit := s.app.Config().Backup.MaxSizeBytes()*2 + maxImportOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	var (
		filename string
		content  []byte
		err      error
	)
	opts := usecase.ImportOptions{EncryptionKey: r.Header.Get("X-Encryption-Key")}

	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "multipart/form-data" {
		file, header, ferr := r.FormFile("file")
		if ferr != nil {
			badRequest(w, "missing file field")
			return
		}
		defer file.Close()
		filename = header.Filename
		content, err = io.ReadAll(file)
		if key := r.FormValue("encryptionKey"); key != "" {
			opts.EncryptionKey = key
		}
	} else {
		filename = r.URL.Query().Get("filename")
		content, err = io.ReadAll(r.Body)
	}
	if err != nil {
		badRequest(w, fmt.Sprintf("cannot read upload: %v", err))
		return
	}
	if filename == "" {
		badRequest(w, "filename is required")
		return
	}

	respond(w, http.StatusCreated, s.app.ImportBackup(r.Context(), filepath.Base(filename), content, opts))
}

func (s *Server) getSchedule(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, s.app.GetSchedule(r.Context()))
}

func (s *Server) applySchedule(w http.ResponseWriter, r *http.Request) {
	var cfg domain.ScheduleConfig
	if err := decodeBody(r, &cfg); err != nil {
		badRequest(w, err.Error())
		return
	}
	respond(w, http.StatusOK, s.app.ApplySchedule(r.Context(), cfg))
}

func (s *Server) runCleanup(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, s.app.RunCleanup(r.Context()))
}
