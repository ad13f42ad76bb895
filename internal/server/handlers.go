package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/battlewithbytes/webbrand/internal/distribute"
	"github.com/battlewithbytes/webbrand/internal/logo"
	"github.com/battlewithbytes/webbrand/internal/version"
)

// maxUploadMemory is the part of a multipart upload kept in memory; the
// rest spills to temporary files.
const maxUploadMemory = 8 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps a classified error to an HTTP status.
func statusFor(err error) int {
	switch logo.KindOf(err) {
	case logo.KindNotFound:
		return http.StatusNotFound
	case logo.KindValidation:
		return http.StatusBadRequest
	case logo.KindPermission:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) observeStore(op string, err error) {
	if s.metrics != nil {
		s.metrics.ObserveStoreOp(op, err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":              "ok",
		"version":             version.Version,
		"mode":                s.cfg.Mode,
		"override_dir_exists": s.store.DirExists(),
		"web_dir_exists":      dirExists(s.cfg.WebDir),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.store.Status()
	body := make(map[string]bool, len(status))
	for _, spec := range s.store.Table() {
		body[spec.StatusKey] = status[spec.Role]
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleGetLogo(w http.ResponseWriter, r *http.Request) {
	role, err := s.store.Table().ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	data, err := s.store.Read(role)
	s.observeStore("read", err)
	if err != nil {
		if errors.Is(err, logo.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("no override set for %s", role))
			return
		}
		s.log.Error().Err(err).Str("role", string(role)).Msg("reading override")
		writeError(w, statusFor(err), "failed to read override")
		return
	}

	spec, _ := s.store.Table().Lookup(role)
	w.Header().Set("Content-Type", logo.ContentType(spec.FileName, data))
	w.Header().Set("ETag", `"`+logo.Fingerprint(data)+`"`)
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, spec.FileName, time.Time{}, bytes.NewReader(data))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxBytes)
	if err := r.ParseMultipartForm(min(s.cfg.Upload.MaxBytes, maxUploadMemory)); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeHTMLError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Upload exceeds the limit of %d bytes.", tooLarge.Limit))
			return
		}
		writeHTMLError(w, http.StatusBadRequest, "Invalid upload: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	// Every part is attempted. Whatever was saved is distributed before the
	// first failure, if any, is reported.
	var saved []logo.Role
	var failure func()
	for _, spec := range s.store.Table() {
		data, err := formFile(r, spec.FormField)
		if err != nil {
			if failure == nil {
				failure = func() {
					writeHTMLError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s part: %v", spec.FormField, err))
				}
			}
			continue
		}
		if len(data) == 0 {
			continue
		}
		err = s.store.Save(spec.Role, data)
		s.observeStore("save", err)
		if err != nil {
			if failure == nil {
				failure = func() { s.uploadFailed(w, spec, err) }
			} else {
				s.log.Error().Err(err).Str("role", string(spec.Role)).Msg("saving override")
			}
			continue
		}
		s.log.Info().Str("role", string(spec.Role)).Int("bytes", len(data)).Msg("override saved")
		saved = append(saved, spec.Role)
	}

	if len(saved) > 0 && s.dist != nil {
		// The run outlives a client that disconnects after the upload.
		ctx := context.WithoutCancel(r.Context())
		if _, err := s.dist.Distribute(ctx, distribute.TriggerUpload, saved...); err != nil {
			s.log.Error().Err(err).Msg("distribution after upload")
		}
	}

	if failure != nil {
		failure()
		return
	}
	writeRedirectPage(w, s.cfg.Server.DashboardURL)
}

// formFile reads a multipart part. A missing part yields nil data.
func formFile(r *http.Request, field string) ([]byte, error) {
	f, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) uploadFailed(w http.ResponseWriter, spec logo.Spec, err error) {
	s.log.Error().Err(err).Str("role", string(spec.Role)).Msg("saving override")
	if errors.Is(err, logo.ErrPermission) {
		writeHTMLError(w, http.StatusForbidden, fmt.Sprintf(
			"The server does not have write access to the logo directory %s. Please check the permissions.",
			s.store.Dir()))
		return
	}
	writeHTMLError(w, statusFor(err), fmt.Sprintf("Failed to save %s: %v", spec.FormField, err))
}

func (s *Server) handleDeleteLogo(w http.ResponseWriter, r *http.Request) {
	role, err := s.store.Table().ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = s.store.Delete(role)
	s.observeStore("delete", err)
	if err != nil {
		if errors.Is(err, logo.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("no override set for %s", role))
			return
		}
		s.log.Error().Err(err).Str("role", string(role)).Msg("deleting override")
		writeError(w, statusFor(err), err.Error())
		return
	}
	s.log.Info().Str("role", string(role)).Msg("override deleted")

	resp := map[string]interface{}{"role": role, "deleted": true}
	if s.dist != nil {
		rep, err := s.dist.Restore(context.WithoutCancel(r.Context()), distribute.TriggerDelete, role)
		if err != nil {
			s.log.Error().Err(err).Str("role", string(role)).Msg("restoring originals")
		} else {
			resp["report"] = rep
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "history is disabled")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}
	runs, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.log.Error().Err(err).Msg("listing history")
		writeError(w, http.StatusInternalServerError, "failed to list history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

func (s *Server) handleHistoryRun(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "history is disabled")
		return
	}
	id := chi.URLParam(r, "id")
	run, err := s.history.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, logo.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("run %q not found", id))
			return
		}
		s.log.Error().Err(err).Str("run", id).Msg("reading run")
		writeError(w, http.StatusInternalServerError, "failed to read run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
