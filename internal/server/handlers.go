package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"sort"
	"strings"

	"github.com/verdantlabs/leafdoc/internal/diagnose"
	"github.com/verdantlabs/leafdoc/internal/knowledge"
)

// chatRequest is the POST /v1/chat body.
type chatRequest struct {
	Message string `json:"message"`
}

// chatResponse is the POST /v1/chat reply.
type chatResponse struct {
	Reply string `json:"reply"`
}

// errorResponse is the JSON body of every non-2xx API response.
type errorResponse struct {
	Error string `json:"error"`
}

// diseaseListResponse is the GET /v1/diseases body.
type diseaseListResponse struct {
	Diseases []string `json:"diseases"`
}

// handleDiagnose accepts one diagnosis interaction. Multipart bodies carry
// the optional "image" and "audio" file parts plus a "text" field; a plain
// JSON body carries text only.
func (s *Server) handleDiagnose(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	req, err := parseDiagnoseRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	diag, err := s.diag.Diagnose(r.Context(), req)
	if err != nil {
		if errors.Is(err, diagnose.ErrCollaborator) {
			s.logger.Error("diagnosis collaborator failure", "err", err)
			writeError(w, http.StatusBadGateway, "a model backend is unavailable, please retry")
			return
		}
		s.logger.Error("diagnosis failed", "err", err)
		writeError(w, http.StatusInternalServerError, "diagnosis failed")
		return
	}

	writeJSON(w, http.StatusOK, diag)
}

// parseDiagnoseRequest extracts the evidence channels from the request body.
func parseDiagnoseRequest(r *http.Request) (diagnose.Request, error) {
	var req diagnose.Request

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return req, errors.New("missing or malformed Content-Type")
	}

	switch {
	case mediaType == "multipart/form-data":
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return req, errors.New("malformed multipart body")
		}
		req.Text = r.FormValue("text")
		if data, err := readFormFile(r, "image"); err != nil {
			return req, err
		} else if data != nil {
			req.Image = data
		}
		if data, err := readFormFile(r, "audio"); err != nil {
			return req, err
		} else if data != nil {
			req.Audio = data
		}

	case mediaType == "application/json":
		var body struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return req, errors.New("malformed JSON body")
		}
		req.Text = body.Text

	default:
		return req, errors.New("unsupported Content-Type, use multipart/form-data or application/json")
	}

	return req, nil
}

// readFormFile reads an optional multipart file part in full. A missing part
// yields (nil, nil).
func readFormFile(r *http.Request, field string) ([]byte, error) {
	f, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.New("malformed " + field + " part")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.New("failed reading " + field + " part")
	}
	return data, nil
}

// handleChat performs one request/response exchange with the assistant.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	reply, err := s.bot.Respond(r.Context(), req.Message)
	if err != nil {
		s.logger.Error("chat response failed", "err", err)
		writeError(w, http.StatusInternalServerError, "assistant unavailable")
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
}

// handleDiseaseList returns every known disease key, sorted.
func (s *Server) handleDiseaseList(w http.ResponseWriter, r *http.Request) {
	keys, err := s.kb.Keys(r.Context())
	if err != nil {
		s.logger.Error("disease key listing failed", "err", err)
		writeError(w, http.StatusInternalServerError, "knowledge base unavailable")
		return
	}
	sort.Strings(keys)
	writeJSON(w, http.StatusOK, diseaseListResponse{Diseases: keys})
}

// handleDiseaseGet returns the treatment record for one disease key. The key
// is normalized before lookup, so "Tomato___Late_blight" and
// "tomato_late_blight" address the same record. Unknown keys are 404s here —
// unlike the diagnosis path, a browsing client asked for this exact record.
func (s *Server) handleDiseaseGet(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.PathValue("key"))
	if knowledge.NormalizeKey(key) == "" {
		writeError(w, http.StatusBadRequest, "empty disease key")
		return
	}

	rec, err := s.kb.Lookup(r.Context(), key)
	if err != nil {
		s.logger.Error("disease lookup failed", "key", key, "err", err)
		writeError(w, http.StatusInternalServerError, "knowledge base unavailable")
		return
	}
	if !rec.Found {
		writeError(w, http.StatusNotFound, "unknown disease key")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// handleUnknownCases returns the unknown-case log, oldest first.
func (s *Server) handleUnknownCases(w http.ResponseWriter, _ *http.Request) {
	entries := s.unknowns.Recent()
	writeJSON(w, http.StatusOK, map[string]any{"cases": entries})
}

// writeJSON encodes v with the given status. Encoding failures are logged by
// the middleware's completion log via the status recorder; there is nothing
// more to send at that point.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
