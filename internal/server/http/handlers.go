package internalhttp

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lomoval/calendar-helper/internal/app"
	"github.com/lomoval/calendar-helper/internal/geo"
	"github.com/lomoval/calendar-helper/internal/ics"
	"github.com/lomoval/calendar-helper/internal/pipeline"
	"github.com/lomoval/calendar-helper/internal/storage"
	log "github.com/sirupsen/logrus"
)

const (
	errorUnsafePrompt    = "unsafe_prompt"
	errorNoEvents        = "no_events"
	errorValidation      = "validation_error"
	errorProcessing      = "processing_error"
	msgNoEvents          = "No events were found. Please try again."
	msgNoEventsToExport  = "No events found to download"
	msgUnexpected        = "An unexpected error occurred. Please try again."
	msgCalendarFailed    = "Error generating calendar file"
	msgIncorrectJSONBody = "Unable to read the request body"
)

type response struct {
	Success     bool            `json:"success"`
	Events      []storage.Event `json:"events,omitempty"`
	ICSContent  string          `json:"ics_content,omitempty"`
	ErrorType   string          `json:"error_type,omitempty"`
	UserMessage string          `json:"user_message,omitempty"`
}

type configResponse struct {
	MaxImageSize      int64    `json:"maxImageSize"`
	MaxImages         int      `json:"maxImages"`
	AllowedImageTypes []string `json:"allowedImageTypes"`
	Version           string   `json:"version"`
}

type correctRequest struct {
	Correction    string          `json:"correction"`
	CurrentEvents []storage.Event `json:"current_events"`
}

type downloadRequest struct {
	Events []storage.Event `json:"events"`
}

func (s *Server) config(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
	writeJSON(w, http.StatusOK, configResponse{
		MaxImageSize:      s.uploads.MaxImageSize,
		MaxImages:         s.uploads.MaxImages,
		AllowedImageTypes: s.uploads.AllowedTypes,
		Version:           s.version,
	})
}

func (s *Server) process(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	images, text, err := s.uploads.readUploads(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	ip, err := geo.ClientIP(r)
	if err != nil {
		log.Debugf("unknown client address: %v", err)
	}

	res, err := s.app.Extract(r.Context(), app.ExtractCommand{
		SessionID: sessionID(r),
		ClientIP:  ip,
		Images:    images,
		Text:      text,
		Timezone:  r.Header.Get(timezoneHeader),
	})
	setSession(w, res.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	log.Infof("successfully processed request with %d events", len(res.Events))
	writeJSON(w, http.StatusOK, response{Success: true, Events: res.Events})
}

func (s *Server) correct(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req correctRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, invalid(msgIncorrectJSONBody))
		return
	}

	res, err := s.app.Correct(r.Context(), app.CorrectCommand{
		SessionID: sessionID(r),
		Text:      req.Correction,
		Events:    req.CurrentEvents,
		Timezone:  r.Header.Get(timezoneHeader),
	})
	setSession(w, res.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Events: res.Events})
}

func (s *Server) downloadICS(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, invalid(msgIncorrectJSONBody))
		return
	}

	content, err := s.app.ICS(r.Context(), sessionID(r), req.Events)
	switch {
	case errors.Is(err, ics.ErrNoEvents):
		writeJSON(w, http.StatusBadRequest, response{ErrorType: errorNoEvents, UserMessage: msgNoEventsToExport})
	case err != nil:
		log.Errorf("failed to generate calendar: %v", err)
		writeJSON(w, http.StatusInternalServerError, response{ErrorType: errorProcessing, UserMessage: msgCalendarFailed})
	default:
		writeJSON(w, http.StatusOK, response{Success: true, ICSContent: content})
	}
}

func (s *Server) clear(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	if err := s.app.Clear(r.Context(), sessionID(r)); err != nil {
		writeError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, response{Success: true})
}

// writeError maps upload and pipeline errors to the user facing error types.
func writeError(w http.ResponseWriter, err error) {
	var validation *ValidationError
	if errors.As(err, &validation) {
		writeJSON(w, http.StatusBadRequest, response{ErrorType: errorValidation, UserMessage: validation.Message})
		return
	}

	var perr *pipeline.Error
	if errors.As(err, &perr) {
		switch perr.Kind {
		case pipeline.KindSafetyRejected:
			log.Warnf("safety validation error: %s", perr.Reason)
			writeJSON(w, http.StatusBadRequest, response{ErrorType: errorUnsafePrompt, UserMessage: perr.Reason})
			return
		case pipeline.KindNoEventsFound:
			writeJSON(w, http.StatusBadRequest, response{ErrorType: errorNoEvents, UserMessage: msgNoEvents})
			return
		}
	}
	log.Errorf("unexpected error: %v", err)
	writeJSON(w, http.StatusInternalServerError, response{ErrorType: errorProcessing, UserMessage: msgUnexpected})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorf("failed to write response: %v", err)
	}
}

func sessionID(r *http.Request) string {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func setSession(w http.ResponseWriter, id string) {
	if id == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
