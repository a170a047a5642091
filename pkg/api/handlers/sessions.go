package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"fillsession/pkg/auth"
	"fillsession/pkg/docstore"
	"fillsession/pkg/session"
	"fillsession/pkg/utils"
)

// deps carries the collaborators the handlers need. The document store is
// only consulted when a create request references an upload instead of
// carrying inline content.
type deps struct {
	sessions *session.Store
	docs     docstore.Store
}

var d deps

// RegisterSessions registers all session routes on the provided router.
func RegisterSessions(r *mux.Router, st *session.Store) {
	d = deps{sessions: st}
	r.HandleFunc("/sessions", createSession).Methods(http.MethodPost)
	r.HandleFunc("/sessions", listSessions).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}", getSession).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/messages", sendMessage).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/versions", listVersions).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/versions", applyChanges).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/revert", revertVersion).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/complete", completeSession).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/abandon", abandonSession).Methods(http.MethodPost)
}

// SetDocStore wires the optional document store for file-ref creates.
func SetDocStore(ds docstore.Store) { d.docs = ds }

// writeTaxonomyError maps the session error taxonomy onto HTTP statuses.
func writeTaxonomyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrInvalidInput), errors.Is(err, session.ErrOutOfRange):
		utils.JSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrNotFound):
		utils.JSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrForbidden):
		utils.JSONError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, session.ErrInvalidState):
		utils.JSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrQuotaExceeded):
		utils.JSONError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, session.ErrProvider):
		utils.JSONError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, session.ErrEntitlements), errors.Is(err, session.ErrDocStore):
		// dependency failure, not a provider or quota outcome; retryable
		utils.JSONError(w, http.StatusServiceUnavailable, err.Error())
	default:
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
	}
}

func ownerOr401(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner := auth.OwnerIDFromContext(r.Context())
	if owner == "" {
		utils.JSONError(w, http.StatusUnauthorized, "owner identity required")
		return "", false
	}
	return owner, true
}

type createSessionRequest struct {
	OriginalContent string `json:"original_content,omitempty"`
	FileRef         string `json:"file_ref,omitempty"`
	SeedMessage     string `json:"seed_message,omitempty"`
	AutoApply       bool   `json:"auto_apply,omitempty"`
}

// createSession handles POST /sessions. Content may be supplied inline or
// as an uploaded file reference. A seed message, when present, runs the
// first SendMessage before the response; a provider failure on the seed
// still returns the created session alongside the error.
func createSession(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOr401(w, r)
	if !ok {
		return
	}
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	content := req.OriginalContent
	if content == "" && req.FileRef != "" {
		if d.docs == nil {
			utils.JSONError(w, http.StatusBadRequest, "file references are not enabled")
			return
		}
		loaded, err := d.docs.LoadOriginal(r.Context(), req.FileRef)
		if err != nil {
			utils.JSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		content = loaded
	}

	sess, seedRes, err := d.sessions.Create(r.Context(), owner, content, req.SeedMessage, req.AutoApply)
	if err != nil && sess.ID == "" {
		writeTaxonomyError(w, err)
		return
	}
	resp := map[string]interface{}{"session": sess}
	if seedRes != nil {
		resp["seed_result"] = seedRes
	}
	if err != nil {
		// session created, seed message failed
		resp["seed_error"] = err.Error()
	}
	_ = utils.JSONWrite(w, http.StatusCreated, resp)
}

func listSessions(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOr401(w, r)
	if !ok {
		return
	}
	summaries, err := d.sessions.List(owner)
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{"sessions": summaries})
}

func getSession(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOr401(w, r)
	if !ok {
		return
	}
	sess, err := d.sessions.Get(mux.Vars(r)["id"], owner)
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, sess)
}

type sendMessageRequest struct {
	Text      string `json:"text"`
	AutoApply bool   `json:"auto_apply,omitempty"`
}

func sendMessage(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOr401(w, r)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := d.sessions.SendMessage(r.Context(), mux.Vars(r)["id"], owner, req.Text, req.AutoApply)
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, res)
}

func listVersions(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOr401(w, r)
	if !ok {
		return
	}
	sess, err := d.sessions.Get(mux.Vars(r)["id"], owner)
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{
		"session_id": sess.ID,
		"versions":   sess.Versions,
	})
}

type applyChangesRequest struct {
	Content     string `json:"content"`
	Description string `json:"description,omitempty"`
}

func applyChanges(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOr401(w, r)
	if !ok {
		return
	}
	var req applyChangesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	v, err := d.sessions.ApplyChanges(mux.Vars(r)["id"], owner, req.Content, req.Description)
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusCreated, v)
}

type revertRequest struct {
	Index int `json:"index"`
}

func revertVersion(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOr401(w, r)
	if !ok {
		return
	}
	var req revertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	v, err := d.sessions.Revert(mux.Vars(r)["id"], owner, req.Index)
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusCreated, v)
}

func completeSession(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOr401(w, r)
	if !ok {
		return
	}
	summary, err := d.sessions.Complete(r.Context(), mux.Vars(r)["id"], owner)
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, summary)
}

func abandonSession(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOr401(w, r)
	if !ok {
		return
	}
	if err := d.sessions.Abandon(mux.Vars(r)["id"], owner); err != nil {
		writeTaxonomyError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
