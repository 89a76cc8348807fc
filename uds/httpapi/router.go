// Package httpapi wires the User Discovery Service's path-segment-dispatched
// HTTP operations onto a net/http mux: users, search_users, user_by_uid,
// create_user, add_pub_key, profile, and user/<uid>[/<signature_key>].
package httpapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jaem-project/jaem-server/internal/logger"
	"github.com/jaem-project/jaem-server/uds/userstore"
)

const (
	defaultPage     = 0
	defaultPageSize = 20
)

// Router dispatches UDS HTTP requests onto a userstore.Store.
type Router struct {
	store *userstore.Store
	log   logger.Logger
}

// New builds a Router over store.
func New(store *userstore.Store, log logger.Logger) *Router {
	if log == nil {
		log = logger.Default()
	}
	return &Router{store: store, log: log}
}

// ServeHTTP implements http.Handler, attaching a request ID and dispatching
// on method + path segments.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()
	ctx := logger.WithRequestID(r.Context(), requestID)
	r = r.WithContext(ctx)

	// Split on the still-escaped path, not r.URL.Path: net/http's request
	// parsing has already percent-decoded Path, so a client-escaped "%2F"
	// inside a path segment (e.g. a standard, non-URL-safe base64
	// signature_key) would otherwise have turned into a literal "/" and
	// been mistaken for a routing separator. Each segment is decoded
	// individually once split, so a "/" embedded in a key only ever
	// appears as "%2F" on the wire.
	rawSegments := strings.Split(strings.Trim(r.URL.EscapedPath(), "/"), "/")
	if len(rawSegments) == 0 || rawSegments[0] == "" {
		http.NotFound(w, r)
		return
	}
	segments := make([]string, len(rawSegments))
	for i, seg := range rawSegments {
		decoded, err := url.PathUnescape(seg)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		segments[i] = decoded
	}

	switch {
	case r.Method == http.MethodGet && segments[0] == "users":
		rt.handleListUsers(w, r, segments[1:])
	case r.Method == http.MethodGet && segments[0] == "search_users":
		rt.handleSearchUsers(w, r, segments[1:])
	case r.Method == http.MethodGet && segments[0] == "user_by_uid":
		rt.handleUserByUID(w, r, segments[1:])
	case r.Method == http.MethodPost && segments[0] == "create_user":
		rt.handleCreateUser(w, r)
	case r.Method == http.MethodPost && segments[0] == "add_pub_key":
		rt.handleAddPubKey(w, r)
	case r.Method == http.MethodPatch && segments[0] == "profile":
		rt.handleUpdateProfile(w, r)
	case r.Method == http.MethodDelete && segments[0] == "user":
		rt.handleDeleteUser(w, r, segments[1:])
	default:
		http.NotFound(w, r)
	}
}

func parsePaging(segments []string) (page, pageSize int) {
	page, pageSize = defaultPage, defaultPageSize
	if len(segments) >= 1 {
		if v, err := strconv.Atoi(segments[0]); err == nil {
			page = v
		}
	}
	if len(segments) >= 2 {
		if v, err := strconv.Atoi(segments[1]); err == nil {
			pageSize = v
		}
	}
	return page, pageSize
}

func (rt *Router) handleListUsers(w http.ResponseWriter, r *http.Request, rest []string) {
	page, pageSize := parsePaging(rest)
	users := rt.store.GetUsers(page, pageSize)
	writeJSON(w, http.StatusOK, users)
}

func (rt *Router) handleSearchUsers(w http.ResponseWriter, r *http.Request, rest []string) {
	if len(rest) == 0 {
		rt.writeErrorBody(w, r, http.StatusBadRequest, 0, "Invalid Request Body")
		return
	}
	pattern := rest[0]
	page, pageSize := parsePaging(rest[1:])

	users, ok := rt.store.GetEntriesByPattern(pattern, page, pageSize)
	if !ok {
		rt.writeErrorBody(w, r, http.StatusBadRequest, 2, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (rt *Router) handleUserByUID(w http.ResponseWriter, r *http.Request, rest []string) {
	if len(rest) == 0 {
		rt.writeErrorBody(w, r, http.StatusBadRequest, 0, "Invalid Request Body")
		return
	}
	u, ok := rt.store.GetEntryByUID(rest[0])
	if !ok {
		rt.writeErrorBody(w, r, http.StatusBadRequest, 2, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

type createUserRequest struct {
	UID            string             `json:"uid"`
	Username       string             `json:"username"`
	PublicKeys     []userstore.PubKey `json:"public_keys"`
	ProfilePicture string             `json:"profile_picture"`
	Description    string             `json:"description"`
}

func (rt *Router) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeStrict(r, &req); err != nil {
		rt.writeErrorBody(w, r, http.StatusBadRequest, 0, "Invalid Request Body")
		return
	}
	if req.UID == "" || req.Username == "" || req.PublicKeys == nil {
		rt.writeErrorBody(w, r, http.StatusBadRequest, 0, "Invalid Request Body")
		return
	}

	err := rt.store.Add(userstore.NewUser{
		UID:            req.UID,
		Username:       req.Username,
		PublicKeys:     req.PublicKeys,
		ProfilePicture: []byte(req.ProfilePicture),
		Description:    req.Description,
	})
	if err != nil {
		if err == userstore.ErrExists {
			rt.writeErrorBody(w, r, http.StatusBadRequest, 1, "User already exists")
			return
		}
		rt.writeErrorBody(w, r, http.StatusBadRequest, 3, err.Error())
		return
	}
	rt.log.WithContext(r.Context()).Info("user created", logger.UID(req.UID))
	w.WriteHeader(http.StatusOK)
}

type addPubKeyRequest struct {
	UID        string             `json:"uid"`
	PublicKeys []userstore.PubKey `json:"public_keys"`
}

func (rt *Router) handleAddPubKey(w http.ResponseWriter, r *http.Request) {
	var req addPubKeyRequest
	if err := decodeStrict(r, &req); err != nil {
		rt.writeErrorBody(w, r, http.StatusBadRequest, 0, "Invalid Request Body")
		return
	}

	if err := rt.store.AddPubKeys(req.UID, req.PublicKeys); err != nil {
		if err == userstore.ErrNotFound {
			rt.writeErrorBody(w, r, http.StatusBadRequest, 2, "User not found")
			return
		}
		rt.writeErrorBody(w, r, http.StatusBadRequest, 3, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
}

type updateProfileRequest struct {
	UID            string  `json:"uid"`
	Username       *string `json:"username,omitempty"`
	ProfilePicture *string `json:"profile_picture,omitempty"`
	Description    *string `json:"description,omitempty"`
}

func (rt *Router) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decodeStrict(r, &req); err != nil {
		rt.writeErrorBody(w, r, http.StatusBadRequest, 0, "Invalid Request Body")
		return
	}

	update := userstore.ProfileUpdate{Username: req.Username, Description: req.Description}
	if req.ProfilePicture != nil {
		update.ProfilePicture = []byte(*req.ProfilePicture)
	}

	if err := rt.store.UpdateProfile(req.UID, update); err != nil {
		if err == userstore.ErrNotFound {
			rt.writeErrorBody(w, r, http.StatusBadRequest, 2, "User not found")
			return
		}
		rt.writeErrorBody(w, r, http.StatusBadRequest, 3, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (rt *Router) handleDeleteUser(w http.ResponseWriter, r *http.Request, rest []string) {
	if len(rest) == 0 {
		rt.writeErrorBody(w, r, http.StatusBadRequest, 0, "Invalid Request Body")
		return
	}
	uid := rest[0]

	var err error
	if len(rest) >= 2 {
		// rest[1] is already percent-decoded (see ServeHTTP): a
		// signature_key containing "/" must be sent as "%2F" so it
		// survives path splitting intact.
		err = rt.store.DeletePubKey(uid, rest[1])
	} else {
		err = rt.store.Delete(uid)
	}

	if err != nil {
		if err == userstore.ErrNotFound {
			rt.writeErrorBody(w, r, http.StatusBadRequest, 2, "User not found")
			return
		}
		rt.writeErrorBody(w, r, http.StatusBadRequest, 3, err.Error())
		return
	}
	if len(rest) >= 2 {
		rt.log.WithContext(r.Context()).Info("public key deleted", logger.UID(uid))
	} else {
		rt.log.WithContext(r.Context()).Info("user deleted", logger.UID(uid))
	}
	w.WriteHeader(http.StatusOK)
}

func decodeStrict(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (rt *Router) writeErrorBody(w http.ResponseWriter, r *http.Request, status, code int, message string) {
	rt.log.WithContext(r.Context()).Error(message, logger.Int("code", code))
	writeJSON(w, status, errorBody{Code: code, Message: message})
}
