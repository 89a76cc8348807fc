// Package httpapi wires the Message Delivery Engine's five HTTP operations
// onto a net/http mux: send_message, get_messages, delete_messages, share,
// and GET share/<slug>.
package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jaem-project/jaem-server/internal/jaemerr"
	"github.com/jaem-project/jaem-server/internal/logger"
	"github.com/jaem-project/jaem-server/internal/metrics"
	"github.com/jaem-project/jaem-server/mde/authproof"
	"github.com/jaem-project/jaem-server/mde/mailbox"
	"github.com/jaem-project/jaem-server/mde/share"
	"github.com/jaem-project/jaem-server/mde/staging"
)

// MailboxGrace is how long a retrieved mailbox remains eligible for
// deletion before the janitor invalidates the staging entry.
const MailboxGrace = 20 * time.Second

// ShareTTL is how long an unretrieved share blob lives before GC.
const ShareTTL = 600 * time.Second

// Router dispatches MDE HTTP requests to the mailbox and share stores,
// gating get_messages/delete_messages on a verified AuthProof.
type Router struct {
	mailboxes     *mailbox.Store
	shares        *share.Store
	staging       *staging.Table
	shareStaging  *staging.Table
	log           logger.Logger
	now           func() time.Time
}

// New builds a Router over the given mailbox store, share store, mailbox
// deletion-staging table, and share-GC staging table. shareStaging records
// each share's creation time so the janitor can sweep it after ShareTTL;
// pass a shared *staging.Table here and to the janitor that sweeps it.
func New(mailboxes *mailbox.Store, shares *share.Store, mailboxStaging, shareStaging *staging.Table, log logger.Logger) *Router {
	if log == nil {
		log = logger.Default()
	}
	return &Router{
		mailboxes:    mailboxes,
		shares:       shares,
		staging:      mailboxStaging,
		shareStaging: shareStaging,
		log:          log,
		now:          time.Now,
	}
}

// ServeHTTP implements http.Handler, attaching a request ID and dispatching
// on method + path.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()
	ctx := logger.WithRequestID(r.Context(), requestID)
	r = r.WithContext(ctx)

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/send_message":
		rt.handleSendMessage(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/get_messages":
		rt.handleGetMessages(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/delete_messages":
		rt.handleDeleteMessages(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/share":
		rt.handleShare(w, r)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/share/"):
		rt.handleGetShare(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (rt *Router) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		rt.writeError(w, r.Context(), jaemerr.Malformed("failed to read request body", err))
		return
	}

	if err := rt.mailboxes.Append(body); err != nil {
		rt.writeError(w, r.Context(), jaemerr.Malformed(err.Error(), err))
		return
	}
	metrics.MDEMessagesSent.Inc()
	w.WriteHeader(http.StatusOK)
}

func (rt *Router) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	proof, ok, jerr := rt.verifyProof(r)
	if jerr != nil {
		rt.writeError(w, r.Context(), jerr)
		return
	}
	if !ok {
		metrics.MDEAuthFailures.Inc()
		rt.writeError(w, r.Context(), jaemerr.AuthFailure("auth proof verification failed", nil))
		return
	}

	data, err := rt.mailboxes.ReadAll(proof.PublicKey)
	if err != nil {
		rt.writeError(w, r.Context(), jaemerr.Storage("failed to read mailbox", err))
		return
	}

	rt.staging.Insert(proof.PublicKey, staging.Entry{Timestamp: rt.now().Unix()})
	metrics.MDEMessagesRetrieved.Inc()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (rt *Router) handleDeleteMessages(w http.ResponseWriter, r *http.Request) {
	proof, ok, jerr := rt.verifyProof(r)
	if jerr != nil {
		rt.writeError(w, r.Context(), jerr)
		return
	}
	if !ok {
		metrics.MDEAuthFailures.Inc()
		rt.writeError(w, r.Context(), jaemerr.AuthFailure("auth proof verification failed", nil))
		return
	}

	if _, staged := rt.staging.Get(proof.PublicKey); !staged {
		rt.writeError(w, r.Context(), jaemerr.Conflict("no pending deletion for this mailbox", nil))
		return
	}

	if err := rt.mailboxes.Delete(proof.PublicKey); err != nil {
		rt.writeError(w, r.Context(), jaemerr.Storage("failed to delete mailbox", err))
		return
	}

	rt.staging.Remove(proof.PublicKey)
	metrics.MDEMailboxesDeleted.Inc()
	rt.log.WithContext(r.Context()).Info("mailbox deleted", logger.Recipient(proof.PublicKey))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// verifyProof reads the request body as an AuthProof and verifies it
// against the current time. The returned *jaemerr.Error, if non-nil,
// distinguishes a malformed buffer from a verification failure.
func (rt *Router) verifyProof(r *http.Request) (*authproof.Proof, bool, *jaemerr.Error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, false, jaemerr.Malformed("failed to read request body", err)
	}

	proof, ok, verr := authproof.ParseAndVerify(body, rt.now())
	if verr != nil {
		return nil, false, jaemerr.Malformed(verr.Error(), verr)
	}
	return proof, ok, nil
}

func (rt *Router) handleShare(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		rt.writeError(w, r.Context(), jaemerr.Malformed("failed to read request body", err))
		return
	}

	slug, err := rt.shares.Put(body)
	if err != nil {
		rt.writeError(w, r.Context(), jaemerr.Storage("failed to store share", err))
		return
	}
	rt.shareStaging.Insert([]byte(slug), staging.Entry{Timestamp: rt.now().Unix()})
	metrics.MDESharesCreated.Inc()
	rt.log.WithContext(r.Context()).Info("share created", logger.Slug(slug))

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(slug))
}

func (rt *Router) handleGetShare(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimPrefix(r.URL.Path, "/share/")
	data, err := rt.shares.Get(slug)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// errorBody is the {code,message} JSON shape writeError sends. Unknown
// routes and missing shares get http.NotFound's plain-text 404 instead.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (rt *Router) writeError(w http.ResponseWriter, ctx context.Context, jerr *jaemerr.Error) {
	rt.log.WithContext(ctx).Error(jerr.Message, logger.String("code", string(jerr.Code)), logger.Err(jerr.Cause))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(jerr.Status)
	_ = json.NewEncoder(w).Encode(errorBody{Code: string(jerr.Code), Message: jerr.Message})
}
