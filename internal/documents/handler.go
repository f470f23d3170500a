package documents

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/gymplanner/internal/auth"
	"github.com/2beens/gymplanner/internal/remote"
	"github.com/2beens/gymplanner/internal/telemetry/metrics"
	"github.com/2beens/gymplanner/internal/telemetry/tracing"
	"github.com/2beens/gymplanner/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=documents_test

type documentsRepo interface {
	Get(ctx context.Context, userID string) (*remote.Document, error)
	Put(ctx context.Context, userID string, doc remote.Document) error
	ListPending(ctx context.Context) ([]PendingExercise, error)
}

// label values of CounterDocumentsStored
const (
	storedOK       = "ok"
	storedStale    = "stale"
	storedInvalid  = "invalid"
	storedTooLarge = "too_large"
	storedFailed   = "failed"
)

const gifDataURLPrefix = "data:image/gif;base64,"

var unsafeFileNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

type Handler struct {
	repo             documentsRepo
	metricsManager   *metrics.Manager
	maxDocumentBytes int64
}

func NewHandler(repo documentsRepo, metricsManager *metrics.Manager, maxDocumentBytes int64) *Handler {
	return &Handler{
		repo:             repo,
		metricsManager:   metricsManager,
		maxDocumentBytes: maxDocumentBytes,
	}
}

func (handler *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc(remote.DocumentPath, handler.HandleGet).Methods("GET", "OPTIONS").Name("get-document")
	r.HandleFunc(remote.DocumentPath, handler.HandlePut).Methods("PUT", "OPTIONS").Name("put-document")
	r.HandleFunc("/admin/pending", handler.HandleListPending).Methods("GET", "OPTIONS").Name("list-pending")
	r.HandleFunc("/admin/pending/{userId}/{exerciseId}/gif", handler.HandlePendingGif).Methods("GET", "OPTIONS").Name("pending-gif")
}

func sessionOrFail(w http.ResponseWriter, r *http.Request) (*auth.Session, bool) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return nil, false
	}
	return session, true
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.documents.get")
	defer span.End()

	session, ok := sessionOrFail(w, r)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("user.id", session.UserID))

	doc, err := handler.repo.Get(ctx, session.UserID)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "no document", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Errorf("get document of %s: %s", session.UserID, err)
		span.RecordError(err)
		http.Error(w, "error, failed to get document", http.StatusInternalServerError)
		return
	}

	pkg.SendJsonResponse(w, http.StatusOK, doc)
}

func (handler *Handler) HandlePut(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.documents.put")
	defer span.End()

	session, ok := sessionOrFail(w, r)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("user.id", session.UserID))

	var doc remote.Document
	body := http.MaxBytesReader(w, r.Body, handler.maxDocumentBytes)
	if err := json.NewDecoder(body).Decode(&doc); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			handler.countStored(storedTooLarge)
			http.Error(w, "error, document too large", http.StatusRequestEntityTooLarge)
			return
		}
		log.Tracef("put document, unmarshal json: %s", err)
		handler.countStored(storedInvalid)
		http.Error(w, "error, invalid document", http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("last_synced", doc.LastSynced))

	err := handler.repo.Put(ctx, session.UserID, doc)
	switch {
	case errors.Is(err, ErrInvalidDocument):
		handler.countStored(storedInvalid)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, ErrStalePush):
		log.Debugf("stale push from %s [%s]", session.UserID, doc.LastSynced)
		handler.countStored(storedStale)
		http.Error(w, "error, a newer document is stored", http.StatusConflict)
		return
	case err != nil:
		log.Errorf("put document of %s: %s", session.UserID, err)
		span.RecordError(err)
		handler.countStored(storedFailed)
		http.Error(w, "error, failed to store document", http.StatusInternalServerError)
		return
	}

	handler.countStored(storedOK)
	w.WriteHeader(http.StatusNoContent)
}

func (handler *Handler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.documents.pending")
	defer span.End()

	pending, err := handler.repo.ListPending(ctx)
	if err != nil {
		log.Errorf("list pending exercises: %s", err)
		span.RecordError(err)
		http.Error(w, "error, failed to list pending exercises", http.StatusInternalServerError)
		return
	}
	if pending == nil {
		pending = []PendingExercise{}
	}

	pkg.SendJsonResponse(w, http.StatusOK, pending)
}

// HandlePendingGif serves the GIF embedded in a submitted custom exercise as a download.
func (handler *Handler) HandlePendingGif(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.documents.pending.gif")
	defer span.End()

	vars := mux.Vars(r)
	userID, exerciseID := vars["userId"], vars["exerciseId"]
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("exercise.id", exerciseID),
	)

	doc, err := handler.repo.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "no document", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Errorf("get document of %s: %s", userID, err)
		http.Error(w, "error, failed to get document", http.StatusInternalServerError)
		return
	}

	for _, ce := range doc.CustomExercises {
		if ce.ID != exerciseID {
			continue
		}
		if !strings.HasPrefix(ce.GifURL, gifDataURLPrefix) {
			http.Error(w, "exercise has no embedded gif", http.StatusNotFound)
			return
		}
		gif, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(ce.GifURL, gifDataURLPrefix))
		if err != nil {
			log.Warnf("decode gif of %s/%s: %s", userID, exerciseID, err)
			http.Error(w, "error, malformed gif", http.StatusUnprocessableEntity)
			return
		}

		fileName := unsafeFileNameChars.ReplaceAllString(ce.Name, "_")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.gif"`, fileName))
		pkg.WriteResponseBytesOK(w, pkg.ContentType.GIF, gif)
		return
	}

	http.Error(w, "exercise not found", http.StatusNotFound)
}

func (handler *Handler) countStored(result string) {
	if handler.metricsManager == nil {
		return
	}
	handler.metricsManager.CounterDocumentsStored.WithLabelValues(result).Inc()
}
