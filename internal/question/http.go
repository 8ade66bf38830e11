package question

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	apierrors "github.com/gokatarajesh/quizbank/pkg/http/errors"
)

const maxBatchCount = 20

// AcquisitionAPI is the pipeline surface used by the HTTP handlers.
type AcquisitionAPI interface {
	Acquirer
	Refiller
}

// HTTPHandlers exposes topic registration, on-demand acquisition and quiz serving.
type HTTPHandlers struct {
	pipeline       AcquisitionAPI
	topics         TopicRegistry
	store          QuestionStore
	service        *Service
	canRefill      func(*http.Request) bool
	requestTimeout time.Duration
	logger         zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for question endpoints.
func NewHTTPHandlers(pipeline AcquisitionAPI, topics TopicRegistry, store QuestionStore, service *Service, requestTimeout time.Duration, logger zerolog.Logger) *HTTPHandlers {
	if requestTimeout <= 0 {
		requestTimeout = 60 * time.Second
	}
	return &HTTPHandlers{
		pipeline:       pipeline,
		topics:         topics,
		store:          store,
		service:        service,
		requestTimeout: requestTimeout,
		logger:         logger.With().Str("component", "question_http").Logger(),
	}
}

// WithRefillPolicy limits which quiz requests may top a short topic up through
// the provider. Requests the policy rejects get only what the bank holds.
// Without a policy every request may refill.
func (h *HTTPHandlers) WithRefillPolicy(allow func(*http.Request) bool) *HTTPHandlers {
	h.canRefill = allow
	return h
}

// Register mounts the handlers on mux. read wraps query routes, write wraps
// routes that register topics or call the provider.
func (h *HTTPHandlers) Register(mux *http.ServeMux, read, write func(http.Handler) http.Handler) {
	passthrough := func(next http.Handler) http.Handler { return next }
	if read == nil {
		read = passthrough
	}
	if write == nil {
		write = passthrough
	}
	mux.Handle("GET /v1/topics", read(http.HandlerFunc(h.ListTopics)))
	mux.Handle("GET /v1/topics/{topic}/quiz", read(http.HandlerFunc(h.Quiz)))
	mux.Handle("POST /v1/topics", write(http.HandlerFunc(h.AddTopic)))
	mux.Handle("POST /v1/topics/{topic}/questions", write(http.HandlerFunc(h.AddQuestion)))
	mux.Handle("POST /v1/topics/{topic}/questions/generate", write(http.HandlerFunc(h.Generate)))
	mux.Handle("POST /v1/topics/{topic}/questions/batch", write(http.HandlerFunc(h.GenerateBatch)))
	mux.Handle("POST /v1/questions/random", write(http.HandlerFunc(h.GenerateRandom)))
}

type addTopicRequest struct {
	Name string `json:"name"`
}

// AddTopic handles POST /v1/topics
func (h *HTTPHandlers) AddTopic(w http.ResponseWriter, r *http.Request) {
	var req addTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.RespondBadRequest(w, apierrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if _, err := NormalizeTopic(req.Name); err != nil {
		apierrors.RespondValidationError(w, apierrors.ErrCodeInvalidTopic, "name must be a non-empty topic of at most 120 characters", "name")
		return
	}

	topic, created, err := h.topics.EnsureTopic(r.Context(), req.Name)
	if err != nil {
		h.respondAcquireError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, map[string]interface{}{
		"topic":   topic,
		"created": created,
	})
}

type addQuestionRequest struct {
	Prompt     string   `json:"prompt"`
	Options    []string `json:"options"`
	Correct    string   `json:"correct"`
	Difficulty string   `json:"difficulty"`
}

// AddQuestion handles POST /v1/topics/{topic}/questions
func (h *HTTPHandlers) AddQuestion(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		apierrors.RespondServiceUnavailable(w, apierrors.ErrCodeFeatureNotAvailable, "Question storage is not configured")
		return
	}
	var req addQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.RespondBadRequest(w, apierrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if len(req.Options) != len(OptionLabels) {
		apierrors.RespondValidationError(w, apierrors.ErrCodeValidationFailed, "exactly 4 options are required", "options")
		return
	}

	c := Candidate{Prompt: req.Prompt, Correct: req.Correct, Difficulty: req.Difficulty}
	for i, text := range req.Options {
		c.Options[i] = Option{Label: OptionLabels[i], Text: text}
	}
	c, err := ValidateCandidate(c)
	if err != nil {
		apierrors.RespondValidationError(w, apierrors.ErrCodeValidationFailed, err.Error(), "question")
		return
	}

	topic, _, err := h.topics.EnsureTopic(r.Context(), r.PathValue("topic"))
	if err != nil {
		h.respondAcquireError(w, r, err)
		return
	}
	q, err := h.store.InsertQuestion(r.Context(), topic, c, SourceManual)
	if err != nil {
		h.respondAcquireError(w, r, err)
		return
	}
	h.logger.Info().Str("topic", q.Topic).Str("question_id", q.ID).Msg("question added manually")
	respondJSON(w, http.StatusCreated, q)
}

// ListTopics handles GET /v1/topics
func (h *HTTPHandlers) ListTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.topics.ListTopics(r.Context())
	if err != nil {
		h.respondAcquireError(w, r, &StorageError{Op: "list topics", Err: err})
		return
	}
	if topics == nil {
		topics = []Topic{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"topics": topics})
}

// Generate handles POST /v1/topics/{topic}/questions/generate
func (h *HTTPHandlers) Generate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	q, err := h.pipeline.AcquireOne(ctx, r.PathValue("topic"))
	if err != nil {
		h.respondAcquireError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, q)
}

// GenerateBatch handles POST /v1/topics/{topic}/questions/batch?count=N
func (h *HTTPHandlers) GenerateBatch(w http.ResponseWriter, r *http.Request) {
	count, ok := queryCount(r, 1, maxBatchCount)
	if !ok {
		apierrors.RespondValidationError(w, apierrors.ErrCodeValidationFailed, "count must be between 1 and "+strconv.Itoa(maxBatchCount), "count")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	qs, err := h.pipeline.AcquireMany(ctx, r.PathValue("topic"), count)
	if err != nil {
		h.respondAcquireError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{"questions": qs})
}

// GenerateRandom handles POST /v1/questions/random
func (h *HTTPHandlers) GenerateRandom(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	q, err := h.pipeline.AcquireAny(ctx)
	if err != nil {
		h.respondAcquireError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, q)
}

// Quiz handles GET /v1/topics/{topic}/quiz?count=N&seed=S
func (h *HTTPHandlers) Quiz(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		apierrors.RespondServiceUnavailable(w, apierrors.ErrCodeFeatureNotAvailable, "Quiz serving is not configured")
		return
	}
	count, ok := queryCount(r, 1, h.service.MaxPackSize())
	if !ok {
		apierrors.RespondValidationError(w, apierrors.ErrCodeValidationFailed, "count must be between 1 and "+strconv.Itoa(h.service.MaxPackSize()), "count")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	pack, err := h.service.FetchPack(ctx, PackRequest{
		Topic:    r.PathValue("topic"),
		Count:    count,
		Seed:     r.URL.Query().Get("seed"),
		NoRefill: h.canRefill != nil && !h.canRefill(r),
	})
	if err != nil {
		h.respondAcquireError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, pack)
}

func (h *HTTPHandlers) respondAcquireError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidTopic):
		apierrors.RespondBadRequest(w, apierrors.ErrCodeInvalidTopic, "Topic must be non-empty")
	case errors.Is(err, ErrTopicNotFound):
		apierrors.RespondNotFound(w, apierrors.ErrCodeTopicNotFound, "Topic not found")
	case errors.Is(err, ErrDuplicate):
		apierrors.RespondError(w, http.StatusConflict, apierrors.ErrCodeDuplicateQuestion, "Question already exists for this topic")
	case errors.Is(err, ErrInsufficientQuestions):
		apierrors.RespondError(w, http.StatusConflict, apierrors.ErrCodeInsufficientQuestions, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		apierrors.RespondError(w, http.StatusGatewayTimeout, apierrors.ErrCodeTimeout, "Question generation timed out")
	case errors.Is(err, context.Canceled):
		h.logger.Debug().Str("path", r.URL.Path).Msg("request cancelled by client")
	case IsStorageFailure(err):
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("storage failure")
		apierrors.RespondServiceUnavailable(w, apierrors.ErrCodeStorageFailure, "Question storage unavailable")
	case errors.Is(err, ErrExhausted):
		h.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("generation exhausted")
		apierrors.RespondError(w, http.StatusBadGateway, apierrors.ErrCodeGenerationExhausted, "Provider did not produce a usable question")
	default:
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		apierrors.RespondInternalError(w, "Internal error")
	}
}

func queryCount(r *http.Request, min, max int) (int, bool) {
	raw := r.URL.Query().Get("count")
	if raw == "" {
		return min, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min || n > max {
		return 0, false
	}
	return n, true
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
