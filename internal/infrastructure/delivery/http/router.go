// Package httprouter wires the HTTP surface: batch submission, status
// polling, archive download and operational endpoints.
package httprouter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"reelbatch/internal/archive"
	"reelbatch/internal/consts"
	"reelbatch/internal/entity"
	"reelbatch/internal/errs"
	"reelbatch/internal/infrastructure/delivery/http/middleware"
	"reelbatch/internal/infrastructure/delivery/http/request"
	"reelbatch/internal/infrastructure/delivery/http/response"
	"reelbatch/internal/observability"
	"reelbatch/internal/service"
)

type Router struct {
	*http.ServeMux
	log         *slog.Logger
	globalChain []func(http.Handler) http.Handler
	routeChain  []func(http.Handler) http.Handler
	isSubRouter bool
	svc         service.Batch
	metrics     *observability.Metrics
}

func New(log *slog.Logger, svc service.Batch, metrics *observability.Metrics) *Router {
	r := &Router{
		ServeMux: http.NewServeMux(),
		log:      log.With(slog.String("package", "httprouter")),
		svc:      svc,
		metrics:  metrics,
	}

	r.SetGlobalMiddlewares()
	r.SetRoutes()

	return r
}

func (r *Router) Use(mw ...func(http.Handler) http.Handler) {
	if r.isSubRouter {
		r.routeChain = append(r.routeChain, mw...)
	} else {
		r.globalChain = append(r.globalChain, mw...)
	}
}

func (r *Router) Group(fn func(r *Router)) {
	subRouter := &Router{
		isSubRouter: true,
		routeChain:  slices.Clone(r.routeChain),
		ServeMux:    r.ServeMux,
	}

	fn(subRouter)
}

func (r *Router) HandleFunc(pattern string, h http.HandlerFunc) {
	r.Handle(pattern, h)
}

func (r *Router) Handle(pattern string, h http.Handler) {
	for _, mw := range slices.Backward(r.routeChain) {
		h = mw(h)
	}
	r.ServeMux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var h http.Handler = r.ServeMux

	for _, mw := range slices.Backward(r.globalChain) {
		h = mw(h)
	}

	h.ServeHTTP(w, req)
}

func (r *Router) SetGlobalMiddlewares() {
	r.Use(
		middleware.Recoverer,
		middleware.RequestID,
		middleware.Logger,
		middleware.Metrics(r.metrics),
	)
}

func (r *Router) SetRoutes() {
	r.SetRoutesHealthcheck()
	r.SetRoutesBatch()
	r.SetRoutesMetrics()
}

func (r *Router) SetRoutesHealthcheck() {
	r.HandleFunc("GET /v1/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
}

func (ro *Router) SetRoutesBatch() {
	batchRouter := &Router{
		ServeMux: http.NewServeMux(),
	}
	batchRouter.HandleFunc("POST /", ro.CreateBatch)
	batchRouter.HandleFunc("GET /", ro.GetBatches)
	batchRouter.HandleFunc("GET /{id}", ro.GetBatch)
	batchRouter.HandleFunc("GET /{id}/archive", ro.GetArchive)

	ro.Handle("/v1/batches", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.URL.Path = "/"
		batchRouter.ServeMux.ServeHTTP(w, r)
	}))
	ro.Handle("/v1/batches/", http.StripPrefix("/v1/batches", batchRouter))
}

func (ro *Router) SetRoutesMetrics() {
	ro.Handle("GET /metrics", ro.metrics.Handler())
}

func (ro *Router) CreateBatch(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With("handler", "CreateBatch")
	ctx := r.Context()

	var in request.CreateBatch
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.ErrorContext(ctx, consts.RespInvalidRequestBody, slog.Any("error", err))
		response.BadRequest(w, consts.RespInvalidRequestBody, err)

		return
	}

	if err := in.Validate(); err != nil {
		log.ErrorContext(ctx, consts.RespUnprocessableEntity, slog.Any("error", err))
		response.UnprocessableEntity(w, consts.RespUnprocessableEntity, err)

		return
	}

	batch, err := ro.svc.Enqueue(ctx, in.Input, in.Cookies, in.Format)

	switch {
	case err == nil:
	case errors.Is(err, errs.ErrEmptyBatch):
		log.DebugContext(ctx, consts.RespNothingToDo)
		response.UnprocessableEntity(w, consts.RespNothingToDo, err)

		return
	case errors.Is(err, errs.ErrNoCredential), errors.Is(err, errs.ErrCookieTooShort):
		log.WarnContext(ctx, consts.RespAuthRequired, slog.Any("error", err))
		response.Unauthorized(w, consts.RespAuthRequired, err)

		return
	case errors.Is(err, errs.ErrInvalidArchiveFormat):
		log.ErrorContext(ctx, consts.RespUnprocessableEntity, slog.Any("error", err))
		response.UnprocessableEntity(w, consts.RespUnprocessableEntity, err)

		return
	case errors.Is(err, errs.ErrBatchAlreadyExists):
		log.DebugContext(ctx, consts.RespBatchAlreadyExists, slog.Any("error", err))
		response.Conflict(w, consts.RespBatchAlreadyExists, batch, nil)

		return
	default:
		log.ErrorContext(ctx, consts.RespBatchEnqueueFail, slog.Any("error", err))
		response.InternalServerError(w, consts.RespBatchEnqueueFail, nil, err)

		return
	}

	log.InfoContext(ctx, consts.RespBatchEnqueued, "batch", batch)

	response.Accepted(w, consts.RespBatchEnqueued, batch, nil)
}

func (ro *Router) GetBatch(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With("handler", "GetBatch")

	ctx, cancel := context.WithTimeout(r.Context(), consts.DefaultHandlerTimeout)
	defer cancel()

	id := r.PathValue("id")
	if id == "" {
		log.ErrorContext(ctx, consts.RespQueryParamMissing)
		response.BadRequest(w, consts.RespQueryParamMissing, nil)

		return
	}

	batch := ro.svc.GetByID(ctx, id)
	if batch == nil {
		log.DebugContext(ctx, consts.RespBatchNotFound, slog.String("batch_id", id))
		response.NotFound(w, consts.RespBatchNotFound)

		return
	}

	response.OK(w, consts.RespBatchRetrieved, batch, nil)
}

func (ro *Router) GetBatches(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With("handler", "GetBatches")

	ctx, cancel := context.WithTimeout(r.Context(), consts.DefaultHandlerTimeout)
	defer cancel()

	batches, err := ro.svc.GetAll(ctx)
	if errors.Is(err, errs.ErrNoBatches) {
		log.DebugContext(ctx, consts.RespNoBatches)
		response.NoContent(w)

		return
	}

	if err != nil {
		log.ErrorContext(ctx, "get batches failed", slog.Any("error", err))
		response.InternalServerError(w, "get batches failed", nil, err)

		return
	}

	response.OK(w, consts.RespBatchesRetrieved, batches, nil)
}

// GetArchive serves the finished batch's archive. The archive only exists
// once the batch is done; before that the client gets a conflict, after a
// fully failed batch it gets not found.
func (ro *Router) GetArchive(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With("handler", "GetArchive")
	ctx := r.Context()

	id := r.PathValue("id")

	batch := ro.svc.GetByID(ctx, id)
	if batch == nil {
		log.DebugContext(ctx, consts.RespBatchNotFound, slog.String("batch_id", id))
		response.NotFound(w, consts.RespBatchNotFound)

		return
	}

	if batch.Status != entity.BatchStatusDone {
		log.DebugContext(ctx, consts.RespBatchNotDone, "batch", batch)
		response.Conflict(w, consts.RespBatchNotDone, batch, nil)

		return
	}

	if batch.ArchivePath == "" {
		log.DebugContext(ctx, consts.RespNoArchive, "batch", batch)
		response.NotFound(w, consts.RespNoArchive)

		return
	}

	filename := batch.UUID + archive.Ext(batch.ArchiveFormat)
	w.Header().Set("Content-Type", archive.ContentType(batch.ArchiveFormat))
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	http.ServeFile(w, r, batch.ArchivePath)
}
