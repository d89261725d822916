package shoppinglist

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/danielnirn/shopping-api/internal/micro"
	"github.com/go-chi/chi/v5"
)

const (
	basePath = "/api"

	// maxBodyBytes mirrors the usual 100kb JSON body limit.
	maxBodyBytes = 100 << 10
)

const internalErrorMessage = "Internal server error"

// MessageResponse is the payload returned by delete endpoints.
type MessageResponse struct {
	Message string `json:"message"`
}

// Handler wires HTTP routes for shopping lists and their tasks.
type Handler struct {
	service *Service
	logger  micro.Logger
	env     string
	started time.Time
}

// NewHandler constructs the HTTP handler. env is reported by /api/health.
func NewHandler(service *Service, logger micro.Logger, env string) *Handler {
	if logger == nil {
		logger = micro.NewNoopLogger()
	}
	if service == nil {
		service = NewService(nil, logger, nil)
	}
	return &Handler{service: service, logger: logger, env: env, started: time.Now()}
}

// RegisterRoutes implements micro.HTTPModule.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route(basePath, func(r chi.Router) {
		r.Get("/health", micro.StatusHandler(h.env, h.started))

		r.Route("/shopping-lists", func(r chi.Router) {
			r.Get("/", h.handleList)
			r.Post("/", h.handleCreate)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.handleGet)
				r.Patch("/", h.handleUpdate)
				r.Delete("/", h.handleDelete)
				r.Route("/tasks", func(r chi.Router) {
					r.Get("/", h.handleTasks)
					r.Post("/", h.handleAddTask)
					r.Patch("/{taskId}", h.handleUpdateTask)
					r.Delete("/{taskId}", h.handleDeleteTask)
				})
			})
		})
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	lists, err := h.service.List(r.Context())
	if err != nil {
		h.handleDomainError(w, err, "list_failed")
		return
	}
	micro.RespondWithLinks(w, http.StatusOK, lists, nil, micro.CollectionLinksFor("shopping-list", basePath)...)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleDomainError(w, err, "get_failed")
		return
	}
	micro.RespondWithLinks(w, http.StatusOK, list, nil, micro.RESTfulLinksFor(list, basePath)...)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload CreateShoppingList
	if !h.decode(w, r, &payload) {
		return
	}

	list, err := h.service.Create(r.Context(), payload)
	if err != nil {
		h.handleDomainError(w, err, "create_failed")
		return
	}
	micro.RespondWithLinks(w, http.StatusCreated, list, nil, micro.RESTfulLinksFor(list, basePath)...)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var payload UpdateShoppingList
	if !h.decode(w, r, &payload) {
		return
	}

	list, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), payload)
	if err != nil {
		h.handleDomainError(w, err, "update_failed")
		return
	}
	micro.RespondWithLinks(w, http.StatusOK, list, nil, micro.RESTfulLinksFor(list, basePath)...)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleDomainError(w, err, "delete_failed")
		return
	}
	micro.RespondWithLinks(w, http.StatusOK, MessageResponse{Message: "Shopping list deleted successfully"}, nil,
		micro.CollectionLinksFor("shopping-list", basePath)...)
}

func (h *Handler) handleTasks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tasks, err := h.service.Tasks(r.Context(), id)
	if err != nil {
		h.handleDomainError(w, err, "tasks_failed")
		return
	}
	micro.RespondWithLinks(w, http.StatusOK, tasks, nil, micro.NestedCollectionLinksFor(listRef(id), "task", basePath)...)
}

func (h *Handler) handleAddTask(w http.ResponseWriter, r *http.Request) {
	var payload NewTask
	if !h.decode(w, r, &payload) {
		return
	}

	id := chi.URLParam(r, "id")
	task, err := h.service.AddTask(r.Context(), id, payload)
	if err != nil {
		h.handleDomainError(w, err, "add_task_failed")
		return
	}
	micro.RespondWithLinks(w, http.StatusCreated, task, nil, micro.ChildLinksFor(listRef(id), task, basePath)...)
}

func (h *Handler) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := parseTaskID(r)
	if !ok {
		h.handleDomainError(w, ErrTaskNotFound, "update_task_failed")
		return
	}
	var payload UpdateTask
	if !h.decode(w, r, &payload) {
		return
	}

	id := chi.URLParam(r, "id")
	task, err := h.service.UpdateTask(r.Context(), id, taskID, payload)
	if err != nil {
		h.handleDomainError(w, err, "update_task_failed")
		return
	}
	micro.RespondWithLinks(w, http.StatusOK, task, nil, micro.ChildLinksFor(listRef(id), task, basePath)...)
}

func (h *Handler) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := parseTaskID(r)
	if !ok {
		h.handleDomainError(w, ErrTaskNotFound, "delete_task_failed")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.service.DeleteTask(r.Context(), id, taskID); err != nil {
		h.handleDomainError(w, err, "delete_task_failed")
		return
	}
	micro.RespondWithLinks(w, http.StatusOK, MessageResponse{Message: "Task deleted successfully"}, nil,
		micro.NestedCollectionLinksFor(listRef(id), "task", basePath)...)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, into any) bool {
	defer r.Body.Close()

	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(into); err != nil {
		micro.Error(w, http.StatusBadRequest, "invalid_payload", "Malformed JSON payload")
		return false
	}
	return true
}

func (h *Handler) handleDomainError(w http.ResponseWriter, err error, code string) {
	var details micro.ValidationErrors
	switch {
	case errors.Is(err, ErrTaskNotFound):
		micro.Error(w, http.StatusNotFound, "not_found", "Task not found")
	case errors.Is(err, ErrNotFound):
		micro.Error(w, http.StatusNotFound, "not_found", "Shopping list not found")
	case errors.Is(err, ErrValidation):
		errors.As(err, &details)
		micro.Error(w, http.StatusBadRequest, "validation_error", details.Error(), details...)
	default:
		h.logger.Error("request failed", "code", code, "error", err)
		micro.Error(w, http.StatusInternalServerError, code, internalErrorMessage)
	}
}

func parseTaskID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "taskId"))
	return id, err == nil
}

// listRef lets link builders address a list known only by its path id.
type listRef string

func (l listRef) GetID() string        { return string(l) }
func (l listRef) ResourceType() string { return "shopping-list" }
