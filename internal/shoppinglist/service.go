package shoppinglist

import (
	"context"
	"fmt"

	"github.com/danielnirn/shopping-api/internal/micro"
)

// Service implements the list and task operations on top of a Store. Every
// mutation loads the aggregate, changes it in memory and saves it whole.
type Service struct {
	store  Store
	log    micro.Logger
	tracer micro.Tracer
}

// NewService builds a Service. A nil store falls back to an in-memory one;
// nil logger and tracer become no-ops.
func NewService(store Store, logger micro.Logger, tracer micro.Tracer) *Service {
	if store == nil {
		store = NewMemoryStore()
	}
	if logger == nil {
		logger = micro.NewNoopLogger()
	}
	if tracer == nil {
		tracer = micro.NoopTracer{}
	}
	return &Service{store: store, log: logger, tracer: tracer}
}

// List returns every stored list.
func (s *Service) List(ctx context.Context) (lists []*ShoppingList, err error) {
	ctx, span := s.tracer.Start(ctx, "shoppinglist.list", nil)
	defer func() { span.End(err) }()

	return s.store.FindAll(ctx)
}

// Get returns the list with id, or ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (list *ShoppingList, err error) {
	ctx, span := s.tracer.Start(ctx, "shoppinglist.get", map[string]any{"list_id": id})
	defer func() { span.End(err) }()

	return s.store.FindByID(ctx, id)
}

// Create validates the input and stores a new list with its defaults applied.
func (s *Service) Create(ctx context.Context, in CreateShoppingList) (list *ShoppingList, err error) {
	ctx, span := s.tracer.Start(ctx, "shoppinglist.create", nil)
	defer func() { span.End(err) }()

	if err := ValidateCreate(in); err != nil {
		return nil, err
	}
	list, err = s.store.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	s.log.Info("shopping list created", "id", list.GetID(), "tasks", len(list.Tasks))
	return list, nil
}

// Update applies the fields present in the payload. An empty payload returns
// the stored list untouched.
func (s *Service) Update(ctx context.Context, id string, update UpdateShoppingList) (list *ShoppingList, err error) {
	ctx, span := s.tracer.Start(ctx, "shoppinglist.update", map[string]any{"list_id": id})
	defer func() { span.End(err) }()

	if err := validateUpdate(update); err != nil {
		return nil, err
	}
	list, err = s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if update.empty() {
		return list, nil
	}

	if update.Name != nil {
		list.Name = *update.Name
	}
	if update.Date != nil {
		list.Date = storeTime(*update.Date)
	}
	if update.Completed != nil {
		list.Completed = *update.Completed
	}
	if err := s.save(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// Delete removes the list with id, or returns ErrNotFound.
func (s *Service) Delete(ctx context.Context, id string) (err error) {
	ctx, span := s.tracer.Start(ctx, "shoppinglist.delete", map[string]any{"list_id": id})
	defer func() { span.End(err) }()

	if err := s.store.DeleteByID(ctx, id); err != nil {
		return err
	}
	s.log.Info("shopping list deleted", "id", id)
	return nil
}

// Tasks returns the tasks of a list in stored order.
func (s *Service) Tasks(ctx context.Context, listID string) (tasks []Task, err error) {
	ctx, span := s.tracer.Start(ctx, "shoppinglist.tasks", map[string]any{"list_id": listID})
	defer func() { span.End(err) }()

	list, err := s.store.FindByID(ctx, listID)
	if err != nil {
		return nil, err
	}
	return list.Tasks, nil
}

// AddTask appends the task as given. Ids are not checked for uniqueness.
func (s *Service) AddTask(ctx context.Context, listID string, in NewTask) (task Task, err error) {
	ctx, span := s.tracer.Start(ctx, "shoppinglist.add_task", map[string]any{"list_id": listID})
	defer func() { span.End(err) }()

	if err := validateNewTask(in); err != nil {
		return Task{}, err
	}
	list, err := s.store.FindByID(ctx, listID)
	if err != nil {
		return Task{}, err
	}

	task = in.toTask()
	list.Tasks = append(list.Tasks, task)
	if err := s.save(ctx, list); err != nil {
		return Task{}, err
	}
	return task, nil
}

// UpdateTask changes the first task carrying taskID.
func (s *Service) UpdateTask(ctx context.Context, listID string, taskID int, update UpdateTask) (task Task, err error) {
	ctx, span := s.tracer.Start(ctx, "shoppinglist.update_task", map[string]any{"list_id": listID, "task_id": taskID})
	defer func() { span.End(err) }()

	if err := validateUpdateTask(update); err != nil {
		return Task{}, err
	}
	list, err := s.store.FindByID(ctx, listID)
	if err != nil {
		return Task{}, err
	}
	i := list.taskIndex(taskID)
	if i < 0 {
		return Task{}, ErrTaskNotFound
	}

	if update.Title != nil {
		list.Tasks[i].Title = *update.Title
	}
	if update.Completed != nil {
		list.Tasks[i].Completed = *update.Completed
	}
	if err := s.save(ctx, list); err != nil {
		return Task{}, err
	}
	return list.Tasks[i], nil
}

// DeleteTask removes the first task carrying taskID, keeping the order of the rest.
func (s *Service) DeleteTask(ctx context.Context, listID string, taskID int) (err error) {
	ctx, span := s.tracer.Start(ctx, "shoppinglist.delete_task", map[string]any{"list_id": listID, "task_id": taskID})
	defer func() { span.End(err) }()

	list, err := s.store.FindByID(ctx, listID)
	if err != nil {
		return err
	}
	i := list.taskIndex(taskID)
	if i < 0 {
		return ErrTaskNotFound
	}

	list.Tasks = append(list.Tasks[:i], list.Tasks[i+1:]...)
	return s.save(ctx, list)
}

func (s *Service) save(ctx context.Context, list *ShoppingList) error {
	list.Touch()
	if err := s.store.Save(ctx, list); err != nil {
		return fmt.Errorf("save shopping list %s: %w", list.GetID(), err)
	}
	return nil
}

// ValidateCreate checks a new list the way Create does: a non-blank name and,
// for every task, an id and a non-blank title. Blank means empty after
// trimming; accepted values are stored as given.
func ValidateCreate(in CreateShoppingList) error {
	var errs micro.ValidationErrors
	if !micro.IsRequired(in.Name) {
		errs.Add("name", "name is required")
	}
	for i, t := range in.Tasks {
		checkTask(&errs, fmt.Sprintf("tasks[%d].", i), t)
	}
	return asValidation(errs)
}

func validateUpdate(in UpdateShoppingList) error {
	var errs micro.ValidationErrors
	if in.Name != nil && !micro.IsRequired(*in.Name) {
		errs.Add("name", "name must not be blank")
	}
	return asValidation(errs)
}

func validateNewTask(in NewTask) error {
	var errs micro.ValidationErrors
	checkTask(&errs, "", in)
	return asValidation(errs)
}

func validateUpdateTask(in UpdateTask) error {
	var errs micro.ValidationErrors
	if in.Title != nil && !micro.IsRequired(*in.Title) {
		errs.Add("title", "title must not be blank")
	}
	return asValidation(errs)
}

func checkTask(errs *micro.ValidationErrors, prefix string, t NewTask) {
	if t.ID == nil {
		errs.Add(prefix+"id", "id is required")
	}
	if !micro.IsRequired(t.Title) {
		errs.Add(prefix+"title", "title is required")
	}
}

func asValidation(errs micro.ValidationErrors) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrValidation, errs)
}
