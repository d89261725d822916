package shoppinglist

import (
	"strconv"
	"time"

	"github.com/danielnirn/shopping-api/internal/micro"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Task is a line item embedded in a ShoppingList. Its id is chosen by the
// caller and only meaningful within the owning list.
type Task struct {
	ID        int    `json:"id" bson:"id"`
	Title     string `json:"title" bson:"title"`
	Completed bool   `json:"completed" bson:"completed"`
}

func (t Task) GetID() string        { return strconv.Itoa(t.ID) }
func (t Task) ResourceType() string { return "task" }

// ShoppingList is the aggregate root. Tasks are loaded and saved with it.
type ShoppingList struct {
	ListID    primitive.ObjectID `json:"id" bson:"_id"`
	Name      string             `json:"name" bson:"name"`
	Date      time.Time          `json:"date" bson:"date"`
	Completed bool               `json:"completed" bson:"completed"`
	Tasks     []Task             `json:"tasks" bson:"tasks"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// ID satisfies micro.Document.
func (l *ShoppingList) ID() primitive.ObjectID { return l.ListID }

func (l *ShoppingList) GetID() string        { return l.ListID.Hex() }
func (l *ShoppingList) ResourceType() string { return "shopping-list" }

// Touch refreshes the update timestamp.
func (l *ShoppingList) Touch() {
	l.UpdatedAt = storeTime(time.Now())
}

// taskIndex returns the position of the first task with id.
func (l *ShoppingList) taskIndex(id int) int {
	for i := range l.Tasks {
		if l.Tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// clone returns a deep copy so callers never share the task slice.
func (l *ShoppingList) clone() *ShoppingList {
	c := *l
	c.Tasks = append(make([]Task, 0, len(l.Tasks)), l.Tasks...)
	return &c
}

// normalize fixes up documents written without a tasks array.
func (l *ShoppingList) normalize() *ShoppingList {
	if l.Tasks == nil {
		l.Tasks = []Task{}
	}
	return l
}

// NewTask is the payload for adding a task. ID is a pointer so a missing id
// can be told apart from 0.
type NewTask struct {
	ID        *int   `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// CreateShoppingList groups the fields accepted on creation.
type CreateShoppingList struct {
	Name      string     `json:"name"`
	Date      *time.Time `json:"date"`
	Completed *bool      `json:"completed"`
	Tasks     []NewTask  `json:"tasks"`
}

// UpdateShoppingList groups mutable list fields. Nil means untouched.
type UpdateShoppingList struct {
	Name      *string    `json:"name"`
	Date      *time.Time `json:"date"`
	Completed *bool      `json:"completed"`
}

func (u UpdateShoppingList) empty() bool {
	return u.Name == nil && u.Date == nil && u.Completed == nil
}

// UpdateTask groups mutable task fields. Nil means untouched.
type UpdateTask struct {
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
}

// NewShoppingList builds an aggregate with a fresh id, applying defaults:
// date is now, completed is false and tasks is empty. Input is assumed valid.
func NewShoppingList(in CreateShoppingList) *ShoppingList {
	created := storeTime(time.Now())

	list := &ShoppingList{
		ListID:    micro.NewID(),
		Name:      in.Name,
		Date:      created,
		Tasks:     make([]Task, 0, len(in.Tasks)),
		CreatedAt: created,
		UpdatedAt: created,
	}
	if in.Date != nil {
		list.Date = storeTime(*in.Date)
	}
	if in.Completed != nil {
		list.Completed = *in.Completed
	}
	for _, t := range in.Tasks {
		list.Tasks = append(list.Tasks, t.toTask())
	}
	return list
}

func (t NewTask) toTask() Task {
	task := Task{Title: t.Title, Completed: t.Completed}
	if t.ID != nil {
		task.ID = *t.ID
	}
	return task
}

// storeTime matches the millisecond UTC precision Mongo persists, so a value
// read back compares equal to the one written.
func storeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
