package generator

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
)

// TaskHandle is the observable side of one queued generation task. Done
// closes when the task finishes either way; Err is valid after that.
type TaskHandle struct {
	ID          ulid.ULID
	StatementID snowflake.ID

	done chan struct{}
	err  error
}

func (h *TaskHandle) Done() <-chan struct{} { return h.done }

func (h *TaskHandle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Registry tracks in-flight generation tasks so they can be looked up and
// awaited. Finished tasks are dropped from the map; their handles stay valid.
type Registry struct {
	mu    sync.RWMutex
	tasks map[ulid.ULID]*TaskHandle
}

func NewRegistry() *Registry {
	return &Registry{tasks: make(map[ulid.ULID]*TaskHandle)}
}

func (r *Registry) add(statementID snowflake.ID) *TaskHandle {
	handle := &TaskHandle{
		ID:          ulid.Make(),
		StatementID: statementID,
		done:        make(chan struct{}),
	}

	r.mu.Lock()
	r.tasks[handle.ID] = handle
	r.mu.Unlock()

	return handle
}

func (r *Registry) complete(handle *TaskHandle, err error) {
	r.mu.Lock()
	delete(r.tasks, handle.ID)
	r.mu.Unlock()

	handle.err = err
	close(handle.done)
}

// Lookup returns the handle of an in-flight task.
func (r *Registry) Lookup(id ulid.ULID) (*TaskHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handle, ok := r.tasks[id]
	return handle, ok
}

// InFlight returns the number of tasks not yet finished.
func (r *Registry) InFlight() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}
