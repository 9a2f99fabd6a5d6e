package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const promptPrefix = "select-game:"

var ErrPromptTimeout = errors.New("no selection before the deadline")

type prompt struct {
	userID    string
	selection chan []string
}

// Prompts tracks the select menus waiting for an answer. Each menu belongs to the
// member who opened it, and only the first of their answers counts
type Prompts struct {
	mutex   sync.Mutex
	waiting map[string]*prompt
}

func NewPrompts() *Prompts {
	return &Prompts{waiting: map[string]*prompt{}}
}

// Open registers a menu for the user and returns its custom id. The menu must then
// be awaited or cancelled
func (prompts *Prompts) Open(userID string) string {
	id := promptPrefix + uuid.NewString()
	prompts.mutex.Lock()
	defer prompts.mutex.Unlock()
	prompts.waiting[id] = &prompt{userID: userID, selection: make(chan []string, 1)}
	return id
}

// Await blocks until the owner answers the menu, the timeout runs out or the
// context is done. The menu is closed on return in every case
func (prompts *Prompts) Await(ctx context.Context, id string, timeout time.Duration) ([]string, error) {
	prompts.mutex.Lock()
	waiting, ok := prompts.waiting[id]
	prompts.mutex.Unlock()
	if !ok {
		return nil, fmt.Errorf("prompt %s is not open", id)
	}
	defer prompts.Cancel(id)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case values := <-waiting.selection:
		return values, nil
	case <-timer.C:
		log.Debug().Msg(fmt.Sprintf("Prompt %s timed out", id))
		return nil, ErrPromptTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Deliver hands an answer to a waiting menu. It reports false when the menu is
// unknown, closed, already answered or owned by someone else
func (prompts *Prompts) Deliver(id string, userID string, values []string) bool {
	prompts.mutex.Lock()
	defer prompts.mutex.Unlock()
	waiting, ok := prompts.waiting[id]
	if !ok || waiting.userID != userID || len(values) == 0 {
		return false
	}
	select {
	case waiting.selection <- values:
		return true
	default:
		return false
	}
}

func (prompts *Prompts) Cancel(id string) {
	prompts.mutex.Lock()
	defer prompts.mutex.Unlock()
	delete(prompts.waiting, id)
}

func (prompts *Prompts) Pending() int {
	prompts.mutex.Lock()
	defer prompts.mutex.Unlock()
	return len(prompts.waiting)
}

func isPromptID(id string) bool {
	return strings.HasPrefix(id, promptPrefix)
}
