package score

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/Versifine/platformer/internal/event"
)

// Publisher is the subset of the event bus the keeper needs.
type Publisher interface {
	Publish(eventName string, evt any)
}

// Keeper tracks the coin score for one level. Completion fires once, the
// first time the score reaches a non-zero total.
type Keeper struct {
	mu        sync.Mutex
	score     int
	total     int
	completed bool
	pub       Publisher
}

func NewKeeper(total int, pub Publisher) *Keeper {
	return &Keeper{total: total, pub: pub}
}

func (k *Keeper) AddScore(points int) {
	k.mu.Lock()
	k.score += points
	evt := k.eventLocked()
	justCompleted := !k.completed && k.total > 0 && k.score >= k.total
	if justCompleted {
		k.completed = true
	}
	k.mu.Unlock()

	slog.Debug("Score changed", "score", evt.Score, "total", evt.Total)
	if k.pub != nil {
		k.pub.Publish(event.EventScoreChanged, evt)
	}
	if justCompleted {
		slog.Info("All coins collected!", "score", evt.Score)
		if k.pub != nil {
			k.pub.Publish(event.EventLevelComplete, evt)
		}
	}
}

func (k *Keeper) Score() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.score
}

func (k *Keeper) Total() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.total
}

func (k *Keeper) Complete() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.completed
}

// Display is the HUD text.
func (k *Keeper) Display() string {
	return fmt.Sprintf("Coins: %d", k.Score())
}

// Reset clears the score for a new attempt at a level with the given total.
func (k *Keeper) Reset(total int) {
	k.mu.Lock()
	k.score = 0
	k.total = total
	k.completed = false
	evt := k.eventLocked()
	k.mu.Unlock()
	if k.pub != nil {
		k.pub.Publish(event.EventScoreChanged, evt)
	}
}

func (k *Keeper) eventLocked() *event.ScoreEvent {
	return &event.ScoreEvent{Score: k.score, Total: k.total, Display: fmt.Sprintf("Coins: %d", k.score)}
}
