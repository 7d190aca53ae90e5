package view

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"teamdir.dev/internal/models"
)

// FilterAll is the sentinel filter that matches every card
const FilterAll = "all"

// LoadErrorMessage replaces the loading indicator when the dataset can't be loaded
const LoadErrorMessage = "Error loading team data. Please try again later."

var (
	// ErrNotReady is returned for interactions before filters are wired
	ErrNotReady = errors.New("view not ready")
	// ErrUnknownFilter is returned when no filter control has the given value
	ErrUnknownFilter = errors.New("unknown filter")
	// ErrNoSuchCard is returned for a card index outside the rendered set
	ErrNoSuchCard = errors.New("no such card")
)

// Status of the page's data load
type Status string

const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// Source loads the dataset a controller renders
type Source interface {
	Load(ctx context.Context, source string) (*models.Dataset, error)
}

// Options holds the controller's timing and layout settings
type Options struct {
	StaggerUnit  time.Duration
	RevealDelay  time.Duration
	HideDelay    time.Duration
	PressDelay   time.Duration
	HiddenOffset int
	PressScale   float64
	// Filters are the filter control values. Empty means derive them from
	// the roles present in the dataset.
	Filters []string
	// Anchors are the in-page ids a scroll can target
	Anchors []string
}

// DefaultOptions returns the standard timings
func DefaultOptions() Options {
	return Options{
		StaggerUnit:  100 * time.Millisecond,
		RevealDelay:  10 * time.Millisecond,
		HideDelay:    300 * time.Millisecond,
		PressDelay:   200 * time.Millisecond,
		HiddenOffset: 20,
		PressScale:   0.98,
		Anchors:      []string{"top", "team", "filters"},
	}
}

// FilterControl is one role filter button
type FilterControl struct {
	Value  string `json:"value"`
	Label  string `json:"label"`
	Active bool   `json:"active"`
}

// ScrollIntent describes an animated scroll to an in-page target
type ScrollIntent struct {
	Target   string `json:"target"`
	Behavior string `json:"behavior"`
	Block    string `json:"block"`
}

// effect is a cancellable slot for one deferred style change. Bumping gen
// invalidates any callback already scheduled from the slot.
type effect struct {
	gen  uint64
	task Task
}

type cardState struct {
	card   Card
	motion effect
	press  effect
}

// Controller owns the state of one page view
type Controller struct {
	mu     sync.Mutex
	logger *zap.Logger
	sched  Scheduler
	opts   Options

	status   Status
	message  string
	project  models.Project
	cards    []*cardState
	controls []FilterControl
	filter   string
	wired    bool
	closed   bool
	anchors  map[string]struct{}
}

// NewController creates a new Controller in the loading state
func NewController(opts Options, sched Scheduler, logger *zap.Logger) *Controller {
	if sched == nil {
		sched = TimerScheduler
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	anchors := make(map[string]struct{}, len(opts.Anchors))
	for _, a := range opts.Anchors {
		anchors[a] = struct{}{}
	}

	return &Controller{
		logger:  logger,
		sched:   sched,
		opts:    opts,
		status:  StatusLoading,
		filter:  FilterAll,
		anchors: anchors,
	}
}

// Start handles the page-ready event: it loads the dataset, renders every
// collaborator and wires the filter controls. On failure the status moves to
// failed and nothing is rendered.
func (c *Controller) Start(ctx context.Context, src Source, source string) error {
	dataset, err := src.Load(ctx, source)
	if err != nil {
		c.logger.Error("Error loading collaborators", zap.String("source", source), zap.Error(err))

		c.mu.Lock()
		c.status = StatusFailed
		c.message = LoadErrorMessage
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.project = dataset.Project
	c.status = StatusReady
	c.renderAll(dataset.Collaborators)
	c.wireFilters(c.opts.Filters)

	c.logger.Debug("Rendered collaborators",
		zap.String("project", c.project.Name),
		zap.Int("cards", len(c.cards)),
		zap.Int("filters", len(c.controls)))
	return nil
}

// RenderAll discards any rendered cards and builds one per collaborator
func (c *Controller) RenderAll(collaborators []models.Collaborator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renderAll(collaborators)
}

func (c *Controller) renderAll(collaborators []models.Collaborator) {
	c.cancelAll()

	c.cards = make([]*cardState, len(collaborators))
	for i, collab := range collaborators {
		c.cards[i] = &cardState{card: newCard(i, collab, c.opts.StaggerUnit)}
	}
}

// WireFilters registers the filter controls and activates "all"
func (c *Controller) WireFilters(values []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wireFilters(values)
}

func (c *Controller) wireFilters(values []string) {
	if len(values) == 0 {
		values = c.observedRoles()
	}

	seen := map[string]bool{FilterAll: true}
	controls := []FilterControl{{Value: FilterAll, Label: "All", Active: true}}
	for _, v := range values {
		value := strings.ToLower(strings.TrimSpace(v))
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		controls = append(controls, FilterControl{Value: value, Label: label(value)})
	}

	c.controls = controls
	c.filter = FilterAll
	c.wired = true
}

func (c *Controller) observedRoles() []string {
	var roles []string
	for _, cs := range c.cards {
		roles = append(roles, cs.card.DataRole)
	}
	return roles
}

// Activate makes the control with value the only active one and applies
// its filter to every card
func (c *Controller) Activate(value string) error {
	value = strings.ToLower(strings.TrimSpace(value))

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.wired {
		return ErrNotReady
	}

	idx := -1
	for i := range c.controls {
		if c.controls[i].Value == value {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownFilter, value)
	}

	for i := range c.controls {
		c.controls[i].Active = i == idx
	}
	c.filter = value

	for _, cs := range c.cards {
		if Matches(cs.card.DataRole, value) {
			c.show(cs)
		} else {
			c.hide(cs)
		}
	}
	return nil
}

// Matches reports whether a card with the normalized role is visible under filter
func Matches(dataRole, filter string) bool {
	return filter == FilterAll || strings.Contains(dataRole, filter)
}

// show restores layout now and fades the card in on the next tick
func (c *Controller) show(cs *cardState) {
	cs.card.Style.Display = DisplayBlock
	c.schedule(&cs.motion, c.opts.RevealDelay, func() {
		cs.card.Style.Opacity = 1
		cs.card.Style.TranslateY = 0
	})
}

// hide fades the card out now and drops it from layout once the fade is done
func (c *Controller) hide(cs *cardState) {
	cs.card.Style.Opacity = 0
	cs.card.Style.TranslateY = c.opts.HiddenOffset
	c.schedule(&cs.motion, c.opts.HideDelay, func() {
		cs.card.Style.Display = DisplayNone
	})
}

// Press applies the transient press effect to the card at index
func (c *Controller) Press(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.cards) {
		return fmt.Errorf("%w: %d", ErrNoSuchCard, index)
	}

	cs := c.cards[index]
	cs.card.Style.Scale = c.opts.PressScale
	c.schedule(&cs.press, c.opts.PressDelay, func() {
		cs.card.Style.Scale = 1
	})
	return nil
}

// ScrollTo resolves an in-page anchor href. Unknown targets are swallowed
// and reported as false.
func (c *Controller) ScrollTo(href string) (ScrollIntent, bool) {
	id, ok := strings.CutPrefix(href, "#")
	if !ok || id == "" {
		return ScrollIntent{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.anchors[id]; !exists {
		return ScrollIntent{}, false
	}
	return ScrollIntent{Target: id, Behavior: "smooth", Block: "start"}, true
}

// schedule replaces whatever is pending in slot with apply after d. Must be
// called with c.mu held.
func (c *Controller) schedule(slot *effect, d time.Duration, apply func()) {
	if slot.task != nil {
		slot.task.Stop()
	}
	slot.gen++
	gen := slot.gen

	slot.task = c.sched.AfterFunc(d, func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.closed || slot.gen != gen {
			return
		}
		slot.task = nil
		apply()
	})
}

func (c *Controller) cancelAll() {
	for _, cs := range c.cards {
		for _, slot := range []*effect{&cs.motion, &cs.press} {
			if slot.task != nil {
				slot.task.Stop()
				slot.task = nil
			}
			slot.gen++
		}
	}
}

// Close cancels every pending effect. The controller ignores timers after Close.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelAll()
	c.closed = true
}

func label(value string) string {
	r, size := utf8.DecodeRuneInString(value)
	if r == utf8.RuneError {
		return value
	}
	return string(unicode.ToUpper(r)) + value[size:]
}
