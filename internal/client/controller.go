// Package client holds the form-side logic: the view state, submission
// guard, clipboard copy and local persistence of the last result.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"clipprompt/internal/enhance"
	"clipprompt/internal/storage"
)

const (
	DefaultSavedNoticeDuration = 2 * time.Second

	savedNotice   = "Saved!"
	msgCopyFailed = "Failed to copy text to clipboard."
	msgSaveFailed = "Failed to save prompt."
	enhancePrefix = "Failed to enhance prompt: "
)

var (
	ErrBlankIdea = errors.New("idea is blank")
	ErrPending   = errors.New("enhancement already in progress")
	ErrNoStore   = errors.New("persistence is disabled")
	ErrEmptyText = errors.New("the AI returned an empty response, please try modifying your prompt")
)

type Enhancer interface {
	Enhance(ctx context.Context, req enhance.Request) (string, error)
}

type Clipboard interface {
	WriteAll(text string) error
}

// ViewState is a snapshot of everything the form renders.
type ViewState struct {
	Idea          string
	Tone          enhance.Tone
	PointOfView   enhance.PointOfView
	Provider      enhance.Provider
	GeneratedText string
	IsPending     bool
	LastError     string
	SavedNotice   string
}

type Controller struct {
	enhancer Enhancer
	clip     Clipboard
	store    storage.Store
	logger   *slog.Logger

	noticeDuration time.Duration
	autoPersist    bool

	mu          sync.Mutex
	state       ViewState
	noticeTimer *time.Timer
	noticeSeq   int
}

type Option func(*Controller)

func WithSavedNoticeDuration(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.noticeDuration = d
		}
	}
}

// WithAutoPersist saves every successful result without an explicit Persist.
func WithAutoPersist(enabled bool) Option {
	return func(c *Controller) { c.autoPersist = enabled }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithProvider(p enhance.Provider) Option {
	return func(c *Controller) { c.state.Provider = p }
}

// NewController creates a controller with the default choices. store may be
// nil, which disables persistence.
func NewController(e Enhancer, clip Clipboard, store storage.Store, opts ...Option) *Controller {
	c := &Controller{
		enhancer:       e,
		clip:           clip,
		store:          store,
		logger:         slog.Default(),
		noticeDuration: DefaultSavedNoticeDuration,
		state: ViewState{
			Tone:        enhance.ToneNeutral,
			PointOfView: enhance.POVThirdPerson,
			Provider:    enhance.Providers[0],
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start seeds the generated text from the store. A missing value is not an
// error.
func (c *Controller) Start(ctx context.Context) error {
	text, err := c.LoadPersisted(ctx)
	if err != nil {
		return err
	}
	if text != "" {
		c.mu.Lock()
		c.state.GeneratedText = text
		c.mu.Unlock()
	}
	return nil
}

func (c *Controller) SetIdea(idea string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Idea = idea
}

func (c *Controller) SetTone(t enhance.Tone) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Tone = t
}

func (c *Controller) SetPointOfView(p enhance.PointOfView) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.PointOfView = p
}

func (c *Controller) SetProvider(p enhance.Provider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Provider = p
}

func (c *Controller) EditGeneratedText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.GeneratedText = text
}

func (c *Controller) State() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Submit sends the current form to the relay. A blank idea or a submission
// already in flight returns immediately without calling the relay. On failure
// LastError is set and the previous generated text is kept.
func (c *Controller) Submit(ctx context.Context) (string, error) {
	c.mu.Lock()
	if strings.TrimSpace(c.state.Idea) == "" {
		c.mu.Unlock()
		return "", ErrBlankIdea
	}
	if c.state.IsPending {
		c.mu.Unlock()
		return "", ErrPending
	}
	c.state.IsPending = true
	c.state.LastError = ""
	req := enhance.Request{
		Idea:        strings.TrimSpace(c.state.Idea),
		Tone:        c.state.Tone,
		PointOfView: c.state.PointOfView,
		Provider:    c.state.Provider,
	}
	c.mu.Unlock()

	text, err := c.callEnhancer(ctx, req)
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyText
	}

	c.mu.Lock()
	c.state.IsPending = false
	if err != nil {
		c.state.LastError = enhancePrefix + err.Error()
		c.mu.Unlock()
		c.logger.Debug("enhance failed", "error", err)
		return "", err
	}
	c.state.GeneratedText = text
	c.mu.Unlock()

	if c.autoPersist && c.store != nil {
		if err := c.Persist(ctx); err != nil {
			c.logger.Warn("failed to persist result", "error", err)
		}
	}
	return text, nil
}

func (c *Controller) callEnhancer(ctx context.Context, req enhance.Request) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("unexpected failure: %v", rec)
		}
	}()
	return c.enhancer.Enhance(ctx, req)
}

// Copy puts the generated text on the clipboard. Nothing happens when there
// is no text. A failure is reported through LastError and the returned error.
func (c *Controller) Copy() error {
	c.mu.Lock()
	text := c.state.GeneratedText
	c.mu.Unlock()

	if text == "" {
		return nil
	}
	if c.clip == nil {
		c.setError(msgCopyFailed)
		return errors.New("no clipboard available")
	}

	if err := c.clip.WriteAll(text); err != nil {
		c.setError(msgCopyFailed)
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}

// Persist saves the generated text under storage.LastPromptKey and shows the
// saved notice until it clears on its own.
func (c *Controller) Persist(ctx context.Context) error {
	if c.store == nil {
		return ErrNoStore
	}

	c.mu.Lock()
	text := c.state.GeneratedText
	c.mu.Unlock()

	if err := c.store.Save(ctx, storage.LastPromptKey, text); err != nil {
		c.setError(msgSaveFailed)
		return fmt.Errorf("persist: %w", err)
	}

	c.showSavedNotice()
	return nil
}

// LoadPersisted returns the last saved text, or "" when nothing was saved.
func (c *Controller) LoadPersisted(ctx context.Context) (string, error) {
	if c.store == nil {
		return "", nil
	}
	text, err := c.store.Load(ctx, storage.LastPromptKey)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load persisted: %w", err)
	}
	return text, nil
}

// Close stops the pending notice timer.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.noticeTimer != nil {
		c.noticeTimer.Stop()
		c.noticeTimer = nil
	}
}

func (c *Controller) setError(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.LastError = msg
}

func (c *Controller) showSavedNotice() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.SavedNotice = savedNotice
	c.noticeSeq++
	seq := c.noticeSeq
	if c.noticeTimer != nil {
		c.noticeTimer.Stop()
	}
	c.noticeTimer = time.AfterFunc(c.noticeDuration, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.noticeSeq == seq {
			c.state.SavedNotice = ""
			c.noticeTimer = nil
		}
	})
}
