package view

import (
	"fmt"

	"github.com/glefebvre/zapper/internal/models"
)

// DefaultScrollThreshold is the remaining distance, in surface units, below
// which a scroll event requests the next page.
const DefaultScrollThreshold = 100

// NoResultsText and NoResultsHint make up the no-results presentation.
const (
	NoResultsText = "No channels found"
	NoResultsHint = "Try another term or category"
)

// ContinuationText labels the load-more affordance.
func ContinuationText(remaining int) string {
	return fmt.Sprintf("Load more (%d remaining)", remaining)
}

// RowHandle is the host's materialized row.
type RowHandle interface {
	SetActive(active bool)
}

// RowFunc materializes one channel. activate is bound to that channel; the
// host calls it when the row is selected.
type RowFunc func(ch models.Channel, activate func()) RowHandle

// Surface is the host list widget the renderer drives.
type Surface interface {
	// Clear removes every row, the continuation affordance and the
	// no-results presentation.
	Clear()
	// Append inserts a batch of rows after the existing ones.
	Append(rows []RowHandle)
	ShowContinuation(remaining int)
	HideContinuation()
	ShowNoResults()
}

// ScrollPosition describes the host viewport.
type ScrollPosition struct {
	Top          float64 `json:"scroll_top"`
	Height       float64 `json:"scroll_height"`
	ClientHeight float64 `json:"client_height"`
}

// NearEnd reports whether the unrendered distance is within threshold.
func (p ScrollPosition) NearEnd(threshold float64) bool {
	return p.Top+p.ClientHeight >= p.Height-threshold
}

// RendererOptions configures a Renderer.
type RendererOptions struct {
	PageSize        int
	ScrollThreshold float64
	// OnActivate receives the channel of an activated row.
	OnActivate func(models.Channel)
}

// Renderer materializes Window pages onto a Surface. Rows are only ever
// appended; a reset is the only way to discard them.
type Renderer struct {
	window       *Window
	surface      Surface
	rowFunc      RowFunc
	threshold    float64
	onActivate   func(models.Channel)
	rows         []RowHandle
	channels     []models.Channel
	active       int
	continuation bool
	pages        []int
	// epoch counts resets; row closures from an older epoch are stale.
	epoch uint64
}

// NewRenderer creates a renderer over surface.
func NewRenderer(surface Surface, rowFunc RowFunc, opts RendererOptions) *Renderer {
	threshold := opts.ScrollThreshold
	if threshold <= 0 {
		threshold = DefaultScrollThreshold
	}
	return &Renderer{
		window:     NewWindow(opts.PageSize),
		surface:    surface,
		rowFunc:    rowFunc,
		threshold:  threshold,
		onActivate: opts.OnActivate,
		active:     -1,
	}
}

// Show resets the window to items and renders from the start.
func (r *Renderer) Show(items []models.Channel) {
	r.window.Reset(items)
	r.epoch++
	r.surface.Clear()
	r.rows = nil
	r.channels = nil
	r.active = -1
	r.continuation = false
	r.pages = nil

	if len(items) == 0 {
		r.surface.ShowNoResults()
		return
	}
	r.renderNext()
}

// LoadMore renders the next page and reports whether one was rendered.
func (r *Renderer) LoadMore() bool {
	return r.renderNext()
}

// OnScroll loads the next page when pos is close enough to the end.
func (r *Renderer) OnScroll(pos ScrollPosition) bool {
	if !r.window.HasMore() || !pos.NearEnd(r.threshold) {
		return false
	}
	return r.renderNext()
}

func (r *Renderer) renderNext() bool {
	page, ok := r.window.Next()
	if !ok {
		return false
	}

	epoch := r.epoch
	batch := make([]RowHandle, len(page.Items))
	for i, ch := range page.Items {
		ch := ch
		index := page.Offset + i
		batch[i] = r.rowFunc(ch, func() {
			if epoch != r.epoch {
				return
			}
			r.activate(index, ch)
		})
	}

	if r.continuation {
		r.surface.HideContinuation()
		r.continuation = false
	}
	r.surface.Append(batch)
	r.rows = append(r.rows, batch...)
	r.channels = append(r.channels, page.Items...)
	r.pages = append(r.pages, len(page.Items))

	if r.window.HasMore() {
		r.surface.ShowContinuation(r.window.Remaining())
		r.continuation = true
	}
	return true
}

func (r *Renderer) activate(index int, ch models.Channel) {
	if index >= len(r.rows) {
		return
	}
	for i, row := range r.rows {
		if i != index {
			row.SetActive(false)
		}
	}
	r.rows[index].SetActive(true)
	r.active = index

	if r.onActivate != nil {
		r.onActivate(ch)
	}
}

// ActivateChannel activates the materialized row holding channel id.
func (r *Renderer) ActivateChannel(id int) (models.Channel, bool) {
	for i, ch := range r.channels {
		if ch.ID == id {
			r.activate(i, ch)
			return ch, true
		}
	}
	return models.Channel{}, false
}

// Active returns the channel of the active row, if any.
func (r *Renderer) Active() (models.Channel, bool) {
	if r.active < 0 || r.active >= len(r.channels) {
		return models.Channel{}, false
	}
	return r.channels[r.active], true
}

// State returns the window state.
func (r *Renderer) State() State { return r.window.State() }

// Shown is the number of materialized rows.
func (r *Renderer) Shown() int { return r.window.Shown() }

// Total is the size of the filtered set.
func (r *Renderer) Total() int { return r.window.Total() }

// Remaining is the number of rows not yet materialized.
func (r *Renderer) Remaining() int { return r.window.Remaining() }

// HasMore reports whether the continuation affordance is shown.
func (r *Renderer) HasMore() bool { return r.continuation }

// PageSizes returns the size of every page appended since the last reset.
func (r *Renderer) PageSizes() []int {
	return append([]int(nil), r.pages...)
}

// Visible returns the channels of the materialized rows.
func (r *Renderer) Visible() []models.Channel {
	return r.window.Visible()
}
