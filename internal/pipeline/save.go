package pipeline

import (
	"context"
	"time"

	"github.com/blacktop/robohashy/internal/photos"
)

// save hands the loaded avatar to the photo library. Without a loaded image,
// or with a save already running, it does nothing.
func (p *Pipeline) save(ctx context.Context, results chan<- saveResult) {
	if p.current.State != Loaded || p.current.Image.Empty() {
		p.logger.Debug("save ignored: nothing loaded")
		return
	}
	if p.saving {
		p.logger.Debug("save ignored: save in progress")
		return
	}
	p.saving = true

	item := photos.Item{
		Seed:    p.current.Request.Seed,
		Style:   p.current.Request.Style.Name(),
		URL:     p.current.URL,
		Format:  p.current.Image.Extension(),
		Data:    p.current.Image.Data,
		SavedAt: time.Now(),
	}

	go func() {
		location, err := p.library.Save(ctx, item)
		select {
		case results <- saveResult{location: location, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (p *Pipeline) saveSettled(ctx context.Context, res saveResult, permission chan<- permissionResult) {
	p.saving = false

	if res.err != nil {
		p.logger.Error("failed to save avatar", "err", res.err)
		p.permitted = false
		p.refreshSaveEnabled()

		msg := "Couldn't save the avatar: " + res.err.Error()
		p.out.Errors.Publish(msg)
		p.out.SaveOutcomes.Publish(SaveOutcome{Message: msg})
		p.queryPermission(ctx, permission)
		return
	}

	p.logger.Info("saved avatar", "location", res.location)
	p.out.SaveOutcomes.Publish(SaveOutcome{Saved: true, Location: res.location})
}

// queryPermission asks the library whether it may be written to. Only the
// answer to the most recent query is applied.
func (p *Pipeline) queryPermission(ctx context.Context, results chan<- permissionResult) {
	p.permission++
	query := p.permission

	go func() {
		granted := p.library.QueryWritePermission(ctx)
		select {
		case results <- permissionResult{query: query, granted: granted}:
		case <-ctx.Done():
		}
	}()
}

func (p *Pipeline) permissionSettled(res permissionResult) {
	if res.query != p.permission {
		return
	}
	if !res.granted {
		p.logger.Warn("photo library is not writable")
	}
	p.permitted = res.granted
	p.refreshSaveEnabled()
}
