package pipeline

import "github.com/blacktop/robohashy/internal/robohash"

func (p *Pipeline) textChanged(text string) {
	p.text.Set(text)
	_, valid := robohash.NormalizeSeed(text)
	p.out.GenerateEnabled.Set(valid)
}

// styleSelected resolves an option index. Unknown indexes keep the current
// selection.
func (p *Pipeline) styleSelected(index int) {
	style, ok := robohash.StyleSetAt(index)
	if !ok {
		p.logger.Debug("ignoring out of range style index", "index", index)
		return
	}
	p.style.Set(style)
}

func (p *Pipeline) refreshSaveEnabled() {
	p.out.SaveEnabled.Set(p.current.State == Loaded && p.permitted)
}
