package cmd

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/blacktop/robohashy/internal/pipeline"
	"github.com/blacktop/robohashy/internal/stream"
)

// Messages delivered from the pipeline's output streams.

type creationMsg pipeline.Creation

type generateEnabledMsg bool

type saveEnabledMsg bool

type styleOptionsMsg []string

type errorMsg string

type saveOutcomeMsg pipeline.SaveOutcome

type openURLMsg string

// previewMsg carries a rendered preview for one generation.
type previewMsg struct {
	generation uint64
	view       string
	err        error
}

// clearStatusMsg dismisses the status line if it is still showing id.
type clearStatusMsg struct {
	id int
}

// openedMsg reports the result of handing a URL to the OS.
type openedMsg struct {
	url string
	err error
}

// intents are the streams the model publishes user actions on.
type intents struct {
	text     *stream.Subject[string]
	generate *stream.Subject[struct{}]
	style    *stream.Subject[int]
	save     *stream.Subject[struct{}]
	about    *stream.Subject[struct{}]
}

func newIntents() *intents {
	return &intents{
		text:     stream.NewSubject[string](),
		generate: stream.NewSubject[struct{}](),
		style:    stream.NewSubject[int](),
		save:     stream.NewSubject[struct{}](),
		about:    stream.NewSubject[struct{}](),
	}
}

// input subscribes the pipeline to every intent stream.
func (i *intents) input() pipeline.Input {
	return pipeline.Input{
		TextChanges:    i.text.Subscribe().C(),
		GenerateIntent: i.generate.Subscribe().C(),
		StyleSelection: i.style.Subscribe().C(),
		SaveIntent:     i.save.Subscribe().C(),
		AboutIntent:    i.about.Subscribe().C(),
	}
}

func (i *intents) close() {
	i.text.Close()
	i.generate.Close()
	i.style.Close()
	i.save.Close()
	i.about.Close()
}

// listeners holds the model's subscriptions to the pipeline outputs.
type listeners struct {
	creations       *stream.Subscription[pipeline.Creation]
	generateEnabled *stream.Subscription[bool]
	saveEnabled     *stream.Subscription[bool]
	styleOptions    *stream.Subscription[[]string]
	errors          *stream.Subscription[string]
	saveOutcomes    *stream.Subscription[pipeline.SaveOutcome]
	openURL         *stream.Subscription[string]
}

func newListeners(out *pipeline.Output) *listeners {
	return &listeners{
		creations:       out.Creations.Subscribe(),
		generateEnabled: out.GenerateEnabled.Subscribe(),
		saveEnabled:     out.SaveEnabled.Subscribe(),
		styleOptions:    out.StyleOptions.Subscribe(),
		errors:          out.Errors.Subscribe(),
		saveOutcomes:    out.SaveOutcomes.Subscribe(),
		openURL:         out.OpenURL.Subscribe(),
	}
}

// listen waits for the next value on sub. A finished stream yields no message.
func listen[T any](sub *stream.Subscription[T], wrap func(T) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		v, ok := sub.Next()
		if !ok {
			return nil
		}
		return wrap(v)
	}
}

func (l *listeners) all() tea.Cmd {
	return tea.Batch(
		l.nextCreation(),
		l.nextGenerateEnabled(),
		l.nextSaveEnabled(),
		l.nextStyleOptions(),
		l.nextError(),
		l.nextSaveOutcome(),
		l.nextOpenURL(),
	)
}

func (l *listeners) nextCreation() tea.Cmd {
	return listen(l.creations, func(c pipeline.Creation) tea.Msg { return creationMsg(c) })
}

func (l *listeners) nextGenerateEnabled() tea.Cmd {
	return listen(l.generateEnabled, func(b bool) tea.Msg { return generateEnabledMsg(b) })
}

func (l *listeners) nextSaveEnabled() tea.Cmd {
	return listen(l.saveEnabled, func(b bool) tea.Msg { return saveEnabledMsg(b) })
}

func (l *listeners) nextStyleOptions() tea.Cmd {
	return listen(l.styleOptions, func(s []string) tea.Msg { return styleOptionsMsg(s) })
}

func (l *listeners) nextError() tea.Cmd {
	return listen(l.errors, func(s string) tea.Msg { return errorMsg(s) })
}

func (l *listeners) nextSaveOutcome() tea.Cmd {
	return listen(l.saveOutcomes, func(o pipeline.SaveOutcome) tea.Msg { return saveOutcomeMsg(o) })
}

func (l *listeners) nextOpenURL() tea.Cmd {
	return listen(l.openURL, func(u string) tea.Msg { return openURLMsg(u) })
}
