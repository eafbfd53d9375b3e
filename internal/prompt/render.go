package prompt

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// renderState is the explicit option-element cache: a prompt starts
// uncompiled and holds the built component after the first render.
type renderState interface {
	isRenderState()
}

type uncompiled struct{}

type compiled struct {
	component templ.Component
}

func (uncompiled) isRenderState() {}
func (compiled) isRenderState()   {}

// renderer is the per-style rendering strategy.
type renderer interface {
	render(id string, cfg Config) templ.Component
}

// Component returns the prompt's modal markup, building it on first use
// and reusing the cached component afterwards.
func (p *Prompt) Component() templ.Component {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.view.(compiled); ok {
		return c.component
	}
	component := p.renderer.render(p.id, p.cfg)
	p.view = compiled{component: component}
	return component
}

// modal wraps option markup in the shared overlay: a close button, a
// dismiss form, and the outside-click/Escape wiring. All dismissal paths
// post to the same endpoint and resolve the same pending result.
func modal(id string, cfg Config, options templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		fmt.Fprintf(w, `<div class="prompt-overlay" id="prompt-overlay-%s">`, templ.EscapeString(id))
		fmt.Fprintf(w, `<div class="prompt-modal">`)
		fmt.Fprintf(w, `<form method="post" action="/prompt/%s/dismiss" id="prompt-dismiss-%s">`,
			templ.EscapeString(id), templ.EscapeString(id))
		fmt.Fprintf(w, `<button type="submit" class="prompt-close" aria-label="close">&times;</button>`)
		fmt.Fprintf(w, `</form>`)
		if cfg.Title != "" {
			fmt.Fprintf(w, `<h2>%s</h2>`, templ.EscapeString(cfg.Title))
		}
		if err := options.Render(ctx, w); err != nil {
			return err
		}
		fmt.Fprintf(w, `</div></div>`)
		fmt.Fprintf(w, `<script>(function(){`+
			`var overlay=document.getElementById("prompt-overlay-%s");`+
			`var dismiss=document.getElementById("prompt-dismiss-%s");`+
			`overlay.addEventListener("click",function(e){if(e.target===overlay){dismiss.submit();}});`+
			`document.addEventListener("keydown",function(e){if(e.key==="Escape"){dismiss.submit();}});`+
			`})();</script>`,
			templ.EscapeString(id), templ.EscapeString(id))
		return nil
	})
}

// radioRenderer renders options as a radio group with a submit button.
type radioRenderer struct{}

func (radioRenderer) render(id string, cfg Config) templ.Component {
	options := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		fmt.Fprintf(w, `<form method="post" action="/prompt/%s/submit">`, templ.EscapeString(id))
		for i, opt := range cfg.Options {
			fmt.Fprintf(w, `<label class="prompt-option"><input type="radio" name="value" value="%s"%s> %s`,
				templ.EscapeString(opt.Value), checked(i == 0), templ.EscapeString(opt.Message))
			if opt.Example != "" {
				fmt.Fprintf(w, `<code class="prompt-example">%s</code>`, templ.EscapeString(opt.Example))
			}
			fmt.Fprintf(w, `</label>`)
		}
		fmt.Fprintf(w, `<button type="submit">OK</button></form>`)
		return nil
	})
	return modal(id, cfg, options)
}

// tilesRenderer renders options as clickable tiles, each its own submit.
type tilesRenderer struct{}

func (tilesRenderer) render(id string, cfg Config) templ.Component {
	options := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		fmt.Fprintf(w, `<div class="prompt-tiles">`)
		for _, opt := range cfg.Options {
			fmt.Fprintf(w, `<form method="post" action="/prompt/%s/submit">`, templ.EscapeString(id))
			fmt.Fprintf(w, `<input type="hidden" name="value" value="%s">`, templ.EscapeString(opt.Value))
			fmt.Fprintf(w, `<button type="submit" class="prompt-tile"><strong>%s</strong>`,
				templ.EscapeString(opt.Message))
			if opt.Details != "" {
				fmt.Fprintf(w, `<span class="prompt-details">%s</span>`, templ.EscapeString(opt.Details))
			}
			fmt.Fprintf(w, `</button></form>`)
		}
		fmt.Fprintf(w, `</div>`)
		return nil
	})
	return modal(id, cfg, options)
}

func checked(yes bool) string {
	if yes {
		return ` checked`
	}
	return ""
}
