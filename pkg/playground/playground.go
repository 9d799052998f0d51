// Package playground is a http.Handler hosting the GraphQL Playground application.
package playground

import (
	_ "embed"
	"encoding/json"
	"html/template"
	"net/http"
	"path"
	"strings"
)

const (
	playgroundTemplate = "playgroundTemplate"

	defaultTitle      = "GraphQL Playground"
	defaultAssetsBase = "https://cdn.jsdelivr.net/npm/graphql-playground-react@1.7.28/build"
)

const (
	contentTypeHeader   = "Content-Type"
	contentTypeTextHTML = "text/html; charset=utf-8"
)

//go:embed files/playground.html
var playgroundHTML string

// Config is the configuration Object to instruct Handlers on how to setup the http Handler for the playground
type Config struct {
	// PathPrefix is a prefix you intend to put in front of all handlers
	PathPrefix string
	// PlaygroundPath is the Path where the playground website should be hosted
	PlaygroundPath string
	// GraphqlEndpointPath is the Path where the http Handler for synchronous (Query,Mutation) GraphQL requests is hosted
	GraphqlEndpointPath string
	// Title is the html page title, defaults to "GraphQL Playground"
	Title string
	// AssetsBaseURL is where the playground css, js and favicon are loaded from, defaults to the jsdelivr CDN
	AssetsBaseURL string
	Settings      Settings
}

type playgroundTemplateData struct {
	Title       string
	CssURL      string
	JsURL       string
	FavIconURL  string
	EndpointURL template.JS
	Settings    template.JS
}

// HandlerConfig is the configuration Object for all playground http Handlers
type HandlerConfig struct {
	// Path is where the handler should be hosted
	Path string
	// Handler is the http.HandlerFunc that should be hosted on the corresponding Path
	Handler http.HandlerFunc
}

// Handlers is an array of HandlerConfig
// The playground expects that you make all assigned Handlers available on the corresponding Path
type Handlers []HandlerConfig

func (h *Handlers) add(path string, handler http.HandlerFunc) {
	*h = append(*h, HandlerConfig{
		Path:    path,
		Handler: handler,
	})
}

type Playground struct {
	cfg  Config
	data playgroundTemplateData
	tmpl *template.Template
}

func New(config Config) *Playground {
	title := config.Title
	if title == "" {
		title = defaultTitle
	}
	assetsBase := strings.TrimSuffix(config.AssetsBaseURL, "/")
	if assetsBase == "" {
		assetsBase = defaultAssetsBase
	}

	return &Playground{
		cfg: config,
		data: playgroundTemplateData{
			Title:      title,
			CssURL:     assetsBase + "/static/css/index.css",
			JsURL:      assetsBase + "/static/js/middleware.js",
			FavIconURL: assetsBase + "/favicon.png",
		},
	}
}

// Handlers validates the settings and returns the handler serving the playground page.
func (p *Playground) Handlers() (Handlers, error) {
	if err := p.prepare(); err != nil {
		return nil, err
	}

	handlers := make(Handlers, 0, 1)
	handlers.add(p.playgroundPath(), p.ServeHTTP)
	return handlers, nil
}

// ServeHTTP renders the playground page. Handlers must have been called before.
func (p *Playground) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(contentTypeHeader, contentTypeTextHTML)
	err := p.tmpl.ExecuteTemplate(w, playgroundTemplate, p.data)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(err.Error()))
	}
}

func (p *Playground) prepare() error {
	if p.tmpl != nil {
		return nil
	}

	if err := p.cfg.Settings.Validate(); err != nil {
		return err
	}

	settings, err := json.Marshal(p.cfg.Settings.Map())
	if err != nil {
		return err
	}
	endpoint, err := json.Marshal(p.endpointPath())
	if err != nil {
		return err
	}
	p.data.Settings = template.JS(settings)
	p.data.EndpointURL = template.JS(endpoint)

	p.tmpl, err = template.New(playgroundTemplate).Parse(playgroundHTML)
	return err
}

func (p *Playground) playgroundPath() string {
	playgroundPath := path.Join("/", p.cfg.PathPrefix, p.cfg.PlaygroundPath)
	if strings.HasSuffix(p.cfg.PlaygroundPath, "/") && playgroundPath != "/" {
		playgroundPath += "/"
	}
	return playgroundPath
}

func (p *Playground) endpointPath() string {
	endpointPath := path.Join("/", p.cfg.PathPrefix, p.cfg.GraphqlEndpointPath)
	if strings.HasSuffix(p.cfg.GraphqlEndpointPath, "/") && endpointPath != "/" {
		endpointPath += "/"
	}
	return endpointPath
}
