package ui

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"reedfrost/app"
	"reedfrost/domain/epidemic"
	"reedfrost/internal"
	"reedfrost/internal/errors"
	"reedfrost/internal/report"
)

//go:embed templates/*
var embeddedFiles embed.FS

// Form defaults match the original interactive page
const (
	defaultS0   = 10
	defaultI0   = 1
	defaultRuns = 100
	defaultSeed = 44
)

// App represents the UI application
type App struct {
	router    *chi.Mux
	service   *app.EpidemicService
	templates *template.Template
	config    Config
	logger    *internal.Logger
}

// Config holds UI application configuration
type Config struct {
	// DefaultP pre-fills the form; nil leaves p empty until the user supplies it
	DefaultP  *float64
	Profiling bool
}

// pageData is rendered by templates/index.html
type pageData struct {
	Title  string
	S0     uint
	I0     uint
	P      string
	Runs   int
	Seed   uint64
	Error  string
	Report template.HTML
}

// NewApp creates a new UI application
func NewApp(service *app.EpidemicService, config Config, logger *internal.Logger) (*App, error) {
	if logger == nil {
		logger = internal.DefaultLogger
	}

	templates, err := template.New("").ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	a := &App{
		router:    chi.NewRouter(),
		service:   service,
		templates: templates,
		config:    config,
		logger:    logger.With("ui"),
	}

	a.setupMiddleware()
	a.setupRoutes()

	return a, nil
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	a.router.Get("/", a.handleIndex)
	if a.config.Profiling {
		a.router.Mount("/debug", middleware.Profiler())
	}
}

// Handler exposes the router, mainly for tests
func (a *App) Handler() http.Handler {
	return a.router
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		Title: "Reed-Frost explorer",
		S0:    defaultS0,
		I0:    defaultI0,
		Runs:  defaultRuns,
		Seed:  defaultSeed,
	}
	if a.config.DefaultP != nil {
		data.P = strconv.FormatFloat(*a.config.DefaultP, 'g', -1, 64)
	}

	status := http.StatusOK
	if err := a.fillForm(r, &data); err != nil {
		data.Error = err.Error()
		status = http.StatusBadRequest
	} else if data.P != "" {
		html, err := a.buildReport(r, data)
		if err != nil {
			data.Error = err.Error()
			status = errors.HTTPStatus(err)
		} else {
			data.Report = template.HTML(html)
		}
	}

	a.renderTemplate(w, status, "index.html", data)
}

func (a *App) fillForm(r *http.Request, data *pageData) error {
	q := r.URL.Query()
	if v := q.Get("s0"); v != "" {
		n, err := strconv.ParseUint(v, 10, 0)
		if err != nil {
			return fmt.Errorf("initial S must be a non-negative integer")
		}
		data.S0 = uint(n)
	}
	if v := q.Get("i0"); v != "" {
		n, err := strconv.ParseUint(v, 10, 0)
		if err != nil {
			return fmt.Errorf("initial I must be a non-negative integer")
		}
		data.I0 = uint(n)
	}
	if v := q.Get("runs"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("trajectories must be a non-negative integer")
		}
		data.Runs = n
	}
	if v := q.Get("seed"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("seed must be a non-negative integer")
		}
		data.Seed = n
	}
	if v := q.Get("p"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("probability must be a number")
		}
		if err := epidemic.ValidateProbability(p); err != nil {
			return err
		}
		data.P = v
	}
	return nil
}

func (a *App) buildReport(r *http.Request, data pageData) ([]byte, error) {
	ctx := r.Context()
	p, _ := strconv.ParseFloat(data.P, 64)
	params := epidemic.Params{S0: data.S0, I0: data.I0, P: p}

	dist, err := a.service.Distribution(ctx, params.S0, params.I0, params.P)
	if err != nil {
		return nil, err
	}

	rep := report.New("")
	rep.Distribution = &dist

	if data.Runs > 0 {
		run, err := a.service.SimulateEnsemble(ctx, app.EnsembleRequest{Params: params, Runs: data.Runs, BaseSeed: data.Seed})
		if err != nil {
			return nil, err
		}
		cmp, err := a.service.Compare(ctx, run)
		if err != nil {
			return nil, err
		}
		rep.Ensemble = run
		rep.TotalVariation = cmp.TotalVariationDistance
	}

	return rep.HTML(), nil
}

// Template helpers
func (a *App) renderTemplate(w http.ResponseWriter, status int, templateName string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := a.templates.ExecuteTemplate(w, templateName, data); err != nil {
		a.logger.Error("Template error: %v", err)
	}
}
