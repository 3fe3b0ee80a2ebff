package api

import (
	"context"
	stderrors "errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"reedfrost/app"
	"reedfrost/domain/core"
	"reedfrost/domain/epidemic"
	"reedfrost/internal/errors"
	"reedfrost/internal/profiling"

	"github.com/gin-gonic/gin"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// EpidemicHandler serves the Reed-Frost computations over JSON
type EpidemicHandler struct {
	service  *app.EpidemicService
	defaultP *float64
	timeout  time.Duration
	analyzer *profiling.DistributionAnalyzer
}

// NewEpidemicHandler creates a new epidemic handler. A nil defaultP makes p a
// required query parameter.
func NewEpidemicHandler(service *app.EpidemicService, defaultP *float64, timeout time.Duration) *EpidemicHandler {
	return &EpidemicHandler{
		service:  service,
		defaultP: defaultP,
		timeout:  timeout,
		analyzer: profiling.NewDistributionAnalyzer(),
	}
}

// RegisterRoutes mounts the handler on a gin router
func (h *EpidemicHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/healthz", h.Health)

	v1 := r.Group("/api/v1")
	v1.GET("/pmf", h.GetPMF)
	v1.GET("/distribution", h.GetDistribution)
	v1.GET("/trajectory", h.GetTrajectory)
	v1.GET("/cache", h.GetCacheStats)
	v1.DELETE("/cache", h.ResetCache)

	ensembles := v1.Group("/ensembles")
	ensembles.POST("", h.CreateEnsemble)
	ensembles.GET("", h.ListEnsembles)
	ensembles.GET("/:id", h.GetEnsemble)
	ensembles.GET("/:id/compare", h.CompareEnsemble)
}

// NewRouter builds a gin engine with the epidemic routes registered
func NewRouter(h *EpidemicHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	h.RegisterRoutes(router)
	return router
}

// Health reports liveness and the configured generator
func (h *EpidemicHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"algorithm": h.service.Algorithm(),
	})
}

// GetPMF returns P(s_inf | s, i, p)
func (h *EpidemicHandler) GetPMF(c *gin.Context) {
	sInf, err := queryUint(c, "s_inf", nil)
	if err != nil {
		h.respondError(c, err)
		return
	}
	s, i, p, err := h.startCondition(c, "s", "i")
	if err != nil {
		h.respondError(c, err)
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	prob, err := h.service.PMF(ctx, sInf, s, i, p)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"s_inf":       sInf,
		"s":           s,
		"i":           i,
		"p":           p,
		"probability": prob,
	})
}

// GetDistribution returns every final-size outcome for (s, i, p)
func (h *EpidemicHandler) GetDistribution(c *gin.Context) {
	s, i, p, err := h.startCondition(c, "s", "i")
	if err != nil {
		h.respondError(c, err)
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	dist, err := h.service.Distribution(ctx, s, i, p)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"params":          dist.Params,
		"outcomes":        dist.Outcomes,
		"total":           dist.Total(),
		"mean_final_size": dist.MeanFinalSize(),
		"mode":            dist.Mode(),
		"shape":           h.analyzer.AnalyzeDistribution(dist),
	})
}

// GetTrajectory simulates one seeded epidemic
func (h *EpidemicHandler) GetTrajectory(c *gin.Context) {
	s0, i0, p, err := h.startCondition(c, "s0", "i0")
	if err != nil {
		h.respondError(c, err)
		return
	}
	seed, err := queryUint64(c, "seed")
	if err != nil {
		h.respondError(c, err)
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.service.Trajectory(ctx, epidemic.Params{S0: s0, I0: i0, P: p}, seed)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ensembleRequest is the body of POST /api/v1/ensembles
type ensembleRequest struct {
	S0       uint     `json:"s0"`
	I0       uint     `json:"i0"`
	P        *float64 `json:"p"`
	Runs     int      `json:"runs" binding:"required,min=1"`
	BaseSeed uint64   `json:"base_seed"`
}

// CreateEnsemble simulates and stores a batch of trajectories
func (h *EpidemicHandler) CreateEnsemble(c *gin.Context) {
	var req ensembleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error(), "code": errors.CodeInvalidInput})
		return
	}

	p, err := h.resolveP(req.P)
	if err != nil {
		h.respondError(c, err)
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	run, err := h.service.RunEnsemble(ctx, app.EnsembleRequest{
		Params:   epidemic.Params{S0: req.S0, I0: req.I0, P: p},
		Runs:     req.Runs,
		BaseSeed: req.BaseSeed,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Location", "/api/v1/ensembles/"+run.ID.String())
	c.JSON(http.StatusCreated, run)
}

// GetEnsemble returns a stored ensemble
func (h *EpidemicHandler) GetEnsemble(c *gin.Context) {
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ensemble ID", "code": errors.CodeInvalidInput})
		return
	}

	run, err := h.service.GetEnsemble(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, run)
}

// ListEnsembles returns stored ensembles newest first, without trajectories
func (h *EpidemicHandler) ListEnsembles(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer", "code": errors.CodeInvalidInput})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer", "code": errors.CodeInvalidInput})
		return
	}

	runs, err := h.service.ListEnsembles(c.Request.Context(), min(limit, maxListLimit), offset)
	if err != nil {
		h.respondError(c, err)
		return
	}

	items := make([]gin.H, 0, len(runs))
	for _, run := range runs {
		items = append(items, gin.H{
			"id":         run.ID,
			"params":     run.Params,
			"runs":       run.Runs,
			"base_seed":  run.BaseSeed,
			"algorithm":  run.Algorithm,
			"summary":    run.Summary,
			"created_at": run.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"ensembles": items,
		"count":     len(items),
		"limit":     min(limit, maxListLimit),
		"offset":    offset,
	})
}

// CompareEnsemble returns the distance between a stored ensemble and the exact distribution
func (h *EpidemicHandler) CompareEnsemble(c *gin.Context) {
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ensemble ID", "code": errors.CodeInvalidInput})
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	cmp, err := h.service.CompareEnsemble(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, cmp)
}

// GetCacheStats reports final-size cache occupancy
func (h *EpidemicHandler) GetCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.CacheStats())
}

// ResetCache empties the final-size cache and returns the emptied stats
func (h *EpidemicHandler) ResetCache(c *gin.Context) {
	h.service.ResetCache()
	c.JSON(http.StatusOK, h.service.CacheStats())
}

func (h *EpidemicHandler) startCondition(c *gin.Context, sName, iName string) (uint, uint, float64, error) {
	s, err := queryUint(c, sName, nil)
	if err != nil {
		return 0, 0, 0, err
	}
	one := uint(1)
	i, err := queryUint(c, iName, &one)
	if err != nil {
		return 0, 0, 0, err
	}
	p, err := h.queryP(c)
	if err != nil {
		return 0, 0, 0, err
	}
	return s, i, p, nil
}

func (h *EpidemicHandler) queryP(c *gin.Context) (float64, error) {
	raw, ok := c.GetQuery("p")
	if !ok || raw == "" {
		return h.resolveP(nil)
	}
	p, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(p) {
		return 0, errors.InvalidInput("p must be a number in [0, 1]")
	}
	return h.resolveP(&p)
}

func (h *EpidemicHandler) resolveP(p *float64) (float64, error) {
	if p == nil {
		if h.defaultP == nil {
			return 0, errors.InvalidInput("p is required")
		}
		return *h.defaultP, nil
	}
	if err := epidemic.ValidateProbability(*p); err != nil {
		return 0, errors.Wrap(err, "invalid p")
	}
	return *p, nil
}

func (h *EpidemicHandler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

func (h *EpidemicHandler) respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	if code == "UNKNOWN" {
		code = errors.CodeFor(err)
	}
	status := errors.HTTPStatus(err)
	if status == http.StatusInternalServerError && (stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled)) {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

func queryUint(c *gin.Context, name string, fallback *uint) (uint, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		if fallback == nil {
			return 0, errors.InvalidInput(name + " is required")
		}
		return *fallback, nil
	}
	v, err := strconv.ParseUint(raw, 10, 0)
	if err != nil {
		return 0, errors.InvalidInput(name + " must be a non-negative integer")
	}
	return uint(v), nil
}

func queryUint64(c *gin.Context, name string) (uint64, error) {
	raw := c.DefaultQuery(name, "0")
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.InvalidInput(name + " must be a non-negative integer")
	}
	return v, nil
}
