package main

import (
	"context"
	"image"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/literoom/engine/internal/cache"
	"github.com/literoom/engine/internal/catalog"
	"github.com/literoom/engine/internal/catalog/export"
	"github.com/literoom/engine/internal/editstate"
	"github.com/literoom/engine/internal/engineerr"
	"github.com/literoom/engine/internal/executor"
	"github.com/literoom/engine/internal/worker"
)

// requestTimeout bounds every HTTP-triggered render/export/scan so a
// stuck backend cannot hang the handler goroutine forever.
const requestTimeout = 30 * time.Second

// server bundles the handler dependencies cmd/literoomd wires at startup,
// the thin REST/WS wrapper spec.md §6 calls for around the worker's
// message-passing API.
type server struct {
	log     *zap.Logger
	w       *worker.Worker
	cache   *cache.Service
	source  *engineSource
	repo    catalog.Repository
	handle  catalog.DirectoryHandle
	scanner *catalog.Scanner
	hub     *hub
}

func newRouter(s *server) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/render", s.handleRender)
	r.POST("/export", s.handleExport)
	r.GET("/catalog/scan", s.handleScan)
	r.GET("/thumbnail/:id", s.handleThumbnail)
	r.GET("/preview/:id", s.handlePreview)
	r.GET("/ws", s.hub.handleWS)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type renderHTTPRequest struct {
	AssetID     string               `json:"assetId" binding:"required"`
	State       *editstate.EditState `json:"state" binding:"required"`
	Quality     executor.Quality     `json:"quality"`
	MaxLongEdge int                  `json:"maxLongEdge"`
}

func (s *server) handleRender(c *gin.Context) {
	var req renderHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := editstate.Validate(req.State); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	src, err := s.loadSourceImage(c.Request.Context(), req.AssetID)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	quality := req.Quality
	if quality == "" {
		quality = executor.QualityFull
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	resp, err := s.w.Submit(ctx, worker.RenderRequest{
		AssetID: req.AssetID,
		Source: &executor.Request{
			Source:      src,
			State:       req.State,
			Quality:     quality,
			MaxLongEdge: req.MaxLongEdge,
		},
	})
	if err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, renderResponseJSON(resp))
}

type exportHTTPRequest struct {
	AssetID      string                   `json:"assetId" binding:"required"`
	State        *editstate.EditState     `json:"state" binding:"required"`
	Template     string                   `json:"template"`
	Preset       export.LongEdgePreset    `json:"preset"`
	Quality      int                      `json:"quality"`
	OutputDir    string                   `json:"outputDir" binding:"required"`
}

func (s *server) handleExport(c *gin.Context) {
	var req exportHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := editstate.Validate(req.State); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	template := req.Template
	if template == "" {
		template = export.DefaultTemplate
	}
	if err := export.Validate(template); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := uuid.Parse(req.AssetID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "assetId is not a UUID"})
		return
	}
	asset, err := s.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	src, err := s.loadSourceImage(c.Request.Context(), req.AssetID)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	resp, err := s.w.Submit(ctx, worker.RenderRequest{
		AssetID: req.AssetID,
		Source: &executor.Request{
			Source:  src,
			State:   req.State,
			Quality: executor.QualityFull,
		},
	})
	if err != nil {
		writeEngineError(c, err)
		return
	}

	encoded, err := export.EncodeJPEG(resp.Result.Image, export.Options{Preset: req.Preset, Quality: req.Quality})
	if err != nil {
		writeEngineError(c, err)
		return
	}

	modTime := time.Now()
	if f, openErr := s.handle.Open(asset.Path); openErr == nil {
		if info, statErr := f.Stat(); statErr == nil {
			modTime = info.ModTime()
		}
		f.Close()
	}
	origStem, _ := export.SplitName(asset.Filename)
	name, err := export.Render(template, export.Params{
		OriginalBasename: origStem,
		CaptureTime:      asset.CapturedAt,
		FileModTime:      modTime,
	})
	if err != nil {
		writeEngineError(c, err)
		return
	}
	stem, ext := export.SplitName(name)
	if ext == "" {
		ext = ".jpg"
	}

	finalName, err := export.ResolveCollision(stem, ext, func(candidate string) (bool, error) {
		f, openErr := s.handle.Open(req.OutputDir + "/" + candidate)
		if openErr != nil {
			if engineerr.Is(openErr, engineerr.NotFound) {
				return false, nil
			}
			return false, openErr
		}
		f.Close()
		return true, nil
	})
	if err != nil {
		writeEngineError(c, err)
		return
	}

	outPath := req.OutputDir + "/" + finalName
	if err := s.handle.WriteFile(outPath, encoded); err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"path": outPath, "bytes": len(encoded)})
}

func (s *server) handleScan(c *gin.Context) {
	root := c.Query("root")
	if root == "" {
		root = "."
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Minute)
	defer cancel()

	count, err := s.scanner.Scan(ctx, root)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"discovered": count})
}

func (s *server) handleThumbnail(c *gin.Context) {
	s.handleCacheTier(c, cache.SizeThumbnail)
}

func (s *server) handlePreview(c *gin.Context) {
	s.handleCacheTier(c, cache.SizePreview)
}

func (s *server) handleCacheTier(c *gin.Context, size cache.Size) {
	assetID := c.Param("id")
	key := cache.Key{AssetID: assetID, Size: size}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	select {
	case outcome := <-s.cache.Request(key, cache.PriorityVisible):
		if outcome.Err != nil {
			writeEngineError(c, outcome.Err)
			return
		}
		c.Header("Content-Type", "image/png")
		writePNG(c.Writer, outcome.Image)
	case <-ctx.Done():
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "cache generation timed out"})
	}
}

func (s *server) loadSourceImage(ctx context.Context, assetID string) (*image.RGBA, error) {
	return s.source.LoadFull(assetID)
}

func renderResponseJSON(resp worker.RenderResponse) gin.H {
	body := gin.H{"id": resp.ID, "backend": resp.Backend}
	if resp.Result != nil {
		if resp.Result.Histogram != nil {
			body["histogram"] = resp.Result.Histogram
		}
		if resp.Result.Clipping != nil {
			body["clippingCount"] = len(resp.Result.Clipping)
		}
	}
	return body
}

func writeEngineError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch engineerr.KindOf(err) {
	case engineerr.InvalidFormat, engineerr.Corrupted:
		status = http.StatusBadRequest
	case engineerr.NotFound:
		status = http.StatusNotFound
	case engineerr.PermissionDenied:
		status = http.StatusForbidden
	case engineerr.Cancelled:
		status = http.StatusRequestTimeout
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
