package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"listbridge/internal/auth"
	"listbridge/internal/listcache"
	"listbridge/internal/platform"
	"listbridge/internal/reconcile"
	"listbridge/internal/syncer"
	"listbridge/pkg/models"
)

// Handler wires the compare/import/sync engine into the HTTP surface.
type Handler struct {
	Fetcher        *platform.Fetcher
	Reconciler     *reconcile.Reconciler
	Driver         *syncer.Driver
	Runs           *syncer.RunRepo
	Snapshots      *listcache.Repo // optional
	ImportMaxBytes int64
}

func NewHandler(fetcher *platform.Fetcher, rec *reconcile.Reconciler, driver *syncer.Driver, runs *syncer.RunRepo, snapshots *listcache.Repo, importMaxBytes int64) *Handler {
	if importMaxBytes <= 0 {
		importMaxBytes = reconcile.DefaultMaxImportBytes
	}
	return &Handler{
		Fetcher:        fetcher,
		Reconciler:     rec,
		Driver:         driver,
		Runs:           runs,
		Snapshots:      snapshots,
		ImportMaxBytes: importMaxBytes,
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/compare", h.compare)
	rg.POST("/import", h.importJSON)
	rg.POST("/sync", h.startSync)
	rg.POST("/sync/cancel", h.cancelSync)
	rg.GET("/sync/status", h.syncStatus)
	rg.GET("/runs", h.listRuns)
	rg.GET("/runs/:id", h.getRun)
}

type compareReq struct {
	Kind            string `json:"kind"`
	MALUsername     string `json:"mal_username"`
	AniListUsername string `json:"anilist_username"`
	Cached          bool   `json:"cached"`
}

// compare fetches both lists and returns the three-way partition. Usernames
// default to the ones linked to the account. With "cached": true the stored
// snapshots from an earlier compare are reused instead of refetching.
func (h *Handler) compare(c *gin.Context) {
	var req compareReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	kind, ok := parseKind(req.Kind)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be anime or manga"})
		return
	}

	malUser := strings.TrimSpace(req.MALUsername)
	anilistUser := strings.TrimSpace(req.AniListUsername)
	if claims := auth.MustGetClaims(c); claims != nil {
		if malUser == "" {
			malUser = claims.MALUsername
		}
		if anilistUser == "" {
			anilistUser = claims.AniListUsername
		}
	}
	if malUser == "" || anilistUser == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mal_username and anilist_username required (link them or pass them)"})
		return
	}

	if req.Cached {
		h.compareCached(c, malUser, anilistUser, kind)
		return
	}

	fetched := h.Fetcher.FetchBoth(c.Request.Context(), malUser, anilistUser, kind)
	if fetched.AllFailed() {
		c.JSON(http.StatusBadGateway, gin.H{"error": "fetch failed", "details": fetched.Errors})
		return
	}

	if h.Snapshots != nil {
		// best effort: comparisons still work if snapshots fail to persist
		if !fetched.Failed(models.PlatformMAL) {
			_, _ = h.Snapshots.Save(c.Request.Context(), models.PlatformMAL, malUser, kind, fetched.MAL)
		}
		if !fetched.Failed(models.PlatformAniList) {
			_, _ = h.Snapshots.Save(c.Request.Context(), models.PlatformAniList, anilistUser, kind, fetched.AniList)
		}
	}

	// A single failed platform degrades to a one-sided comparison: the
	// partition is still correct for the side that was retrieved.
	result := h.Reconciler.Compare(fetched.MAL, fetched.AniList)
	resp := gin.H{
		"kind":          kind,
		"mal_count":     len(fetched.MAL),
		"anilist_count": len(fetched.AniList),
		"result":        result,
	}
	if len(fetched.Errors) > 0 {
		resp["fetch_errors"] = fetched.Errors
	}
	c.JSON(http.StatusOK, resp)
}

// compareCached compares the newest stored snapshots without touching either
// platform.
func (h *Handler) compareCached(c *gin.Context, malUser, anilistUser string, kind models.Kind) {
	if h.Snapshots == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "snapshot storage not enabled"})
		return
	}

	malSnap, err := h.Snapshots.Latest(c.Request.Context(), models.PlatformMAL, malUser, kind)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load mal snapshot failed"})
		return
	}
	anilistSnap, err := h.Snapshots.Latest(c.Request.Context(), models.PlatformAniList, anilistUser, kind)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load anilist snapshot failed"})
		return
	}
	if malSnap == nil || anilistSnap == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no stored snapshot; run a live compare first"})
		return
	}

	result := h.Reconciler.Compare(malSnap.Entries, anilistSnap.Entries)
	c.JSON(http.StatusOK, gin.H{
		"kind":               kind,
		"cached":             true,
		"mal_count":          len(malSnap.Entries),
		"anilist_count":      len(anilistSnap.Entries),
		"mal_fetched_at":     malSnap.FetchedAt,
		"anilist_fetched_at": anilistSnap.FetchedAt,
		"result":             result,
	})
}

// importJSON parses an uploaded list export. The body is the raw JSON array.
func (h *Handler) importJSON(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, h.ImportMaxBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body failed"})
		return
	}

	entries, format, err := reconcile.ParseImport(data, h.ImportMaxBytes)
	if err != nil {
		if errors.Is(err, reconcile.ErrInvalidFormat) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "import failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"format":  format,
		"count":   len(entries),
		"entries": entries,
	})
}

type syncReq struct {
	Target  string         `json:"target"`
	Kind    string         `json:"kind"`
	Entries []models.Entry `json:"entries"`
}

// startSync launches a background run and returns its ID. Progress streams
// over the TCP/WebSocket event feed.
func (h *Handler) startSync(c *gin.Context) {
	var req syncReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	target := models.Platform(strings.ToLower(strings.TrimSpace(req.Target)))
	if target != models.PlatformMAL && target != models.PlatformAniList {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target must be mal or anilist"})
		return
	}
	kind, ok := parseKind(req.Kind)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be anime or manga"})
		return
	}

	// The run outlives this request.
	runID, err := h.Driver.Start(context.WithoutCancel(c.Request.Context()), req.Entries, target, kind)
	if err != nil {
		if errors.Is(err, syncer.ErrSyncRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "run_id": h.Driver.RunID()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"run_id": runID,
		"state":  syncer.StateRunning,
		"total":  len(req.Entries),
	})
}

func (h *Handler) cancelSync(c *gin.Context) {
	state := h.Driver.State()
	if state != syncer.StateRunning {
		c.JSON(http.StatusConflict, gin.H{"error": "no sync in progress", "state": state})
		return
	}
	h.Driver.Cancel()
	c.JSON(http.StatusOK, gin.H{"status": "cancel requested", "run_id": h.Driver.RunID()})
}

func (h *Handler) syncStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"state":  h.Driver.State(),
		"run_id": h.Driver.RunID(),
	})
}

func (h *Handler) listRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	runs, err := h.Runs.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list runs failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (h *Handler) getRun(c *gin.Context) {
	run, err := h.Runs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get run failed"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, run)
}

func parseKind(s string) (models.Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "anime", "":
		return models.KindAnime, true
	case "manga":
		return models.KindManga, true
	}
	return "", false
}
