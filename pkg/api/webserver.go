package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chenBenjamin97/football-tactics/pkg/pipeline"
	"github.com/chenBenjamin97/football-tactics/pkg/storage"
	"github.com/chenBenjamin97/football-tactics/pkg/tactics"
	"github.com/chenBenjamin97/football-tactics/pkg/utils"
	"github.com/chenBenjamin97/football-tactics/pkg/video"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

//Analyzer runs the pipeline for one stored video
type Analyzer interface {
	Analyze(ctx context.Context, req pipeline.Request, opts pipeline.Options) (*tactics.Report, error)
}

//ProbeFunc returns a local video's duration in seconds and native fps
type ProbeFunc func(videoPath string) (float64, float64, error)

//Config holds the HTTP layer settings
type Config struct {
	//Token enables bearer authentication on /api routes when not empty
	Token             string
	MaxUploadBytes    int64
	MaxDurationSec    float64
	AllowedExtensions []string
	TmpDir            string
	ModelName         string
	Options           pipeline.Options
	//Probe defaults to video.Probe
	Probe ProbeFunc
}

//Server wires the HTTP routes to the pipeline and the stores. Recorder is optional.
type Server struct {
	Analyzer Analyzer
	Blob     storage.Blob
	Recorder storage.Recorder
	Config   Config
}

//analyzeForm holds the optional per-request overrides of the configured options
type analyzeForm struct {
	SampleFPS           *float64 `form:"sample_fps"`
	Width               *int     `form:"width"`
	Height              *int     `form:"height"`
	ConfidenceThreshold *float64 `form:"confidence_threshold"`
	NMSThreshold        *float64 `form:"nms_threshold"`
	MaxTrackStaleness   *int     `form:"max_track_staleness"`
}

func (f analyzeForm) apply(o pipeline.Options) pipeline.Options {
	if f.SampleFPS != nil {
		o.SampleFPS = *f.SampleFPS
	}
	if f.Width != nil {
		o.Width = *f.Width
	}
	if f.Height != nil {
		o.Height = *f.Height
	}
	if f.ConfidenceThreshold != nil {
		o.ConfidenceThreshold = *f.ConfidenceThreshold
	}
	if f.NMSThreshold != nil {
		o.NMSThreshold = *f.NMSThreshold
	}
	if f.MaxTrackStaleness != nil {
		o.MaxTrackStaleness = *f.MaxTrackStaleness
	}
	return o
}

//uploadError is a client error found while validating an upload
type uploadError struct {
	msg string
}

func (e *uploadError) Error() string { return e.msg }

func SetRouter(s *Server) *gin.Engine {
	if s.Config.Probe == nil {
		s.Config.Probe = video.Probe
	}
	if len(s.Config.AllowedExtensions) == 0 {
		s.Config.AllowedExtensions = utils.AllowedVideoExtensions
	}

	r := gin.Default()
	r.MaxMultipartMemory = 32 << 20

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"status":       "healthy",
			"service":      "football-tactics",
			"model":        s.Config.ModelName,
			"model_loaded": s.Analyzer != nil,
			"storage":      s.Blob.Name(),
			"timestamp":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	apiRoutes := r.Group("/api")
	apiRoutes.Use(bearerAuth(s.Config.Token))

	apiRoutes.POST("/upload", func(ctx *gin.Context) {
		videoID, videoURL, tmpPath, err := s.receiveUpload(ctx)
		if tmpPath != "" {
			defer os.Remove(tmpPath)
		}
		if err != nil {
			writeUploadError(ctx, err)
			return
		}

		ctx.JSON(http.StatusOK, gin.H{"status": "uploaded", "video_id": videoID, "video_url": videoURL})
	})

	apiRoutes.POST("/analyze", func(ctx *gin.Context) {
		var form analyzeForm
		if err := ctx.ShouldBind(&form); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid analysis options: %v", err)})
			return
		}
		opts := form.apply(s.Config.Options)
		if err := opts.Validate(); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		videoID, videoURL, tmpPath, err := s.receiveUpload(ctx)
		if tmpPath != "" {
			defer os.Remove(tmpPath)
		}
		if err != nil {
			writeUploadError(ctx, err)
			return
		}

		ext := strings.ToLower(filepath.Ext(tmpPath))
		report, err := s.Analyzer.Analyze(ctx.Request.Context(), pipeline.Request{
			VideoID:  videoID,
			Source:   storage.VideoPath(videoID, ext),
			VideoURL: videoURL,
		}, opts)
		if err != nil {
			log.Printf("api/analyze: %s failed, got '%v'", videoID, err)
			writeAnalysisError(ctx, videoID, err)
			return
		}

		ctx.JSON(http.StatusOK, report)
	})

	apiRoutes.GET("/results/:video_id", func(ctx *gin.Context) {
		videoID, ok := videoIDParam(ctx)
		if !ok {
			return
		}

		data, err := s.Blob.Get(ctx.Request.Context(), storage.ResultPath(videoID))
		if err == nil {
			ctx.Data(http.StatusOK, "application/json", data)
			return
		}
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("api/results: %s blob read failed, got '%v'", videoID, err)
		}

		if s.Recorder != nil {
			row, rerr := s.Recorder.Latest(ctx.Request.Context(), videoID)
			if rerr == nil {
				ctx.Data(http.StatusOK, "application/json", []byte(row.AnalysisData))
				return
			}
			if !errors.Is(rerr, storage.ErrNotFound) {
				log.Printf("api/results: %s analyses lookup failed, got '%v'", videoID, rerr)
			}
		}

		if errors.Is(err, storage.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "results not found", "video_id": videoID})
			return
		}
		ctx.JSON(http.StatusBadGateway, gin.H{"error": "storage unavailable", "video_id": videoID})
	})

	apiRoutes.GET("/frames/:video_id", func(ctx *gin.Context) {
		videoID, ok := videoIDParam(ctx)
		if !ok {
			return
		}

		names, err := s.Blob.List(ctx.Request.Context(), storage.FramesPrefix(videoID))
		if err != nil {
			log.Printf("api/frames: %s list failed, got '%v'", videoID, err)
			ctx.JSON(http.StatusBadGateway, gin.H{"error": "storage unavailable", "video_id": videoID})
			return
		}

		frames := make([]gin.H, 0, len(names))
		for _, n := range names {
			frames = append(frames, gin.H{"path": n, "url": s.Blob.URL(n)})
		}
		ctx.JSON(http.StatusOK, gin.H{"video_id": videoID, "frame_count": len(frames), "frames": frames})
	})

	return r
}

//receiveUpload validates the multipart "video" file, probes it and stores it under a fresh video id.
//The returned temp path must be removed by the caller even on error.
func (s *Server) receiveUpload(ctx *gin.Context) (videoID, videoURL, tmpPath string, err error) {
	file, fHeader, err := ctx.Request.FormFile("video")
	if err != nil {
		return "", "", "", &uploadError{"no video file provided"}
	}
	defer file.Close()
	log.Printf("api/upload: Received new file: name - '%s', size - %v Bytes", fHeader.Filename, fHeader.Size)

	ext := strings.ToLower(filepath.Ext(fHeader.Filename))
	if !utils.InSlice(ext, s.Config.AllowedExtensions) {
		return "", "", "", &uploadError{fmt.Sprintf("invalid file format '%s', allowed: %s", ext, strings.Join(s.Config.AllowedExtensions, ", "))}
	}
	if s.Config.MaxUploadBytes > 0 && fHeader.Size > s.Config.MaxUploadBytes {
		return "", "", "", &uploadError{fmt.Sprintf("file too large, max %dMB", s.Config.MaxUploadBytes>>20)}
	}

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		return "", "", "", fmt.Errorf("could not read request's body, got '%v'", err)
	}

	tmp, err := os.CreateTemp(s.Config.TmpDir, "upload-*"+ext)
	if err != nil {
		return "", "", "", fmt.Errorf("could not create temp file, got '%v'", err)
	}
	tmpPath = tmp.Name()
	_, werr := tmp.Write(fileBytes)
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return "", "", tmpPath, fmt.Errorf("could not write '%s', got '%v'", tmpPath, werr)
	}

	duration, _, err := s.Config.Probe(tmpPath)
	if err != nil {
		return "", "", tmpPath, &uploadError{"invalid video file"}
	}
	if s.Config.MaxDurationSec > 0 && duration > s.Config.MaxDurationSec {
		return "", "", tmpPath, &uploadError{fmt.Sprintf("video too long (%.0fs), max %.0fs", duration, s.Config.MaxDurationSec)}
	}

	videoID = uuid.New().String()
	videoURL, err = s.Blob.Put(ctx.Request.Context(), fileBytes, storage.VideoPath(videoID, ext), "video/"+strings.TrimPrefix(ext, "."))
	if err != nil {
		return "", "", tmpPath, fmt.Errorf("%w: %v", pipeline.ErrCollaboratorUnavailable, err)
	}
	log.Printf("api/upload: stored %s at %s", videoID, videoURL)

	return videoID, videoURL, tmpPath, nil
}

func writeUploadError(ctx *gin.Context, err error) {
	var ue *uploadError
	switch {
	case errors.As(err, &ue):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": ue.msg})
	case errors.Is(err, pipeline.ErrCollaboratorUnavailable):
		log.Printf("api/upload: %v", err)
		ctx.JSON(http.StatusBadGateway, gin.H{"error": "storage unavailable"})
	default:
		log.Printf("api/upload: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
	}
}

func writeAnalysisError(ctx *gin.Context, videoID string, err error) {
	var se *pipeline.StageError
	switch {
	case errors.Is(err, pipeline.ErrInvalidOptions):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "video_id": videoID})
	case errors.As(err, &se) && se.Stage == pipeline.StageStorage:
		ctx.JSON(http.StatusBadGateway, gin.H{"error": se.Err.Error(), "stage": se.Stage, "video_id": videoID})
	case errors.As(err, &se):
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": se.Err.Error(), "stage": se.Stage, "video_id": videoID})
	default:
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "video_id": videoID})
	}
}

func videoIDParam(ctx *gin.Context) (string, bool) {
	videoID := ctx.Param("video_id")
	if _, err := uuid.Parse(videoID); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid video id"})
		return "", false
	}
	return videoID, true
}

//bearerAuth requires "Authorization: Bearer <token>" when token is not empty
func bearerAuth(token string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if token == "" {
			ctx.Next()
			return
		}

		header := ctx.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid authorization header"})
			return
		}
		given := strings.TrimPrefix(header, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		ctx.Next()
	}
}
