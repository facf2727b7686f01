package web

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"

	"carpet-studio/internal/gemini"
	"carpet-studio/internal/scene"
	"carpet-studio/internal/settings"
	"carpet-studio/internal/studio"
)

func (s *Server) catalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"carpetColors":    scene.CarpetColors(),
		"carpetTypes":     scene.CarpetMaterials(),
		"moods":           scene.Moods(),
		"lights":          scene.Lights(),
		"cameraPositions": scene.CameraPositions(),
		"cameraTypes":     scene.CameraTypes(),
		"ratios":          scene.AspectRatios(),
		"resolutions":     scene.Resolutions(),
		"ornaments":       scene.OrnamentOptions(),
		"models":          scene.Models(),
		"presets":         scene.Presets(),
	})
}

func (s *Server) createSession(c *gin.Context) {
	id := s.studio.NewSession(c.Request.Context())
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) status(c *gin.Context) {
	status, err := s.studio.Status(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

// uploadImage accepts a multipart "image" field or a raw image body.
func (s *Server) uploadImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadBytes)

	var raw []byte
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("image")
		if err != nil {
			badRequest(c, "missing image")
			return
		}
		f, err := fh.Open()
		if err != nil {
			badRequest(c, "failed to read image")
			return
		}
		defer f.Close()
		raw, err = io.ReadAll(f)
		if err != nil {
			badRequest(c, "failed to read image")
			return
		}
	} else {
		var err error
		raw, err = io.ReadAll(c.Request.Body)
		if err != nil {
			badRequest(c, "failed to read image")
			return
		}
	}

	if err := s.studio.LoadSource(c.Request.Context(), c.Param("id"), raw); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "loaded"})
}

func (s *Server) sourceImage(c *gin.Context) {
	raw, err := s.studio.Source(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, http.DetectContentType(raw), raw)
}

func (s *Server) autoCutout(c *gin.Context) {
	ctx, cancel := s.withTimeout(c)
	defer cancel()

	if err := s.studio.AutoRemove(ctx, c.Param("id"), nil); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cutout ready"})
}

type openMaskRequest struct {
	BrushRadius float64 `json:"brushRadius"`
}

func (s *Server) openMask(c *gin.Context) {
	var req openMaskRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid json body")
			return
		}
	}
	if err := s.studio.OpenMask(c.Request.Context(), c.Param("id"), req.BrushRadius); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "mask open"})
}

func (s *Server) closeMask(c *gin.Context) {
	if err := s.studio.CloseMask(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type strokesRequest struct {
	Strokes []studio.Stroke `json:"strokes"`
}

func (s *Server) paint(c *gin.Context) {
	var req strokesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json body")
		return
	}
	if err := s.studio.Paint(c.Request.Context(), c.Param("id"), req.Strokes); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"strokes": len(req.Strokes)})
}

func (s *Server) clearMask(c *gin.Context) {
	if err := s.studio.ClearMask(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "mask cleared"})
}

func (s *Server) maskPreview(c *gin.Context) {
	img, err := s.studio.MaskPreview(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (s *Server) commitMask(c *gin.Context) {
	if err := s.studio.CommitMask(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cutout ready"})
}

func (s *Server) getSettings(c *gin.Context) {
	snap, err := s.studio.Settings(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, redact(snap))
}

// putSettings merges the JSON body over the current settings, so clients can
// send only the fields they change.
func (s *Server) putSettings(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequest(c, "failed to read body")
		return
	}
	snap, err := s.studio.UpdateSettings(c.Request.Context(), c.Param("id"), func(cur settings.Snapshot) (settings.Snapshot, error) {
		merged := cur
		if err := jsonUnmarshal(body, &merged); err != nil {
			return cur, err
		}
		return merged, nil
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, redact(snap))
}

func (s *Server) resetSettings(c *gin.Context) {
	snap, err := s.studio.ResetSettings(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, redact(snap))
}

type ornamentRequest struct {
	Action string `json:"action" binding:"required,oneof=add remove none"`
	Item   string `json:"item"`
}

func (s *Server) ornaments(c *gin.Context) {
	var req ornamentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "action must be add, remove or none")
		return
	}
	snap, err := s.studio.UpdateSettings(c.Request.Context(), c.Param("id"), func(cur settings.Snapshot) (settings.Snapshot, error) {
		cur.Settings = cur.WithOrnaments(func(o scene.Ornaments) scene.Ornaments {
			switch req.Action {
			case "add":
				return o.Add(req.Item)
			case "remove":
				return o.Remove(req.Item)
			}
			return o.SetNone()
		})
		return cur, nil
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ornaments": snap.Ornaments.Items()})
}

func (s *Server) preset(c *gin.Context) {
	snap, err := s.studio.UpdateSettings(c.Request.Context(), c.Param("id"), func(cur settings.Snapshot) (settings.Snapshot, error) {
		next, err := scene.ApplyPreset(cur.Settings, c.Param("name"))
		if err != nil {
			return cur, err
		}
		cur.Settings = next
		return cur, nil
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, redact(snap))
}

func (s *Server) prompts(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	a, b, err := s.studio.Prompts(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	lastA, lastB, err := s.studio.LastPrompts(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"a": a, "b": b, "lastA": lastA, "lastB": lastB})
}

func (s *Server) generate(c *gin.Context) {
	ctx, cancel := s.withTimeout(c)
	defer cancel()

	if err := s.studio.Generate(ctx, c.Param("id"), nil); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"files": []string{studio.FileCutout, studio.FileVariantA, studio.FileVariantB},
	})
}

func (s *Server) download(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.sendFile(c, name)
	}
}

func (s *Server) file(c *gin.Context) {
	s.sendFile(c, c.Param("name"))
}

func (s *Server) sendFile(c *gin.Context, name string) {
	raw, err := s.studio.Output(c.Request.Context(), c.Param("id"), name)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "image/png", raw)
}

type exportRequest struct {
	Target string `json:"target" binding:"required"`
}

func (s *Server) export(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "target is required")
		return
	}
	sink, ok := s.sinks[req.Target]
	if !ok {
		badRequest(c, fmt.Sprintf("unknown export target %q", req.Target))
		return
	}

	ctx, cancel := s.withTimeout(c)
	defer cancel()

	names, err := s.studio.Export(ctx, c.Param("id"), sink)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"target": req.Target, "files": names})
}

func (s *Server) withTimeout(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), s.requestTimeout)
}

type settingsView struct {
	settings.Snapshot
	HasAPIKey bool `json:"hasApiKey"`
}

// redact keeps the API key out of responses.
func redact(snap settings.Snapshot) settingsView {
	has := snap.APIKey != ""
	snap.APIKey = ""
	if snap.Model == "" {
		snap.Model = gemini.DefaultModel
	}
	return settingsView{Snapshot: snap, HasAPIKey: has}
}
