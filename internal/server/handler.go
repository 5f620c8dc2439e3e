package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wgdzlh/geoview/internal/gdalbox"
	"github.com/wgdzlh/geoview/internal/ingest"
	"github.com/wgdzlh/geoview/internal/log"
	"github.com/wgdzlh/geoview/internal/utils"

	"go.uber.org/zap"
)

// 地理处理接口的统一响应体
type geoResponse struct {
	Success bool            `json:"success"`
	GeoJSON json.RawMessage `json:"geojson,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("write response failed", zap.Error(err))
	}
}

func writeGeoErr(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusOK, geoResponse{Error: err.Error()})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, geoResponse{Error: err.Error()})
		return
	}
	parts := r.MultipartForm.File["files"]
	if len(parts) == 0 {
		writeJSON(w, http.StatusBadRequest, geoResponse{Error: "no files uploaded"})
		return
	}
	files := make([]ingest.UploadFile, 0, len(parts))
	for _, hdr := range parts {
		data, err := readPart(hdr)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, geoResponse{Error: err.Error()})
			return
		}
		files = append(files, ingest.UploadFile{Name: filepath.Base(hdr.Filename), Data: data})
	}
	log.Info(s.logTag+"upload batch", zap.Int("files", len(files)))
	writeJSON(w, http.StatusOK, s.orch.ProcessBatch(files))
}

func (s *Server) handleClip(w http.ResponseWriter, r *http.Request) {
	s.withScratch(w, r, func(dir string) (out *gdalbox.VectorLayer, err error) {
		input, err := s.loadLayerPart(r, "input", dir)
		if err != nil {
			return
		}
		defer input.Destroy()
		clip, err := s.loadLayerPart(r, "clip", dir)
		if err != nil {
			return
		}
		defer clip.Destroy()
		return s.box.Clip(input, clip)
	})
}

func (s *Server) handleIntersect(w http.ResponseWriter, r *http.Request) {
	s.withScratch(w, r, func(dir string) (out *gdalbox.VectorLayer, err error) {
		parts := r.MultipartForm.File["files"]
		if len(parts) < 2 {
			err = gdalbox.ErrInsufficientLayers
			return
		}
		layers := make([]*gdalbox.VectorLayer, 0, len(parts))
		defer func() {
			for _, l := range layers {
				l.Destroy()
			}
		}()
		for _, hdr := range parts {
			var layer *gdalbox.VectorLayer
			if layer, err = s.loadLayerHeader(hdr, dir); err != nil {
				return
			}
			layers = append(layers, layer)
		}
		return s.box.Intersect(layers)
	})
}

func (s *Server) handleBuffer(w http.ResponseWriter, r *http.Request) {
	s.withScratch(w, r, func(dir string) (out *gdalbox.VectorLayer, err error) {
		distance, err := strconv.ParseFloat(r.FormValue("distance"), 64)
		if err != nil {
			err = errors.New("invalid buffer distance")
			return
		}
		unit := r.FormValue("unit")
		if unit == "" {
			unit = "Meters"
		}
		input, err := s.loadLayerPart(r, "input", dir)
		if err != nil {
			return
		}
		defer input.Destroy()
		return s.box.Buffer(input, distance, unit)
	})
}

func (s *Server) handleNear(w http.ResponseWriter, r *http.Request) {
	s.withScratch(w, r, func(dir string) (out *gdalbox.VectorLayer, err error) {
		var maxDistance *float64
		if v := r.FormValue("max_distance"); v != "" {
			d, e := strconv.ParseFloat(v, 64)
			if e != nil {
				err = errors.New("invalid max_distance")
				return
			}
			maxDistance = &d
		}
		k := gdalbox.DefaultNeighbors
		if v := r.FormValue("k_neighbors"); v != "" {
			if k, err = strconv.Atoi(v); err != nil {
				err = errors.New("invalid k_neighbors")
				return
			}
		}
		input, err := s.loadLayerPart(r, "input", dir)
		if err != nil {
			return
		}
		defer input.Destroy()
		near, err := s.loadLayerPart(r, "near", dir)
		if err != nil {
			return
		}
		defer near.Destroy()
		return s.box.Near(input, near, maxDistance, k)
	})
}

// 地理处理请求的公共脉络：建独立临时目录（保证清理）→ 执行op → 输出GeoJSON
func (s *Server) withScratch(w http.ResponseWriter, r *http.Request,
	fn func(dir string) (*gdalbox.VectorLayer, error)) {
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, geoResponse{Error: err.Error()})
		return
	}
	dir, err := utils.GetUniqSubDir(s.cfg.TmpDir)
	if err != nil {
		writeGeoErr(w, err)
		return
	}
	defer os.RemoveAll(dir)
	out, err := fn(dir)
	if err != nil {
		log.Error(s.logTag+"geoprocessing failed", zap.String("route", r.URL.Path), zap.Error(err))
		writeGeoErr(w, err)
		return
	}
	defer out.Destroy()
	gj, err := out.ToGeoJSON()
	if err != nil {
		writeGeoErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, geoResponse{Success: true, GeoJSON: gj})
}

func (s *Server) loadLayerPart(r *http.Request, field, dir string) (*gdalbox.VectorLayer, error) {
	parts := r.MultipartForm.File[field]
	if len(parts) == 0 {
		return nil, errors.New("missing file part: " + field)
	}
	return s.loadLayerHeader(parts[0], dir)
}

// 保存矢量文件part并载入为图层；zip包内的shp（连同随附文件）会先解出
func (s *Server) loadLayerHeader(hdr *multipart.FileHeader, dir string) (*gdalbox.VectorLayer, error) {
	path, err := savePart(hdr, dir)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(strings.ToLower(path), gdalbox.FILE_EXT_ZIP) {
		if path, _, err = utils.GetShpInZip(path, dir); err != nil {
			return nil, err
		}
	}
	return s.box.LoadVector(path)
}

func savePart(hdr *multipart.FileHeader, dir string) (path string, err error) {
	data, err := readPart(hdr)
	if err != nil {
		return
	}
	path = filepath.Join(dir, filepath.Base(hdr.Filename))
	err = os.WriteFile(path, data, os.ModePerm)
	return
}

func readPart(hdr *multipart.FileHeader) (data []byte, err error) {
	f, err := hdr.Open()
	if err != nil {
		return
	}
	defer f.Close()
	return io.ReadAll(f)
}
