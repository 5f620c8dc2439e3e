package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wgdzlh/geoview/internal/gdalbox"
	"github.com/wgdzlh/geoview/internal/log"
	"github.com/wgdzlh/geoview/internal/utils"

	"go.uber.org/zap"
)

var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrEmptyArchive        = errors.New("no supported layers in archive")
)

// 批次内单个上传文件
type UploadFile struct {
	Name string
	Data []byte
}

// 单个逻辑文件的处理结果（成功/失败二选一）
type Result struct {
	Success bool            `json:"success"`
	Name    string          `json:"name"`
	Type    string          `json:"type,omitempty"` // raster | vector
	Data    string          `json:"data,omitempty"` // base64 PNG
	Bounds  *[2][2]float64  `json:"bounds,omitempty"`
	Crs     string          `json:"crs,omitempty"`
	GeoJSON json.RawMessage `json:"geojson,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func failure(name string, err error) Result {
	return Result{Name: name, Error: err.Error()}
}

type Orchestrator struct {
	box    *gdalbox.Toolbox
	tmpDir string
	logTag string
}

func NewOrchestrator(box *gdalbox.Toolbox, tmpDir string) *Orchestrator {
	return &Orchestrator{
		box:    box,
		tmpDir: tmpDir,
		logTag: "Orchestrator:",
	}
}

// ProcessBatch 顺序处理一批上传文件，各文件失败互不影响，结果按分类顺序排列。
// 唯一的批级前置条件是顶层shp随附文件齐全，不齐全时整批以单条失败返回。
// 请求临时目录在所有退出路径上都会被清理
func (o *Orchestrator) ProcessBatch(files []UploadFile) []Result {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	if err := ValidateFileSet(names); err != nil {
		log.Warn(o.logTag+"batch rejected", zap.Error(err))
		name := "batch"
		var mse *MissingSidecarError
		if errors.As(err, &mse) {
			name = mse.Base + ".shp"
		}
		return []Result{failure(name, err)}
	}
	dir, err := utils.GetUniqSubDir(o.tmpDir)
	if err != nil {
		return []Result{failure("batch", err)}
	}
	defer os.RemoveAll(dir)

	// 随附文件需在处理任何shp之前全部落盘
	results := make([]Result, 0, len(files))
	unwritten := map[string]error{}
	for _, f := range files {
		path := filepath.Join(dir, filepath.Base(f.Name))
		if e := os.WriteFile(path, f.Data, os.ModePerm); e != nil {
			unwritten[f.Name] = e
		}
	}
	for _, f := range files {
		if e, ok := unwritten[f.Name]; ok {
			results = append(results, failure(f.Name, e))
			continue
		}
		low := strings.ToLower(f.Name)
		path := filepath.Join(dir, filepath.Base(f.Name))
		switch {
		case strings.HasSuffix(low, gdalbox.FILE_EXT_TIF), strings.HasSuffix(low, gdalbox.FILE_EXT_TIFF):
			results = append(results, o.safely(f.Name, func() Result {
				return o.rasterResult(f.Name, path)
			}))
		case strings.HasSuffix(low, gdalbox.FILE_EXT_SHP):
			results = append(results, o.safely(f.Name, func() Result {
				return o.vectorResult(f.Name, path)
			}))
		case isSidecar(low):
			// 随附文件由其shp消费，不单独产出结果
			continue
		case strings.HasSuffix(low, gdalbox.FILE_EXT_ZIP):
			results = append(results, o.archiveResults(f.Name, path, dir)...)
		default:
			results = append(results, failure(f.Name, ErrUnsupportedFileType))
		}
	}
	return results
}

func isSidecar(name string) bool {
	for _, ext := range []string{
		gdalbox.FILE_EXT_SHX, gdalbox.FILE_EXT_DBF,
		gdalbox.FILE_EXT_PRJ, gdalbox.FILE_EXT_CPG,
	} {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// 单文件处理的兜底隔离：任何深层panic都转为该文件的失败结果，不波及批内其他文件
func (o *Orchestrator) safely(name string, fn func() Result) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error(o.logTag+"panic in file pipeline", zap.String("file", name), zap.Any("panic", r))
			res = failure(name, fmt.Errorf("error processing %s: %v", name, r))
		}
	}()
	return fn()
}

func (o *Orchestrator) rasterResult(name, path string) Result {
	log.Info(o.logTag+"processing raster", zap.String("file", name))
	pv, err := o.box.NormalizeRaster(path)
	if err != nil {
		log.Error(o.logTag+"raster processing failed", zap.String("file", name), zap.Error(err))
		return failure(name, fmt.Errorf("error processing %s: %w", name, err))
	}
	bounds := pv.Bounds
	return Result{
		Success: true,
		Name:    name,
		Type:    "raster",
		Data:    pv.Data,
		Bounds:  &bounds,
		Crs:     gdalbox.SridToAuthority(pv.Srid),
	}
}

func (o *Orchestrator) vectorResult(name, path string) Result {
	log.Info(o.logTag+"processing vector", zap.String("file", name))
	layer, err := o.box.LoadVector(path)
	if err != nil {
		log.Error(o.logTag+"vector processing failed", zap.String("file", name), zap.Error(err))
		return failure(name, fmt.Errorf("error processing %s: %w", name, err))
	}
	defer layer.Destroy()
	// 单图层展示统一转到经纬度坐标系
	if err = o.box.ReprojectLayer(layer, gdalbox.UNIVERSAL_SRID); err != nil {
		return failure(name, fmt.Errorf("error processing %s: %w", name, err))
	}
	gj, err := layer.ToGeoJSON()
	if err != nil {
		return failure(name, fmt.Errorf("error processing %s: %w", name, err))
	}
	return Result{
		Success: true,
		Name:    name,
		Type:    "vector",
		GeoJSON: gj,
	}
}

// 解压并处理压缩包成员：包内shp随附文件在此重查；
// 一个压缩包可产出多条结果，损坏或无可处理成员时产出单条失败
func (o *Orchestrator) archiveResults(name, path, parentDir string) []Result {
	sub, err := utils.GetUniqSubDir(parentDir)
	if err != nil {
		return []Result{failure(name, err)}
	}
	members, err := utils.Unzip(path, sub)
	if err != nil {
		log.Error(o.logTag+"archive expansion failed", zap.String("file", name), zap.Error(err))
		return []Result{failure(name, fmt.Errorf("archive corrupt: %w", err))}
	}
	memberNames := make([]string, len(members))
	for i, m := range members {
		memberNames[i] = filepath.Base(m)
	}
	if err = ValidateFileSet(memberNames); err != nil {
		return []Result{failure(name, err)}
	}
	var out []Result
	for _, m := range members {
		low := strings.ToLower(m)
		entry := name + "/" + filepath.Base(m)
		switch {
		case strings.HasSuffix(low, gdalbox.FILE_EXT_TIF), strings.HasSuffix(low, gdalbox.FILE_EXT_TIFF):
			out = append(out, o.safely(entry, func() Result {
				return o.rasterResult(entry, m)
			}))
		case strings.HasSuffix(low, gdalbox.FILE_EXT_SHP):
			out = append(out, o.safely(entry, func() Result {
				return o.vectorResult(entry, m)
			}))
		}
	}
	if len(out) == 0 {
		out = []Result{failure(name, ErrEmptyArchive)}
	}
	return out
}
