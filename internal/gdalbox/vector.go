package gdalbox

import (
	"path/filepath"
	"strings"

	"github.com/wgdzlh/geoview/internal/log"
	"github.com/wgdzlh/geoview/internal/utils"

	"github.com/lukeroth/gdal"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
)

// 矢量要素：几何 + 属性
type Feature struct {
	Geom  gdal.Geometry
	Attrs map[string]any
}

// 矢量图层，要素几何由GDAL分配，用完需Destroy
type VectorLayer struct {
	Name   string
	Srid   int
	Fields []string
	Feats  []Feature
}

func (l *VectorLayer) Destroy() {
	for _, f := range l.Feats {
		f.Geom.Destroy()
	}
	l.Feats = nil
}

func (l *VectorLayer) HasEmptyGeometry() bool {
	for _, f := range l.Feats {
		if f.Geom.IsEmpty() {
			return true
		}
	}
	return false
}

// LoadVector 读取矢量文件为内存图层。shp读取在SHAPE_RESTORE_SHX守卫内进行；
// 未声明坐标系的图层直接赋默认经纬度坐标系（矢量不做范围推断）
func (g *Toolbox) LoadVector(path string) (layer *VectorLayer, err error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case FILE_EXT_SHP:
		err = g.withRestoredShx(func() (e error) {
			layer, e = g.readLayer(path, SHP_DRIVER_NAME, !utils.ShpIsUtf8(path))
			return
		})
	case FILE_EXT_JSON, FILE_EXT_GEOJSON:
		layer, err = g.readLayer(path, GEOJSON_DRIVER_NAME, false)
	default:
		err = ErrUnsupportedVector
	}
	return
}

func (g *Toolbox) readLayer(path, driverName string, gbk bool) (ret *VectorLayer, err error) {
	driver := gdal.OGRDriverByName(driverName)
	ds, ok := driver.Open(path, 0)
	if !ok {
		log.Error(g.logTag+"open vector failed", zap.String("path", path))
		err = ErrGdalDriverOpen
		return
	}
	defer ds.Destroy()
	layer := ds.LayerByIndex(0)
	srid, e := g.getSrid(layer.SpatialReference())
	if e != nil {
		srid = UNIVERSAL_SRID
		log.Warn(g.logTag+"layer has no CRS, assuming default",
			zap.String("path", path), zap.Int("srid", srid))
	}
	var (
		def    = layer.Definition()
		nf     = def.FieldCount()
		fields = make([]string, nf)
		types  = make([]gdal.FieldType, nf)
	)
	for i := 0; i < nf; i++ {
		fd := def.FieldDefinition(i)
		name := fd.Name()
		if gbk {
			if u, e := utils.GbkStrToUtf8(name); e == nil {
				name = u
			}
		}
		fields[i] = name
		types[i] = fd.Type()
	}
	ret = &VectorLayer{
		Name:   utils.GetFilenameWithoutExt(path),
		Srid:   srid,
		Fields: fields,
	}
	var feature *gdal.Feature
	for {
		if feature = layer.NextFeature(); feature == nil {
			break
		}
		attrs := make(map[string]any, nf)
		for i := 0; i < nf; i++ {
			attrs[fields[i]] = fieldValue(feature, i, types[i], gbk)
		}
		ret.Feats = append(ret.Feats, Feature{
			Geom:  feature.Geometry().Clone(),
			Attrs: attrs,
		})
		feature.Destroy()
	}
	if len(ret.Feats) == 0 {
		ret = nil
		err = ErrEmptyLayer
		return
	}
	log.Info(g.logTag+"vector layer loaded", zap.String("path", path),
		zap.Int("srid", srid), zap.Int("features", len(ret.Feats)))
	return
}

func fieldValue(feature *gdal.Feature, i int, ft gdal.FieldType, gbk bool) any {
	switch ft {
	case gdal.FT_Integer:
		return feature.FieldAsInteger(i)
	case gdal.FT_Integer64:
		return feature.FieldAsInteger64(i)
	case gdal.FT_Real:
		return feature.FieldAsFloat64(i)
	default:
		s := feature.FieldAsString(i)
		if gbk {
			if u, e := utils.GbkStrToUtf8(s); e == nil {
				return u
			}
		}
		return utils.PurifyForUtf8(s)
	}
}

// 就地转换图层坐标系，srid一致时跳过
func (g *Toolbox) ReprojectLayer(l *VectorLayer, tSrid int) (err error) {
	if l.Srid == tSrid {
		return
	}
	tRef, err := g.getSridRef(tSrid)
	if err != nil {
		return
	}
	log.Info(g.logTag+"reproject layer", zap.String("layer", l.Name),
		zap.Int("from", l.Srid), zap.Int("to", tSrid))
	for _, f := range l.Feats {
		if err = f.Geom.TransformTo(tRef); err != nil {
			log.Error(g.logTag+"geo transform failed", zap.Error(err))
			return
		}
	}
	l.Srid = tSrid
	return
}

// HarmonizeLayers 将所有图层统一到首个图层的坐标系
func (g *Toolbox) HarmonizeLayers(layers []*VectorLayer) (err error) {
	if len(layers) < 2 {
		return
	}
	base := layers[0].Srid
	for _, l := range layers[1:] {
		if err = g.ReprojectLayer(l, base); err != nil {
			return
		}
	}
	return
}

// ToGeoJSON 输出图层为GeoJSON FeatureCollection
func (l *VectorLayer) ToGeoJSON() (ret []byte, err error) {
	fc := geojson.NewFeatureCollection()
	for _, ft := range l.Feats {
		geom, e := geojson.UnmarshalGeometry(utils.S2B(ft.Geom.ToJSON()))
		if e != nil {
			log.Error("layer feature to GeoJSON failed", zap.String("layer", l.Name), zap.Error(e))
			err = ErrGdalWrongGeoJSON
			return
		}
		f := geojson.NewFeature(geom.Geometry())
		for k, v := range ft.Attrs {
			f.Properties[k] = v
		}
		fc.Append(f)
	}
	ret, err = fc.MarshalJSON()
	return
}
