package gdalbox

import (
	"fmt"
	"sort"

	"github.com/wgdzlh/geoview/internal/log"

	"github.com/lukeroth/gdal"
	"github.com/tidwall/rtree"
	"go.uber.org/zap"
)

// Clip 用裁剪图层截取输入图层，裁剪图层先转到输入图层坐标系，输出属性保持输入图层结构
func (g *Toolbox) Clip(input, clip *VectorLayer) (out *VectorLayer, err error) {
	if input.HasEmptyGeometry() || clip.HasEmptyGeometry() {
		err = ErrInvalidGeometry
		return
	}
	if clip.Srid != input.Srid {
		log.Info(g.logTag + "reprojecting clip layer to match input CRS")
		if err = g.ReprojectLayer(clip, input.Srid); err != nil {
			return
		}
	}
	var (
		mask = gdal.Create(gdal.GT_Polygon)
		gc   = []destroyable{mask}
	)
	defer func() {
		for _, v := range gc {
			v.Destroy()
		}
	}()
	for _, f := range clip.Feats {
		mask = mask.Union(f.Geom)
		gc = append(gc, mask)
	}
	out = &VectorLayer{Name: input.Name + "_clip", Srid: input.Srid, Fields: input.Fields}
	for _, f := range input.Feats {
		if !f.Geom.Intersects(mask) {
			continue
		}
		inter := f.Geom.Intersection(mask)
		if inter.IsEmpty() {
			inter.Destroy()
			continue
		}
		out.Feats = append(out.Feats, Feature{Geom: inter, Attrs: copyAttrs(f.Attrs)})
	}
	log.Info(g.logTag+"clip done", zap.String("input", input.Name),
		zap.Int("features", len(out.Feats)))
	return
}

// Intersect 多图层求交：统一到首个图层坐标系，属性列按来源图层加位置后缀避免同名覆盖，
// 再做左结合的两两交叠
func (g *Toolbox) Intersect(layers []*VectorLayer) (out *VectorLayer, err error) {
	if len(layers) < 2 {
		err = ErrInsufficientLayers
		return
	}
	for _, l := range layers {
		if l.HasEmptyGeometry() {
			err = ErrInvalidGeometry
			return
		}
	}
	if err = g.HarmonizeLayers(layers); err != nil {
		return
	}
	var fields []string
	for i, l := range layers {
		for _, name := range l.Fields {
			fields = append(fields, suffixedField(name, i))
		}
	}
	acc := renamedFeatures(layers[0], 0)
	for i, l := range layers[1:] {
		acc = overlayIntersection(acc, renamedFeatures(l, i+1))
	}
	out = &VectorLayer{Name: "intersection", Srid: layers[0].Srid, Fields: fields, Feats: acc}
	log.Info(g.logTag+"intersect done", zap.Int("layers", len(layers)),
		zap.Int("features", len(acc)))
	return
}

// Buffer 按米制距离做均匀缓冲，属性原样保留；不自动转投影坐标系，
// 米制正确性由调用方保证
func (g *Toolbox) Buffer(input *VectorLayer, distance float64, unit string) (out *VectorLayer, err error) {
	meters := distanceInMeters(distance, unit)
	log.Info(g.logTag+"buffer layer", zap.String("input", input.Name),
		zap.Float64("meters", meters), zap.String("unit", unit))
	out = &VectorLayer{Name: input.Name + "_buffer", Srid: input.Srid, Fields: input.Fields}
	for _, f := range input.Feats {
		out.Feats = append(out.Feats, Feature{
			Geom:  f.Geom.Buffer(meters, BuffQuadSegs),
			Attrs: copyAttrs(f.Attrs),
		})
	}
	return
}

type nearCand struct {
	idx  int
	dist float64
}

// Near 最近要素连接。要求两图层坐标系严格一致（不做隐式统一）；
// 共享坐标系为经纬度时双方先转米制投影再计算距离。
// 对每个输入要素经空间索引取k个候选，按精确距离升序并过滤maxDistance，
// 将最近幸存候选的FID与距离挂到输出属性上（无幸存者则为null）
func (g *Toolbox) Near(input, near *VectorLayer, maxDistance *float64, k int) (out *VectorLayer, err error) {
	if input.Srid != near.Srid {
		err = ErrCrsMismatch
		return
	}
	if k <= 0 {
		k = DefaultNeighbors
	}
	if ref, e := g.getSridRef(input.Srid); e == nil && ref.IsGeographic() {
		log.Info(g.logTag+"reprojecting to metric CRS for distance calculations",
			zap.Int("srid", METRIC_SRID))
		if err = g.ReprojectLayer(input, METRIC_SRID); err != nil {
			return
		}
		if err = g.ReprojectLayer(near, METRIC_SRID); err != nil {
			return
		}
	}
	nearFids := make([]any, len(near.Feats))
	for i, f := range near.Feats {
		if v, ok := f.Attrs[SHP_FIELD_FID]; ok {
			nearFids[i] = v
		} else {
			f.Attrs[SHP_FIELD_FID] = i + 1
			nearFids[i] = i + 1
		}
	}
	var tr rtree.RTreeG[int]
	for i, f := range near.Feats {
		env := f.Geom.Envelope()
		tr.Insert([2]float64{env.MinX(), env.MinY()}, [2]float64{env.MaxX(), env.MaxY()}, i)
	}
	out = &VectorLayer{
		Name:   input.Name + "_near",
		Srid:   input.Srid,
		Fields: append(append([]string{}, input.Fields...), NEAR_FID_FLD, NEAR_DIST_FLD),
	}
	for _, f := range input.Feats {
		env := f.Geom.Envelope()
		cands := make([]nearCand, 0, k)
		tr.Nearby(
			rtree.BoxDist[float64, int](
				[2]float64{env.MinX(), env.MinY()},
				[2]float64{env.MaxX(), env.MaxY()}, nil),
			func(_, _ [2]float64, idx int, _ float64) bool {
				cands = append(cands, nearCand{idx: idx, dist: f.Geom.Distance(near.Feats[idx].Geom)})
				return len(cands) < k
			},
		)
		sort.Slice(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })
		cands = filterByDistance(cands, maxDistance)
		attrs := copyAttrs(f.Attrs)
		if len(cands) > 0 {
			attrs[NEAR_FID_FLD] = nearFids[cands[0].idx]
			attrs[NEAR_DIST_FLD] = cands[0].dist
		} else {
			attrs[NEAR_FID_FLD] = nil
			attrs[NEAR_DIST_FLD] = nil
		}
		out.Feats = append(out.Feats, Feature{Geom: f.Geom.Clone(), Attrs: attrs})
	}
	log.Info(g.logTag+"near done", zap.String("input", input.Name),
		zap.Int("features", len(out.Feats)))
	return
}

func filterByDistance(cands []nearCand, maxDistance *float64) []nearCand {
	if maxDistance == nil {
		return cands
	}
	kept := cands[:0]
	for _, c := range cands {
		if c.dist <= *maxDistance {
			kept = append(kept, c)
		}
	}
	return kept
}

func distanceInMeters(distance float64, unit string) float64 {
	mult, ok := unitMultipliers[unit]
	if !ok {
		mult = 1
	}
	return distance * mult
}

func suffixedField(name string, idx int) string {
	return fmt.Sprintf("%s_%d", name, idx)
}

func suffixAttrs(attrs map[string]any, idx int) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[suffixedField(k, idx)] = v
	}
	return out
}

func copyAttrs(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

func renamedFeatures(l *VectorLayer, idx int) []Feature {
	out := make([]Feature, len(l.Feats))
	for i, f := range l.Feats {
		out[i] = Feature{Geom: f.Geom.Clone(), Attrs: suffixAttrs(f.Attrs, idx)}
	}
	return out
}

func overlayIntersection(a, b []Feature) []Feature {
	var out []Feature
	for _, fa := range a {
		for _, fb := range b {
			if !fa.Geom.Intersects(fb.Geom) {
				continue
			}
			inter := fa.Geom.Intersection(fb.Geom)
			if inter.IsEmpty() {
				inter.Destroy()
				continue
			}
			merged := copyAttrs(fa.Attrs)
			for k, v := range fb.Attrs {
				merged[k] = v
			}
			out = append(out, Feature{Geom: inter, Attrs: merged})
		}
	}
	for _, f := range a {
		f.Geom.Destroy()
	}
	for _, f := range b {
		f.Geom.Destroy()
	}
	return out
}
