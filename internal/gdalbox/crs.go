package gdalbox

import (
	"fmt"

	"github.com/wgdzlh/geoview/internal/log"

	"github.com/lukeroth/gdal"
	"go.uber.org/zap"
)

// 数据集空间范围（西、南、东、北）
type Bounds struct {
	Left   float64
	Bottom float64
	Right  float64
	Top    float64
}

func (b Bounds) centroid() (x, y float64) {
	return (b.Left + b.Right) / 2, (b.Bottom + b.Top) / 2
}

func (b Bounds) looksGeographic() bool {
	return b.Left >= -180 && b.Left <= 180 && b.Right >= -180 && b.Right <= 180 &&
		b.Bottom >= -90 && b.Bottom <= 90 && b.Top >= -90 && b.Top <= 90
}

func (b Bounds) looksProjected() bool {
	return b.Left >= 0 && b.Left <= PROJECTED_COORD_LIMIT &&
		b.Right >= 0 && b.Right <= PROJECTED_COORD_LIMIT
}

// ResolveSrid 解析坐标系：有合法EPSG标识则原样返回；否则按空间范围启发式推断；
// 推断结果仅为尽力而为的兜底值，不可视为权威
func (g *Toolbox) ResolveSrid(declared string, bounds *Bounds) int {
	if srid, ok := parseAuthorityCode(declared); ok {
		return srid
	}
	if bounds == nil {
		log.Warn(g.logTag + "no declared CRS and no bounds, using fallback")
		return FALLBACK_SRID
	}
	if bounds.looksGeographic() {
		log.Info(g.logTag+"bounds appear to be lat/lng", zap.Int("srid", UNIVERSAL_SRID))
		return UNIVERSAL_SRID
	}
	if bounds.looksProjected() {
		srid := g.estimateUtmSrid(*bounds)
		log.Info(g.logTag+"bounds appear to be projected meters", zap.Int("srid", srid))
		return srid
	}
	log.Warn(g.logTag+"bounds match neither lat/lng nor UTM, using fallback",
		zap.Float64("left", bounds.Left), zap.Float64("right", bounds.Right))
	return FALLBACK_SRID
}

// 以临时UTM带投影将范围中心转为经纬度，估算实际UTM带；
// 转换结果越界时退回按假东偏移的近似估算
func (g *Toolbox) estimateUtmSrid(bounds Bounds) int {
	cx, cy := bounds.centroid()
	lon, lat, err := g.transformPoint(cx, cy, PROVISIONAL_UTM_SRID, UNIVERSAL_SRID)
	if err != nil || lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		log.Warn(g.logTag+"invalid lat/lng after provisional transform, approximating zone from easting",
			zap.Float64("easting", cx), zap.Error(err))
		lon = approxLongitudeFromEasting(cx)
		// 近似估算无法判断南北半球，按北半球处理
		lat = 1
	}
	return utmSridForZone(utmZoneFromLongitude(lon), lat >= 0)
}

func (g *Toolbox) transformPoint(x, y float64, srid, tSrid int) (tx, ty float64, err error) {
	ref, err := g.getSridRef(srid)
	if err != nil {
		return
	}
	tRef, err := g.getSridRef(tSrid)
	if err != nil {
		return
	}
	geo, err := gdal.CreateFromWKT(fmt.Sprintf("POINT(%f %f)", x, y), ref)
	if err != nil {
		return
	}
	defer geo.Destroy()
	if err = geo.TransformTo(tRef); err != nil {
		log.Error(g.logTag+"point transform failed", zap.Error(err))
		return
	}
	tx, ty, _ = geo.Point(0)
	return
}

// 转换范围坐标系，取转换后多边形的包络
func (g *Toolbox) transformBounds(b Bounds, srid, tSrid int) (out Bounds, err error) {
	if srid == tSrid {
		out = b
		return
	}
	ref, err := g.getSridRef(srid)
	if err != nil {
		return
	}
	tRef, err := g.getSridRef(tSrid)
	if err != nil {
		return
	}
	geo, err := gdal.CreateFromWKT(boundsToWkt(b), ref)
	if err != nil {
		return
	}
	defer geo.Destroy()
	if err = geo.TransformTo(tRef); err != nil {
		log.Error(g.logTag+"bounds transform failed", zap.Error(err))
		return
	}
	env := geo.Envelope()
	out = Bounds{Left: env.MinX(), Bottom: env.MinY(), Right: env.MaxX(), Top: env.MaxY()}
	return
}

func boundsToWkt(b Bounds) string {
	return fmt.Sprintf("POLYGON((%[1]f %[3]f, %[1]f %[4]f, %[2]f %[4]f, %[2]f %[3]f, %[1]f %[3]f))",
		b.Left, b.Right, b.Bottom, b.Top)
}

func approxLongitudeFromEasting(easting float64) float64 {
	return (easting - UTM_FALSE_EASTING) / METERS_PER_DEGREE
}

func utmZoneFromLongitude(lon float64) int {
	zone := int((lon+180)/6) + 1
	if zone < 1 {
		zone = 1
	} else if zone > 60 {
		zone = 60
	}
	return zone
}

func utmSridForZone(zone int, north bool) int {
	if north {
		return UTM_NORTH_BASE + zone
	}
	return UTM_SOUTH_BASE + zone
}
