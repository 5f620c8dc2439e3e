package gdalbox

const (
	FILE_EXT_SHP     = ".shp"
	FILE_EXT_SHX     = ".shx"
	FILE_EXT_DBF     = ".dbf"
	FILE_EXT_PRJ     = ".prj"
	FILE_EXT_CPG     = ".cpg"
	FILE_EXT_ZIP     = ".zip"
	FILE_EXT_TIF     = ".tif"
	FILE_EXT_TIFF    = ".tiff"
	FILE_EXT_JSON    = ".json"
	FILE_EXT_GEOJSON = ".geojson"

	SHP_DRIVER_NAME     = "ESRI Shapefile"
	GEOJSON_DRIVER_NAME = "GeoJSON"

	// 通用经纬度坐标系（WGS84）
	UNIVERSAL_SRID = 4326
	// 米制距离计算用的投影坐标系（Web墨卡托）
	METRIC_SRID = 3857
	// 无法识别时的兜底投影坐标系（UTM 35N）
	FALLBACK_SRID = 32635
	// UTM带估算用的临时投影坐标系
	PROVISIONAL_UTM_SRID = 32635

	// UTM北半球/南半球EPSG编号基数
	UTM_NORTH_BASE = 32600
	UTM_SOUTH_BASE = 32700

	// UTM假东偏移与每经度近似米数
	UTM_FALSE_EASTING = 500000.0
	METERS_PER_DEGREE = 111320.0

	// 投影米制坐标的合理上限
	PROJECTED_COORD_LIMIT = 1_000_000.0

	// 预览图固定边长
	DEFAULT_PREVIEW_SIZE = 500

	// 单波段拉伸的百分位裁剪范围
	STRETCH_CLIP_LOW  = 0.02
	STRETCH_CLIP_HIGH = 0.98

	BuffQuadSegs = 12

	// near操作缺省近邻数
	DefaultNeighbors = 1

	SHP_FIELD_FID = "FID"
	NEAR_FID_FLD  = "NEAR_FID"
	NEAR_DIST_FLD = "NEAR_DIST"
)

// buffer距离单位对应的米制乘数
var unitMultipliers = map[string]float64{
	"Meters":     1,
	"Kilometers": 1000,
	"Miles":      1609.34,
}
