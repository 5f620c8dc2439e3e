package gdalbox

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/wgdzlh/geoview/internal/log"

	"github.com/lukeroth/gdal"
	"go.uber.org/zap"
)

// GDAL工具箱，坐标系引用可复用，故缓存于refMap
type Toolbox struct {
	refMap map[int]gdal.SpatialReference
	rLock  sync.Mutex
	shpEnv sync.Mutex

	previewSize    int
	percentileClip bool
	logTag         string
}

// 由GDAL库C语言创建的内存对象，需要手动调用Destroy回收
type destroyable interface {
	Destroy()
}

type Option func(*Toolbox)

func WithPreviewSize(size int) Option {
	return func(g *Toolbox) {
		if size > 0 {
			g.previewSize = size
		}
	}
}

func WithPercentileClip(on bool) Option {
	return func(g *Toolbox) {
		g.percentileClip = on
	}
}

func NewToolbox(opts ...Option) *Toolbox {
	g := &Toolbox{
		refMap:      map[int]gdal.SpatialReference{},
		previewSize: DEFAULT_PREVIEW_SIZE,
		logTag:      "Toolbox:",
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// 获取srid对应的坐标系（可复用，故无需回收）
func (g *Toolbox) getSridRef(srid int) (ref gdal.SpatialReference, err error) {
	g.rLock.Lock()
	defer g.rLock.Unlock()
	ref, ok := g.refMap[srid]
	if ok {
		return
	}
	ref = gdal.CreateSpatialReference("")
	if err = ref.FromEPSG(srid); err != nil {
		log.Error(g.logTag+"set ref srid failed", zap.Int("srid", srid), zap.Error(err))
		ref.Destroy()
		return
	}
	// 固定数据轴次序为(经度,纬度)，避免转换坐标系或转GeoJSON时出现次序倒置
	ref.SetAxisMappingStrategy(gdal.OAMS_TraditionalGisOrder)
	g.refMap[srid] = ref
	return
}

func (g *Toolbox) getSrid(sp gdal.SpatialReference) (srid int, err error) {
	wkt, _ := sp.ToWKT()
	if wkt == "" {
		err = ErrVoidSrid
		return
	}
	rawId, ok := sp.AttrValue("AUTHORITY", 1)
	if !ok {
		err = ErrVoidSrid
		return
	}
	srid, err = strconv.Atoi(rawId)
	log.Debug(g.logTag+"got srid from sp", zap.String("id", rawId))
	return
}

// 从投影WKT中识别srid
func (g *Toolbox) sridOfWkt(wkt string) (srid int, err error) {
	if wkt == "" {
		err = ErrVoidSrid
		return
	}
	sp := gdal.CreateSpatialReference(wkt)
	defer sp.Destroy()
	_ = sp.AutoIdentifyEPSG() // 对缺失AUTHORITY节点的投影定义尝试识别
	return g.getSrid(sp)
}

// 在fn执行期间启用SHAPE_RESTORE_SHX，结束后无论成败都恢复原值。
// GDAL通过环境变量读取该配置，故以互斥锁保证开关不交叠。
func (g *Toolbox) withRestoredShx(fn func() error) error {
	const key = "SHAPE_RESTORE_SHX"
	g.shpEnv.Lock()
	defer g.shpEnv.Unlock()
	prev, had := os.LookupEnv(key)
	os.Setenv(key, "YES")
	defer func() {
		if had {
			os.Setenv(key, prev)
		} else {
			os.Unsetenv(key)
		}
	}()
	return fn()
}

// 识别"EPSG:4326"形式的坐标系标识
func parseAuthorityCode(declared string) (srid int, ok bool) {
	s := strings.ToUpper(strings.TrimSpace(declared))
	if !strings.HasPrefix(s, "EPSG:") {
		return
	}
	srid, err := strconv.Atoi(strings.TrimPrefix(s, "EPSG:"))
	ok = err == nil && srid > 0
	return
}

func SridToAuthority(srid int) string {
	return "EPSG:" + strconv.Itoa(srid)
}
