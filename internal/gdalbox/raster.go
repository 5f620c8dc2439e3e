package gdalbox

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wgdzlh/geoview/internal/log"

	gdal "github.com/airbusgeo/godal"
	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"
)

// 栅格预览结果：base64编码的PNG + 经纬度范围
type PreviewImage struct {
	Data   string        // base64 PNG
	Bounds [2][2]float64 // [[south,west],[north,east]]
	Srid   int           // Bounds所用坐标系
}

// NormalizeRaster 读取栅格，选取波段并拉伸为8位预览图，统一重采样至固定尺寸，
// 范围按解析出的源坐标系转为经纬度
func (g *Toolbox) NormalizeRaster(tif string) (ret PreviewImage, err error) {
	sds, err := gdal.Open(tif, gdal.RasterOnly())
	if err != nil {
		log.Error(g.logTag+"open tif failed", zap.String("tif", tif), zap.Error(err))
		err = ErrInvalidTif
		return
	}
	defer sds.Close()
	bands := sds.Bands()
	bc := len(bands)
	if bc == 0 {
		err = ErrEmptyTif
		return
	}
	st := sds.Structure()
	x, y := st.SizeX, st.SizeY
	log.Info(g.logTag+"start read tif", zap.String("tif", tif),
		zap.Int("bands", bc), zap.Int("width", x), zap.Int("height", y))

	var img image.Image
	if bc >= 3 {
		order := rgbBandOrder(bc, filepath.Base(tif))
		bufs := make([][]float64, 3)
		for i, bi := range order {
			bufs[i] = make([]float64, x*y)
			if err = bands[bi-1].IO(gdal.IORead, 0, 0, bufs[i], x, y); err != nil {
				log.Error(g.logTag+"read tif band failed", zap.Int("band", bi), zap.Error(err))
				err = ErrTifReadFailed
				return
			}
		}
		img = composeRGB(bufs, x, y)
	} else {
		buf := make([]float64, x*y)
		if err = bands[0].IO(gdal.IORead, 0, 0, buf, x, y); err != nil {
			log.Error(g.logTag+"read tif band failed", zap.Int("band", 1), zap.Error(err))
			err = ErrTifReadFailed
			return
		}
		img = stretchGray(buf, x, y, g.percentileClip)
	}

	data, err := encodePreviewPNG(resizePreview(img, g.previewSize))
	if err != nil {
		log.Error(g.logTag+"encode preview failed", zap.Error(err))
		err = ErrEncodingFailed
		return
	}

	native, err := g.nativeBounds(sds, x, y)
	if err != nil {
		return
	}
	srid, e := g.sridOfWkt(sds.Projection())
	if e != nil {
		srid = g.ResolveSrid("", &native)
		log.Warn(g.logTag+"no valid CRS in tif, guessed from bounds",
			zap.String("tif", tif), zap.Int("srid", srid))
	}
	display, displaySrid := g.displayBounds(native, srid)
	ret = PreviewImage{
		Data:   data,
		Bounds: [2][2]float64{{display.Bottom, display.Left}, {display.Top, display.Right}},
		Srid:   displaySrid,
	}
	return
}

// 展示用范围统一转经纬度；转换失败时回退为原生范围，坐标系也一并按原生报告，
// 保证返回的范围与坐标系始终配套
func (g *Toolbox) displayBounds(native Bounds, srid int) (Bounds, int) {
	if srid == UNIVERSAL_SRID {
		return native, srid
	}
	b, err := g.transformBounds(native, srid, UNIVERSAL_SRID)
	if err != nil {
		log.Warn(g.logTag+"bounds transform failed, reporting native bounds", zap.Error(err))
		return native, srid
	}
	return b, UNIVERSAL_SRID
}

func (g *Toolbox) nativeBounds(sds *gdal.Dataset, w, h int) (b Bounds, err error) {
	gt, err := sds.GeoTransform()
	if err != nil {
		log.Error(g.logTag+"tif has no geo transform", zap.Error(err))
		return
	}
	x0, y0 := gt[0], gt[3]
	x1 := gt[0] + gt[1]*float64(w) + gt[2]*float64(h)
	y1 := gt[3] + gt[4]*float64(w) + gt[5]*float64(h)
	b = Bounds{
		Left:   min(x0, x1),
		Bottom: min(y0, y1),
		Right:  max(x0, x1),
		Top:    max(y0, y1),
	}
	return
}

// 选取RGB合成波段：常规取1,2,3；Landsat L1TP命名且≥4波段时取4,3,2
func rgbBandOrder(bandCount int, name string) [3]int {
	if bandCount >= 4 && strings.Contains(name, "L1TP") {
		return [3]int{4, 3, 2}
	}
	return [3]int{1, 2, 3}
}

// 单波段按观测[min,max]（可选2-98百分位裁剪）线性拉伸至[0,255]；
// 无变化的波段输出全零图，避免除零
func stretchGray(samples []float64, w, h int, percentileClip bool) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	lo, hi := sampleRange(samples, percentileClip)
	if hi <= lo {
		return img
	}
	scale := 255 / (hi - lo)
	for i, v := range samples {
		if v < lo {
			v = lo
		} else if v > hi {
			v = hi
		}
		img.Pix[i] = uint8((v - lo) * scale)
	}
	return img
}

func sampleRange(samples []float64, percentileClip bool) (lo, hi float64) {
	if len(samples) == 0 {
		return
	}
	if percentileClip {
		sorted := make([]float64, len(samples))
		copy(sorted, samples)
		sort.Float64s(sorted)
		n := float64(len(sorted))
		return sorted[int(STRETCH_CLIP_LOW*n)], sorted[int(STRETCH_CLIP_HIGH*n)]
	}
	lo, hi = samples[0], samples[0]
	for _, v := range samples[1:] {
		if v < lo {
			lo = v
		} else if v > hi {
			hi = v
		}
	}
	return
}

// RGB合成不做拉伸，直接截断到8位（假定已为0-255值域）
func composeRGB(bufs [][]float64, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w*h; i++ {
		img.Pix[i*4] = clampByte(bufs[0][i])
		img.Pix[i*4+1] = clampByte(bufs[1][i])
		img.Pix[i*4+2] = clampByte(bufs[2][i])
		img.Pix[i*4+3] = 0xFF
	}
	return img
}

func clampByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}

// 统一缩放到固定预览尺寸，不保持纵横比
func resizePreview(src image.Image, size int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

func encodePreviewPNG(img image.Image) (data string, err error) {
	var buf bytes.Buffer
	if err = png.Encode(&buf, img); err != nil {
		return
	}
	data = base64.StdEncoding.EncodeToString(buf.Bytes())
	return
}
