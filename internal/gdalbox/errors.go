package gdalbox

import "errors"

var (
	ErrGdalDriverOpen     = errors.New("gdal driver open err")
	ErrGdalWrongGeoJSON   = errors.New("gdal wrong GeoJSON")
	ErrInvalidTif         = errors.New("invalid tif")
	ErrTifReadFailed      = errors.New("tif band read failed")
	ErrEmptyTif           = errors.New("empty tif")
	ErrVoidSrid           = errors.New("layer with void srid")
	ErrEmptyLayer         = errors.New("vector layer is empty")
	ErrInvalidGeometry    = errors.New("one or more layers contain empty geometries")
	ErrInsufficientLayers = errors.New("please select at least two layers")
	ErrCrsMismatch        = errors.New("CRS of input and near layers do not match")
	ErrUnsupportedVector  = errors.New("unsupported vector format")
	ErrEncodingFailed     = errors.New("image encoding failed")
)
