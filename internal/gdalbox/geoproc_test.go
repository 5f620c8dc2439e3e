package gdalbox

import (
	"math"
	"testing"

	"github.com/lukeroth/gdal"
)

func wktFeature(t *testing.T, g *Toolbox, srid int, wkt string, attrs map[string]any) Feature {
	t.Helper()
	ref, err := g.getSridRef(srid)
	if err != nil {
		t.Fatal(err)
	}
	geo, err := gdal.CreateFromWKT(wkt, ref)
	if err != nil {
		t.Fatal(err)
	}
	if attrs == nil {
		attrs = map[string]any{}
	}
	return Feature{Geom: geo, Attrs: attrs}
}

func TestIntersectInsufficientLayers(t *testing.T) {
	g := NewToolbox()
	if _, err := g.Intersect([]*VectorLayer{{Name: "only"}}); err != ErrInsufficientLayers {
		t.Fatalf("expected ErrInsufficientLayers, got %v", err)
	}
	if _, err := g.Intersect(nil); err != ErrInsufficientLayers {
		t.Fatalf("expected ErrInsufficientLayers, got %v", err)
	}
}

func TestNearCrsMismatch(t *testing.T) {
	g := NewToolbox()
	input := &VectorLayer{Name: "a", Srid: 4326}
	near := &VectorLayer{Name: "b", Srid: 3857}
	if _, err := g.Near(input, near, nil, 1); err != ErrCrsMismatch {
		t.Fatalf("expected ErrCrsMismatch, got %v", err)
	}
}

func TestDistanceInMeters(t *testing.T) {
	if distanceInMeters(1, "Kilometers") != distanceInMeters(1000, "Meters") {
		t.Fatal("1 km must equal 1000 m")
	}
	if got := distanceInMeters(2, "Miles"); got != 2*1609.34 {
		t.Fatalf("expected %f, got %f", 2*1609.34, got)
	}
	// 未知单位按米处理
	if got := distanceInMeters(7, "Fathoms"); got != 7 {
		t.Fatalf("expected 7, got %f", got)
	}
}

func TestSuffixAttrs(t *testing.T) {
	out := suffixAttrs(map[string]any{"id": 1, "name": "x"}, 2)
	if out["id_2"] != 1 || out["name_2"] != "x" {
		t.Fatalf("unexpected renamed attrs %v", out)
	}
	if _, ok := out["id"]; ok {
		t.Fatal("original column name must not survive renaming")
	}
}

func TestFilterByDistance(t *testing.T) {
	cands := []nearCand{{idx: 0, dist: 10}, {idx: 1, dist: 20}}
	if got := filterByDistance(cands, nil); len(got) != 2 {
		t.Fatalf("nil max distance must keep all, got %d", len(got))
	}
	maxD := 5.0
	if got := filterByDistance(cands, &maxD); len(got) != 0 {
		t.Fatalf("expected no survivors, got %d", len(got))
	}
	maxD = 15
	got := filterByDistance([]nearCand{{idx: 0, dist: 10}, {idx: 1, dist: 20}}, &maxD)
	if len(got) != 1 || got[0].idx != 0 {
		t.Fatalf("expected single survivor idx 0, got %v", got)
	}
}

func TestBufferUnitEquivalence(t *testing.T) {
	g := NewToolbox()
	mkLayer := func() *VectorLayer {
		return &VectorLayer{
			Name: "pt", Srid: METRIC_SRID, Fields: []string{"id"},
			Feats: []Feature{wktFeature(t, g, METRIC_SRID, "POINT(1000 1000)", map[string]any{"id": 1})},
		}
	}
	km, err := g.Buffer(mkLayer(), 1, "Kilometers")
	if err != nil {
		t.Fatal(err)
	}
	defer km.Destroy()
	m, err := g.Buffer(mkLayer(), 1000, "Meters")
	if err != nil {
		t.Fatal(err)
	}
	defer m.Destroy()
	kmWkt, _ := km.Feats[0].Geom.ToWKT()
	mWkt, _ := m.Feats[0].Geom.ToWKT()
	if kmWkt != mWkt {
		t.Fatal("1 km buffer must equal 1000 m buffer")
	}
	if km.Feats[0].Attrs["id"] != 1 {
		t.Fatal("buffer must preserve attributes")
	}
}

func TestIntersectRenamesCollidingColumns(t *testing.T) {
	g := NewToolbox()
	a := &VectorLayer{
		Name: "a", Srid: METRIC_SRID, Fields: []string{"id"},
		Feats: []Feature{wktFeature(t, g, METRIC_SRID,
			"POLYGON((0 0, 0 10, 10 10, 10 0, 0 0))", map[string]any{"id": 1})},
	}
	defer a.Destroy()
	b := &VectorLayer{
		Name: "b", Srid: METRIC_SRID, Fields: []string{"id"},
		Feats: []Feature{wktFeature(t, g, METRIC_SRID,
			"POLYGON((5 5, 5 15, 15 15, 15 5, 5 5))", map[string]any{"id": 2})},
	}
	defer b.Destroy()
	out, err := g.Intersect([]*VectorLayer{a, b})
	if err != nil {
		t.Fatal(err)
	}
	defer out.Destroy()
	if len(out.Feats) != 1 {
		t.Fatalf("expected 1 intersection feature, got %d", len(out.Feats))
	}
	attrs := out.Feats[0].Attrs
	if attrs["id_0"] != 1 || attrs["id_1"] != 2 {
		t.Fatalf("expected renamed columns id_0/id_1, got %v", attrs)
	}
	if _, ok := attrs["id"]; ok {
		t.Fatal("colliding column must not be overwritten in place")
	}
}

func TestClipKeepsInputSchema(t *testing.T) {
	g := NewToolbox()
	input := &VectorLayer{
		Name: "input", Srid: METRIC_SRID, Fields: []string{"label"},
		Feats: []Feature{
			wktFeature(t, g, METRIC_SRID, "POLYGON((0 0, 0 10, 10 10, 10 0, 0 0))", map[string]any{"label": "in"}),
			wktFeature(t, g, METRIC_SRID, "POLYGON((100 100, 100 110, 110 110, 110 100, 100 100))", map[string]any{"label": "out"}),
		},
	}
	defer input.Destroy()
	clip := &VectorLayer{
		Name: "clip", Srid: METRIC_SRID, Fields: []string{"zone"},
		Feats: []Feature{wktFeature(t, g, METRIC_SRID,
			"POLYGON((-5 -5, -5 5, 5 5, 5 -5, -5 -5))", map[string]any{"zone": 9})},
	}
	defer clip.Destroy()
	out, err := g.Clip(input, clip)
	if err != nil {
		t.Fatal(err)
	}
	defer out.Destroy()
	if len(out.Feats) != 1 {
		t.Fatalf("expected 1 clipped feature, got %d", len(out.Feats))
	}
	if out.Feats[0].Attrs["label"] != "in" {
		t.Fatalf("clip must keep input attributes, got %v", out.Feats[0].Attrs)
	}
	if _, ok := out.Feats[0].Attrs["zone"]; ok {
		t.Fatal("clip layer attributes must not leak into output")
	}
}

func TestNearAttachesNearestWithinDistance(t *testing.T) {
	g := NewToolbox()
	input := &VectorLayer{
		Name: "input", Srid: METRIC_SRID,
		Feats: []Feature{wktFeature(t, g, METRIC_SRID, "POINT(0 0)", nil)},
	}
	defer input.Destroy()
	near := &VectorLayer{
		Name: "near", Srid: METRIC_SRID,
		Feats: []Feature{
			wktFeature(t, g, METRIC_SRID, "POINT(100 0)", nil),
			wktFeature(t, g, METRIC_SRID, "POINT(0 300)", nil),
		},
	}
	defer near.Destroy()
	out, err := g.Near(input, near, nil, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer out.Destroy()
	attrs := out.Feats[0].Attrs
	if attrs[NEAR_FID_FLD] != 1 {
		t.Fatalf("expected nearest FID 1, got %v", attrs[NEAR_FID_FLD])
	}
	dist, ok := attrs[NEAR_DIST_FLD].(float64)
	if !ok || math.Abs(dist-100) > 1e-6 {
		t.Fatalf("expected distance 100, got %v", attrs[NEAR_DIST_FLD])
	}
}

func TestNearMaxDistanceFiltersAll(t *testing.T) {
	g := NewToolbox()
	input := &VectorLayer{
		Name: "input", Srid: METRIC_SRID,
		Feats: []Feature{wktFeature(t, g, METRIC_SRID, "POINT(0 0)", nil)},
	}
	defer input.Destroy()
	near := &VectorLayer{
		Name: "near", Srid: METRIC_SRID,
		Feats: []Feature{wktFeature(t, g, METRIC_SRID, "POINT(100 0)", nil)},
	}
	defer near.Destroy()
	maxD := 1.0
	out, err := g.Near(input, near, &maxD, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer out.Destroy()
	attrs := out.Feats[0].Attrs
	if attrs[NEAR_FID_FLD] != nil || attrs[NEAR_DIST_FLD] != nil {
		t.Fatalf("expected null nearest fields, got %v", attrs)
	}
}
