package gdalbox

import "testing"

func TestResolveSridIdempotent(t *testing.T) {
	g := NewToolbox()
	for _, declared := range []string{"EPSG:4326", "epsg:3857", "EPSG:32635"} {
		srid := g.ResolveSrid(declared, nil)
		again := g.ResolveSrid(SridToAuthority(srid), nil)
		if srid != again {
			t.Fatalf("resolve not idempotent for %s: %d then %d", declared, srid, again)
		}
	}
	if got := g.ResolveSrid("EPSG:3857", &Bounds{Left: 10, Bottom: 45, Right: 12, Top: 47}); got != 3857 {
		t.Fatalf("declared CRS must win over bounds, got %d", got)
	}
}

func TestResolveSridGeographicBounds(t *testing.T) {
	g := NewToolbox()
	b := &Bounds{Left: 10, Bottom: 45, Right: 12, Top: 47}
	if got := g.ResolveSrid("", b); got != UNIVERSAL_SRID {
		t.Fatalf("expected %d for lat/lng bounds, got %d", UNIVERSAL_SRID, got)
	}
}

func TestResolveSridProjectedBounds(t *testing.T) {
	g := NewToolbox()
	b := &Bounds{Left: 500000, Bottom: 4649776, Right: 600000, Top: 4749776}
	got := g.ResolveSrid("", b)
	if got == UNIVERSAL_SRID {
		t.Fatal("projected-looking bounds must not resolve to the geographic CRS")
	}
	if !(got >= UTM_NORTH_BASE+1 && got <= UTM_SOUTH_BASE+60) {
		t.Fatalf("expected a UTM-pattern srid, got %d", got)
	}
}

func TestResolveSridFallback(t *testing.T) {
	g := NewToolbox()
	if got := g.ResolveSrid("", nil); got != FALLBACK_SRID {
		t.Fatalf("expected fallback %d without bounds, got %d", FALLBACK_SRID, got)
	}
	b := &Bounds{Left: -5e6, Bottom: -5e6, Right: 8e6, Top: 8e6}
	if got := g.ResolveSrid("not-a-crs", b); got != FALLBACK_SRID {
		t.Fatalf("expected fallback %d for out-of-range bounds, got %d", FALLBACK_SRID, got)
	}
}

func TestUtmZoneHelpers(t *testing.T) {
	if lon := approxLongitudeFromEasting(UTM_FALSE_EASTING); lon != 0 {
		t.Fatalf("false easting must map to longitude 0, got %f", lon)
	}
	cases := []struct {
		lon  float64
		zone int
	}{
		{0, 31},
		{-180, 1},
		{179.99, 60},
		{25, 35},
		{-200, 1},  // clamped
		{200, 60},  // clamped
	}
	for _, c := range cases {
		if z := utmZoneFromLongitude(c.lon); z != c.zone {
			t.Fatalf("zone for lon %f: expected %d, got %d", c.lon, c.zone, z)
		}
	}
	if srid := utmSridForZone(35, true); srid != 32635 {
		t.Fatalf("expected 32635, got %d", srid)
	}
	if srid := utmSridForZone(35, false); srid != 32735 {
		t.Fatalf("expected 32735, got %d", srid)
	}
}

func TestParseAuthorityCode(t *testing.T) {
	if srid, ok := parseAuthorityCode(" epsg:4490 "); !ok || srid != 4490 {
		t.Fatalf("expected 4490, got %d %v", srid, ok)
	}
	for _, bad := range []string{"", "WGS84", "EPSG:", "EPSG:-3", "urn:ogc:def:crs"} {
		if _, ok := parseAuthorityCode(bad); ok {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}
