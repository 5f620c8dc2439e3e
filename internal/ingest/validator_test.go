package ingest

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateFileSet(t *testing.T) {
	cases := []struct {
		name    string
		files   []string
		missing []string
	}{
		{"complete set", []string{"city.shp", "city.shx", "city.dbf", "city.prj"}, nil},
		{"prj optional", []string{"city.shp", "city.shx", "city.dbf"}, nil},
		{"missing shx", []string{"city.shp", "city.dbf"}, []string{".shx"}},
		{"missing both", []string{"city.shp"}, []string{".shx", ".dbf"}},
		{"case insensitive", []string{"CITY.SHP", "city.shx", "City.DBF"}, nil},
		{"shp only in zip exempt", []string{"bundle.zip", "photo.tif"}, nil},
		{"no shp at all", []string{"photo.tif", "notes.txt"}, nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := ValidateFileSet(c.files)
			if c.missing == nil {
				if err != nil {
					t.Fatalf("expected ok, got %v", err)
				}
				return
			}
			var mse *MissingSidecarError
			if !errors.As(err, &mse) {
				t.Fatalf("expected MissingSidecarError, got %v", err)
			}
			if len(mse.Missing) != len(c.missing) {
				t.Fatalf("expected missing %v, got %v", c.missing, mse.Missing)
			}
			for i, ext := range c.missing {
				if mse.Missing[i] != ext {
					t.Fatalf("expected missing %v, got %v", c.missing, mse.Missing)
				}
			}
		})
	}
}

func TestValidateFileSetNamesOffender(t *testing.T) {
	err := ValidateFileSet([]string{"roads.shp", "roads.shx", "rivers.shp", "rivers.shx", "rivers.dbf"})
	var mse *MissingSidecarError
	if !errors.As(err, &mse) {
		t.Fatalf("expected MissingSidecarError, got %v", err)
	}
	if mse.Base != "roads" {
		t.Fatalf("expected offender roads, got %q", mse.Base)
	}
}

func TestValidateFileSetNamesUpperCaseOffender(t *testing.T) {
	err := ValidateFileSet([]string{"CITY.SHP", "city.dbf"})
	var mse *MissingSidecarError
	if !errors.As(err, &mse) {
		t.Fatalf("expected MissingSidecarError, got %v", err)
	}
	if mse.Base != "CITY" {
		t.Fatalf("expected offender CITY, got %q", mse.Base)
	}
	if got := mse.Error(); strings.Contains(got, ".SHP.shp") {
		t.Fatalf("suffix trimmed case-sensitively: %s", got)
	}
}
