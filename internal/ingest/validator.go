package ingest

import (
	"fmt"
	"strings"
)

// 批次内shp随附文件缺失
type MissingSidecarError struct {
	Base    string
	Missing []string
}

func (e *MissingSidecarError) Error() string {
	return fmt.Sprintf("shapefile %q is missing required sidecar files: %s",
		e.Base+".shp", strings.Join(e.Missing, ", "))
}

var requiredSidecars = []string{".shx", ".dbf"}

// ValidateFileSet 校验批次内每个顶层shp的必备随附文件（.shx/.dbf）是否齐全，
// 匹配不区分大小写；.prj可缺省（按默认经纬度坐标系处理）；
// 打包在zip内的shp豁免此检查，解压后再查。
// 任一shp缺失随附文件即整批拒绝
func ValidateFileSet(names []string) error {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[strings.ToLower(n)] = struct{}{}
	}
	for _, n := range names {
		low := strings.ToLower(n)
		if !strings.HasSuffix(low, ".shp") {
			continue
		}
		base := strings.TrimSuffix(low, ".shp")
		var missing []string
		for _, ext := range requiredSidecars {
			if _, ok := set[base+ext]; !ok {
				missing = append(missing, ext)
			}
		}
		if len(missing) > 0 {
			return &MissingSidecarError{
				Base:    n[:len(n)-len(".shp")],
				Missing: missing,
			}
		}
	}
	return nil
}
