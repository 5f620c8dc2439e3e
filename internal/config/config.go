package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Addr           string
	TmpDir         string
	LogLevel       string
	AllowedOrigins []string
	PreviewSize    int
	PercentileClip bool
	MaxUploadBytes int64
}

func FromEnv() Config {
	return Config{
		Addr:           envStr("GEOVIEW_ADDR", ":8000"),
		TmpDir:         envStr("GEOVIEW_TMP_DIR", os.TempDir()),
		LogLevel:       envStr("GEOVIEW_LOG_LEVEL", "info"),
		AllowedOrigins: splitCsv(envStr("GEOVIEW_ALLOWED_ORIGINS", "http://localhost:3000")),
		PreviewSize:    envInt("GEOVIEW_PREVIEW_SIZE", 500),
		PercentileClip: envBool("GEOVIEW_PERCENTILE_CLIP", false),
		MaxUploadBytes: int64(envInt("GEOVIEW_MAX_UPLOAD_MB", 256)) << 20,
	}
}

func envStr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return def
}

func splitCsv(s string) (out []string) {
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return
}
