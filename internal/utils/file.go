package utils

import (
	"archive/zip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	FILE_EXT_SHP = ".shp"
	FILE_EXT_CPG = ".cpg"

	UTF8  = "UTF8"
	UTF_8 = "UTF-8"
)

var (
	ErrNoShpInZip = errors.New("no shp in zip")
)

// 为单个请求创建独立的临时子目录
func GetUniqSubDir(parentPath string) (path string, err error) {
	path = filepath.Join(parentPath, uuid.NewString())
	err = os.MkdirAll(path, os.ModePerm)
	return
}

func GetFilenameWithoutExt(path string) (name string) {
	name = filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(path))
	return
}

// 解压zip包中的顶层文件到dstDir，忽略子目录，返回解压出的文件路径
func Unzip(zipFile, dstDir string) (files []string, err error) {
	zr, err := zip.OpenReader(zipFile)
	if err != nil {
		return
	}
	defer zr.Close()
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.ContainsRune(f.Name, '/') {
			continue
		}
		out := filepath.Join(dstDir, filepath.Base(f.Name))
		if err = extractZipMember(f, out); err != nil {
			return
		}
		files = append(files, out)
	}
	return
}

func extractZipMember(f *zip.File, out string) (err error) {
	rc, err := f.Open()
	if err != nil {
		return
	}
	defer rc.Close()
	w, err := os.Create(out)
	if err != nil {
		return
	}
	defer w.Close()
	_, err = io.Copy(w, rc)
	return
}

// 从zip中解压并定位shp文件，同时根据cpg判断是否为UTF-8编码
func GetShpInZip(zipFile, dstDir string) (path string, utf8 bool, err error) {
	shpFiles, err := Unzip(zipFile, dstDir)
	if err != nil {
		return
	}
	for _, file := range shpFiles {
		if strings.HasSuffix(strings.ToLower(file), FILE_EXT_SHP) {
			path = file
			continue
		}
		if strings.HasSuffix(strings.ToLower(file), FILE_EXT_CPG) {
			enc, e := os.ReadFile(file)
			if e == nil && len(enc) > 0 {
				encStr := strings.ToUpper(strings.TrimSpace(string(enc)))
				utf8 = encStr == UTF_8 || encStr == UTF8
			}
		}
	}
	if path == "" {
		err = ErrNoShpInZip
	}
	return
}

// 读取shp同名cpg文件，返回是否为UTF-8编码（无cpg时视为UTF-8）
func ShpIsUtf8(shp string) bool {
	cpg := strings.TrimSuffix(shp, filepath.Ext(shp)) + FILE_EXT_CPG
	enc, err := os.ReadFile(cpg)
	if err != nil || len(enc) == 0 {
		return true
	}
	encStr := strings.ToUpper(strings.TrimSpace(string(enc)))
	return encStr == UTF_8 || encStr == UTF8
}
