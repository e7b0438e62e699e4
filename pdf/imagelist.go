package pdf

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// ImageInfo is one data row of pdfimages -list output.
type ImageInfo struct {
	Page   int
	Num    int
	Type   string
	Width  int
	Height int
	Color  string
}

// ParseImageList parses the tabular output of pdfimages -list. Every data
// row is kept, including soft masks and stencils, because the -png dump
// writes one file per row in the same order; callers pair rows with files by
// index and decide what to skip.
func ParseImageList(r io.Reader) []ImageInfo {
	var infos []ImageInfo
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "page") || strings.HasPrefix(line, "---") {
			continue
		}
		fields := strings.Fields(line)
		// page num type width height color comp bpc enc interp object ID x-ppi y-ppi size ratio
		if len(fields) < 6 {
			continue
		}
		page, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		num, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}
		width, _ := strconv.Atoi(fields[3])
		height, _ := strconv.Atoi(fields[4])
		info := ImageInfo{
			Page:   page,
			Num:    num,
			Type:   fields[2],
			Width:  width,
			Height: height,
			Color:  fields[5],
		}
		infos = append(infos, info)
	}
	return infos
}
