package pdf

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/tieubaoca/docrag-be/types"
)

var pdfinfoPagesRe = regexp.MustCompile(`Pages:\s+(\d+)`)

// PopplerOpener opens documents through the poppler command line tools
// (pdfinfo, pdftotext, pdftoppm, pdfimages). Every page operation is a
// separate process invocation, so a handle holds no OS resources beyond the
// path and the cached page count.
type PopplerOpener struct{}

func (PopplerOpener) Open(path string) (Document, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &types.DocumentOpenError{Path: path, Err: err}
	}
	pages, err := getNumPages(path)
	if err != nil {
		return nil, &types.DocumentOpenError{Path: path, Err: err}
	}
	return &popplerDocument{path: path, pages: pages}, nil
}

type popplerDocument struct {
	path  string
	pages int
}

func (d *popplerDocument) Name() string {
	base := filepath.Base(d.path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (d *popplerDocument) PageCount() int { return d.pages }

// Text extracts the native text layer with pdftotext. The output is returned
// verbatim; deciding whether the page "has text" is the caller's business.
func (d *popplerDocument) Text(ctx context.Context, pageNum int) (string, error) {
	page := strconv.Itoa(pageNum + 1)
	cmd := exec.CommandContext(ctx, "pdftotext",
		"-f", page, "-l", page,
		"-enc", "UTF-8", "-nopgbrk",
		d.path, "-")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("pdftotext page %d: %w", pageNum, err)
	}
	return out.String(), nil
}

// Render rasterizes one page to PNG with pdftoppm. With no output root
// argument pdftoppm writes the image to stdout.
func (d *popplerDocument) Render(ctx context.Context, pageNum int, dpi int) ([]byte, error) {
	page := strconv.Itoa(pageNum + 1)
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-png", "-r", strconv.Itoa(dpi),
		"-f", page, "-l", page,
		d.path)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm page %d: %w", pageNum, err)
	}
	if out.Len() == 0 {
		return nil, fmt.Errorf("pdftoppm page %d: empty output", pageNum)
	}
	return out.Bytes(), nil
}

// Images dumps the page's raster resources with pdfimages into a temp
// directory and pairs the files with the metadata rows of pdfimages -list.
// pdfimages emits one file per reference occurrence on the page, so a
// resource used twice is extracted twice.
func (d *popplerDocument) Images(ctx context.Context, pageNum int) ([]RawImage, error) {
	page := strconv.Itoa(pageNum + 1)

	listCmd := exec.CommandContext(ctx, "pdfimages", "-f", page, "-l", page, "-list", d.path)
	var listOut bytes.Buffer
	listCmd.Stdout = &listOut
	if err := listCmd.Run(); err != nil {
		return nil, fmt.Errorf("pdfimages -list page %d: %w", pageNum, err)
	}
	infos := ParseImageList(&listOut)
	if len(infos) == 0 {
		return nil, nil
	}

	tempDir, err := os.MkdirTemp("", "docrag-images-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	root := filepath.Join(tempDir, "img")
	dumpCmd := exec.CommandContext(ctx, "pdfimages", "-f", page, "-l", page, "-png", d.path, root)
	if err := dumpCmd.Run(); err != nil {
		return nil, fmt.Errorf("pdfimages -png page %d: %w", pageNum, err)
	}
	files, err := filepath.Glob(root + "-*.png")
	if err != nil {
		return nil, fmt.Errorf("failed to read image files: %w", err)
	}
	// img-000.png, img-001.png, ... zero padded, so lexicographic order is
	// emission order.
	sort.Strings(files)

	// One dumped file per -list row, in row order. Soft masks and stencils
	// get files of their own, so skipping a row means skipping its file too.
	images := make([]RawImage, 0, len(files))
	for i, file := range files {
		if i >= len(infos) {
			break
		}
		if infos[i].Type != "image" {
			continue
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		images = append(images, RawImage{
			Data:       data,
			Colorspace: infos[i].Color,
			Width:      infos[i].Width,
			Height:     infos[i].Height,
		})
	}
	return images, nil
}

func (d *popplerDocument) Close() error { return nil }

// getNumPages uses pdfinfo to get the total number of pages in a PDF file.
func getNumPages(pdfPath string) (int, error) {
	cmd := exec.Command("pdfinfo", pdfPath)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("error running pdfinfo: %w", err)
	}

	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		if matches := pdfinfoPagesRe.FindStringSubmatch(scanner.Text()); len(matches) == 2 {
			return strconv.Atoi(matches[1])
		}
	}
	return 0, fmt.Errorf("unable to determine page count from pdfinfo")
}
